package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgaina/CoreCutter/internal/model"
)

func TestBuildDefaultScenarios(t *testing.T) {
	scenarios := BuildDefaultScenarios(cfgOf("100", "0.5"), model.SolverSettings{})

	require.Len(t, scenarios, 4)
	assert.Equal(t, "Current Settings", scenarios[0].Name)
	assert.Equal(t, model.SolverBranchAndBound, scenarios[0].Settings.Solver)
	assert.Equal(t, model.SolverExhaustive, scenarios[1].Settings.Solver)
	assert.Equal(t, "0.25", scenarios[2].Config.Kerf.String())
	assert.True(t, scenarios[3].Config.Kerf.IsZero())
}

func TestBuildDefaultScenarios_NoKerfVariantsWithoutKerf(t *testing.T) {
	scenarios := BuildDefaultScenarios(cfgOf("100", "0"), model.SolverSettings{Solver: model.SolverExhaustive})
	require.Len(t, scenarios, 2)
	assert.Equal(t, model.SolverBranchAndBound, scenarios[1].Settings.Solver)
}

func TestCompareScenarios(t *testing.T) {
	demands := []model.DemandLine{demand("50", 2)}
	scenarios := BuildDefaultScenarios(cfgOf("100", "0.5"), model.DefaultSettings())

	results := CompareScenarios(context.Background(), scenarios, demands)
	require.Len(t, results, len(scenarios))

	// With kerf two halves need two cores; without kerf they share one.
	assert.Equal(t, 2, results[0].CoresUsed)
	assert.Equal(t, 2, results[1].CoresUsed)
	assert.Equal(t, 2, results[2].CoresUsed)
	assert.Equal(t, 1, results[3].CoresUsed)
	assert.Equal(t, 1, results[3].TotalCuts)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestCompareScenarios_KeepsFailures(t *testing.T) {
	scenarios := []ComparisonScenario{
		{Name: "bad", Config: cfgOf("10", "0"), Settings: model.DefaultSettings()},
		{Name: "good", Config: cfgOf("100", "0"), Settings: model.DefaultSettings()},
	}
	results := CompareScenarios(context.Background(), scenarios, []model.DemandLine{demand("50", 2)})

	require.Len(t, results, 2)
	assert.True(t, errors.Is(results[0].Err, ErrOversizedItem))
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].CoresUsed)
}
