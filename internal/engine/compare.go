package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/amgaina/CoreCutter/internal/model"
)

// ComparisonScenario defines a named configuration to compare.
type ComparisonScenario struct {
	Name     string               `json:"name"`
	Config   model.Configuration  `json:"config"`
	Settings model.SolverSettings `json:"settings"`
}

// ComparisonResult holds the optimization result and computed statistics
// for a single scenario.
type ComparisonResult struct {
	Scenario     ComparisonScenario `json:"scenario"`
	Result       model.Result       `json:"result"`
	CoresUsed    int                `json:"cores_used"`
	TotalCuts    int                `json:"total_cuts"`
	WastePercent decimal.Decimal    `json:"waste_percent"`
	Err          error              `json:"-"`
}

// CompareScenarios runs optimization for each scenario and returns the results
// in scenario order. A failing scenario keeps its error instead of aborting
// the comparison.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, demands []model.DemandLine) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		opt := New(scenario.Settings)
		result, err := opt.Optimize(ctx, scenario.Config, demands)
		if err != nil {
			results = append(results, ComparisonResult{Scenario: scenario, Err: err})
			continue
		}

		totalCuts := 0
		for _, e := range result.CuttingPlan {
			totalCuts += e.Cuts() * e.Count
		}

		results = append(results, ComparisonResult{
			Scenario:     scenario,
			Result:       result,
			CoresUsed:    result.CoresRequired,
			TotalCuts:    totalCuts,
			WastePercent: result.TotalWastePercent,
		})
	}

	return results
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current configuration, varying key parameters to show what-if alternatives.
func BuildDefaultScenarios(cfg model.Configuration, settings model.SolverSettings) []ComparisonScenario {
	settings = settings.WithDefaults()
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Config:   cfg,
			Settings: settings,
		},
	}

	// Scenario: cross-check with the other backend
	alt := settings
	if settings.Solver == model.SolverExhaustive {
		alt.Solver = model.SolverBranchAndBound
	} else {
		alt.Solver = model.SolverExhaustive
	}
	scenarios = append(scenarios, ComparisonScenario{
		Name:     fmt.Sprintf("Solver %s", alt.Solver),
		Config:   cfg,
		Settings: alt,
	})

	if cfg.Kerf.Sign() > 0 {
		// Scenario: thinner blade
		half := cfg
		half.Kerf = cfg.Kerf.Div(decimal.NewFromInt(2))
		scenarios = append(scenarios, ComparisonScenario{
			Name:     fmt.Sprintf("Kerf %s (half)", half.Kerf),
			Config:   half,
			Settings: settings,
		})

		// Scenario: no kerf at all, the material-only limit
		none := cfg
		none.Kerf = decimal.Zero
		scenarios = append(scenarios, ComparisonScenario{
			Name:     "No Kerf",
			Config:   none,
			Settings: settings,
		})
	}

	return scenarios
}
