package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgaina/CoreCutter/internal/model"
)

func textbook(t *testing.T) Scaled {
	t.Helper()
	s, err := Normalize(cfgOf("100", "0.5"), []model.DemandLine{
		{Width: decimal.RequireFromString("45"), Quantity: 4, Label: "A"},
		{Width: decimal.RequireFromString("36"), Quantity: 3, Label: "B"},
	})
	require.NoError(t, err)
	return s
}

func TestAssemble_PerEntryFigures(t *testing.T) {
	s := textbook(t)
	result, err := Assemble(s, []PatternUse{
		{Pattern: Pattern{2, 0}, Count: 2},
		{Pattern: Pattern{0, 2}, Count: 1},
		{Pattern: Pattern{0, 1}, Count: 1},
	})
	require.NoError(t, err)

	require.Len(t, result.CuttingPlan, 3)
	assert.Equal(t, 4, result.CoresRequired)
	assert.Equal(t, int64(10), result.Scale)

	first := result.CuttingPlan[0]
	assert.Equal(t, 2, first.Count)
	require.Len(t, first.Pattern, 1)
	assert.Equal(t, "A", first.Pattern[0].Label)
	assert.Equal(t, 2, first.Pattern[0].Count)
	assert.True(t, first.PiecesLength.Equal(decimal.NewFromInt(90)))
	assert.True(t, first.KerfLoss.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, first.Used.Equal(decimal.RequireFromString("90.5")))
	assert.True(t, first.Waste.Equal(decimal.RequireFromString("9.5")))

	// 2*9.5 + 27.5 + 64 = 110.5
	assert.True(t, result.TotalWaste.Equal(decimal.RequireFromString("110.5")), "got %s", result.TotalWaste)
	assert.True(t, result.TotalWastePercent.Equal(decimal.RequireFromString("27.625")), "got %s", result.TotalWastePercent)
}

func TestAssemble_SinglePieceHasNoKerf(t *testing.T) {
	s := textbook(t)
	result, err := Assemble(s, []PatternUse{{Pattern: Pattern{0, 1}, Count: 1}})
	require.NoError(t, err)

	e := result.CuttingPlan[0]
	assert.True(t, e.KerfLoss.IsZero())
	assert.True(t, e.Waste.Equal(decimal.NewFromInt(64)))
}

func TestAssemble_WasteConservation(t *testing.T) {
	s := textbook(t)
	result, err := Assemble(s, []PatternUse{
		{Pattern: Pattern{1, 1}, Count: 3},
		{Pattern: Pattern{1, 0}, Count: 1},
	})
	require.NoError(t, err)

	var pieces, kerf, waste decimal.Decimal
	for _, e := range result.CuttingPlan {
		n := decimal.NewFromInt(int64(e.Count))
		pieces = pieces.Add(e.PiecesLength.Mul(n))
		kerf = kerf.Add(e.KerfLoss.Mul(n))
		waste = waste.Add(e.Waste.Mul(n))
	}
	total := s.Config.MasterLength.Mul(decimal.NewFromInt(int64(result.CoresRequired)))
	assert.True(t, total.Equal(pieces.Add(kerf).Add(waste)))
	assert.True(t, waste.Equal(result.TotalWaste))
}

func TestAssemble_OrdersByCountThenPattern(t *testing.T) {
	s := textbook(t)
	result, err := Assemble(s, []PatternUse{
		{Pattern: Pattern{0, 1}, Count: 1},
		{Pattern: Pattern{1, 1}, Count: 1},
		{Pattern: Pattern{2, 0}, Count: 3},
	})
	require.NoError(t, err)

	require.Len(t, result.CuttingPlan, 3)
	assert.Equal(t, 3, result.CuttingPlan[0].Count)
	assert.Len(t, result.CuttingPlan[1].Pattern, 2, "(1,1) sorts before (0,1)")
	assert.Equal(t, "B", result.CuttingPlan[2].Pattern[0].Label)
}

func TestAssemble_OverfullPatternIsInternalError(t *testing.T) {
	s := textbook(t)
	// Three 45s plus two kerfs need 136 of 100.
	_, err := Assemble(s, []PatternUse{{Pattern: Pattern{3, 0}, Count: 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternalConsistency))
	assert.True(t, IsInternalError(err))
}

func TestAssemble_MismatchedPatternLength(t *testing.T) {
	s := textbook(t)
	_, err := Assemble(s, []PatternUse{{Pattern: Pattern{1}, Count: 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternalConsistency))
}

func TestUses(t *testing.T) {
	patterns := []Pattern{{1, 0}, {0, 1}, {1, 1}}
	uses := Uses(patterns, []int64{0, 2, 1})
	require.Len(t, uses, 2)
	assert.Equal(t, Pattern{0, 1}, uses[0].Pattern)
	assert.Equal(t, int64(2), uses[0].Count)
	assert.Equal(t, Pattern{1, 1}, uses[1].Pattern)
}
