package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/amgaina/CoreCutter/internal/model"
)

// PatternUse is a pattern chosen by the solver and how many cores use it.
type PatternUse struct {
	Pattern Pattern
	Count   int64
}

// Uses collects the patterns with a positive multiplicity.
func Uses(patterns []Pattern, x []int64) []PatternUse {
	var uses []PatternUse
	for j, n := range x {
		if n > 0 {
			uses = append(uses, PatternUse{Pattern: patterns[j], Count: n})
		}
	}
	return uses
}

// Assemble converts solver output back to real units and computes waste. Every
// pattern is re-checked in the raw domain; a pattern that does not fit means the
// effective-domain model was violated and is reported as an internal
// consistency error.
func Assemble(s Scaled, uses []PatternUse) (model.Result, error) {
	uses = append([]PatternUse(nil), uses...)
	sort.SliceStable(uses, func(a, b int) bool {
		if uses[a].Count != uses[b].Count {
			return uses[a].Count > uses[b].Count
		}
		return uses[b].Pattern.Less(uses[a].Pattern)
	})

	result := model.EmptyResult()
	result.Scale = s.Scale

	var cores int64
	wasteInt := decimal.Zero
	for _, u := range uses {
		if len(u.Pattern) != len(s.RawWidths) {
			return model.Result{}, newError(KindInternalConsistency, -1, nil,
				"pattern has %d counts for %d demand lines", len(u.Pattern), len(s.RawWidths))
		}
		n := int64(u.Pattern.Pieces())
		pieces := u.Pattern.Load(s.RawWidths)
		kerfLoss := max(n-1, 0) * s.Kerf
		used := pieces + kerfLoss
		if used > s.Length {
			return model.Result{}, newError(KindInternalConsistency, -1, nil,
				"pattern %v uses %s of %s", []int(u.Pattern), s.ToReal(used), s.Config.MasterLength)
		}

		waste := s.Length - used
		wasteInt = wasteInt.Add(decimal.NewFromInt(waste).Mul(decimal.NewFromInt(u.Count)))
		cores += u.Count

		entry := model.PlanEntry{
			Count:        int(u.Count),
			PiecesLength: s.ToReal(pieces),
			KerfLoss:     s.ToReal(kerfLoss),
			Used:         s.ToReal(used),
			Waste:        s.ToReal(waste),
		}
		for i, c := range u.Pattern {
			if c == 0 {
				continue
			}
			entry.Pattern = append(entry.Pattern, model.PatternPiece{
				Width: s.Demands[i].Width,
				Count: c,
				Label: s.Demands[i].Label,
			})
		}
		result.CuttingPlan = append(result.CuttingPlan, entry)
	}

	result.CoresRequired = int(cores)
	result.TotalWaste = wasteInt.Shift(-s.Digits)
	if cores > 0 {
		total := s.Config.MasterLength.Mul(decimal.NewFromInt(cores))
		result.TotalWastePercent = result.TotalWaste.Div(total).Mul(decimal.NewFromInt(100))
	}
	return result, nil
}
