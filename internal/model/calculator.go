package model

import "github.com/shopspring/decimal"

// PurchaseEstimate holds the results of a core purchasing calculation.
type PurchaseEstimate struct {
	TotalPieceLength decimal.Decimal `json:"total_piece_length"` // Sum of all requested piece lengths
	KerfAllowance    decimal.Decimal `json:"kerf_allowance"`     // One kerf per piece, as used by the effective capacity model
	CoresNeededExact decimal.Decimal `json:"cores_needed_exact"` // Fractional number of cores
	CoresNeededMin   int             `json:"cores_needed_min"`   // Material lower bound (ceiling of exact)
	CoresWithWaste   int             `json:"cores_with_waste"`   // Recommended cores including waste factor
	WastePercent     decimal.Decimal `json:"waste_percent"`      // Waste factor applied (e.g., 10 for 10%)
	EstimatedCost    decimal.Decimal `json:"estimated_cost"`     // Total cost if pricing available
	PricePerCore     decimal.Decimal `json:"price_per_core"`     // Price used for estimation
	MasterLength     decimal.Decimal `json:"master_length"`      // Core length used in calculation
	Kerf             decimal.Decimal `json:"kerf"`               // Kerf used in calculation
}

var hundred = decimal.NewFromInt(100)

// CalculatePurchaseEstimate computes how many cores to buy for a demand list
// without solving the cutting problem. Every piece is charged one kerf and every
// core is credited one kerf, the same capacity model the optimizer uses, so
// CoresNeededMin is a true lower bound on the optimal core count.
func CalculatePurchaseEstimate(cfg Configuration, demands []DemandLine, wastePercent, pricePerCore decimal.Decimal) PurchaseEstimate {
	pieces := decimal.Zero
	allowance := decimal.Zero
	for _, d := range demands {
		q := decimal.NewFromInt(int64(d.Quantity))
		pieces = pieces.Add(d.Width.Mul(q))
		allowance = allowance.Add(cfg.Kerf.Mul(q))
	}

	est := PurchaseEstimate{
		TotalPieceLength: pieces,
		KerfAllowance:    allowance,
		CoresNeededExact: decimal.Zero,
		WastePercent:     wastePercent,
		EstimatedCost:    decimal.Zero,
		PricePerCore:     pricePerCore,
		MasterLength:     cfg.MasterLength,
		Kerf:             cfg.Kerf,
	}

	capacity := cfg.MasterLength.Add(cfg.Kerf)
	if cfg.MasterLength.Sign() <= 0 || capacity.Sign() <= 0 {
		return est
	}

	demand := pieces.Add(allowance)
	est.CoresNeededExact = demand.Div(capacity)
	est.CoresNeededMin = ceilCores(demand, capacity)

	// Apply waste factor
	factor := decimal.NewFromInt(1).Add(wastePercent.Div(hundred))
	est.CoresWithWaste = ceilCores(demand.Mul(factor), capacity)
	if est.CoresWithWaste < est.CoresNeededMin {
		est.CoresWithWaste = est.CoresNeededMin
	}

	est.EstimatedCost = pricePerCore.Mul(decimal.NewFromInt(int64(est.CoresWithWaste)))
	return est
}

// ceilCores returns the smallest n with n*capacity >= length, computed without
// trusting the rounding of a decimal division.
func ceilCores(length, capacity decimal.Decimal) int {
	n := length.Div(capacity).Ceil().IntPart()
	for n > 0 && capacity.Mul(decimal.NewFromInt(n-1)).GreaterThanOrEqual(length) {
		n--
	}
	for capacity.Mul(decimal.NewFromInt(n)).LessThan(length) {
		n++
	}
	return int(n)
}
