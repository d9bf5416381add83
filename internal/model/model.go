// Package model holds the plain data types shared by the engine, the
// importers, the exporters and the HTTP/CLI front ends.
package model

import (
	"github.com/shopspring/decimal"
)

// DemandLine is one requested cut size and how many pieces of it are needed.
type DemandLine struct {
	Width    decimal.Decimal `json:"width" yaml:"width"`
	Quantity int             `json:"quantity" yaml:"quantity"`
	Label    string          `json:"label,omitempty" yaml:"label,omitempty"` // Optional display name
}

// NewDemandLine builds a DemandLine from a decimal width string.
func NewDemandLine(width string, qty int) (DemandLine, error) {
	w, err := decimal.NewFromString(width)
	if err != nil {
		return DemandLine{}, err
	}
	return DemandLine{Width: w, Quantity: qty}, nil
}

// Configuration describes the stock every core is cut from.
type Configuration struct {
	MasterLength decimal.Decimal `json:"master_length" yaml:"master_length"`
	Kerf         decimal.Decimal `json:"kerf" yaml:"kerf"` // Material consumed by each blade pass
}

// DefaultKerf is the blade width callers fall back to when none is given.
var DefaultKerf = decimal.RequireFromString("0.25")

// NewConfiguration builds a Configuration from decimal strings.
func NewConfiguration(masterLength, kerf string) (Configuration, error) {
	l, err := decimal.NewFromString(masterLength)
	if err != nil {
		return Configuration{}, err
	}
	k := DefaultKerf
	if kerf != "" {
		k, err = decimal.NewFromString(kerf)
		if err != nil {
			return Configuration{}, err
		}
	}
	return Configuration{MasterLength: l, Kerf: k}, nil
}

// TotalQuantity returns the number of pieces requested across all lines.
func TotalQuantity(demands []DemandLine) int {
	total := 0
	for _, d := range demands {
		total += d.Quantity
	}
	return total
}

// PatternPiece is one width and its count within a cutting pattern.
type PatternPiece struct {
	Width decimal.Decimal `json:"width"`
	Count int             `json:"count"`
	Label string          `json:"label,omitempty"`
}

// PlanEntry is one cutting pattern together with the number of cores that use it.
// The length figures are per core, in the same unit as the request.
type PlanEntry struct {
	Pattern      []PatternPiece  `json:"pattern"`
	Count        int             `json:"count"`
	PiecesLength decimal.Decimal `json:"pieces_length"`
	KerfLoss     decimal.Decimal `json:"kerf_loss"`
	Used         decimal.Decimal `json:"used"`
	Waste        decimal.Decimal `json:"waste"`
}

// Pieces returns the number of pieces cut from one core of this entry.
func (e PlanEntry) Pieces() int {
	n := 0
	for _, p := range e.Pattern {
		n += p.Count
	}
	return n
}

// Cuts returns the number of blade passes one core of this entry needs.
func (e PlanEntry) Cuts() int {
	if n := e.Pieces(); n > 1 {
		return n - 1
	}
	return 0
}

// WastePercent returns the per-core waste as a percentage of the master length.
func (e PlanEntry) WastePercent(masterLength decimal.Decimal) decimal.Decimal {
	if masterLength.Sign() <= 0 {
		return decimal.Zero
	}
	return e.Waste.Div(masterLength).Mul(decimal.NewFromInt(100))
}

// Result is the outcome of one optimization.
type Result struct {
	CoresRequired     int             `json:"cores_required"`
	TotalWaste        decimal.Decimal `json:"total_waste"`
	TotalWastePercent decimal.Decimal `json:"total_waste_percent"`
	CuttingPlan       []PlanEntry     `json:"cutting_plan"`
	Scale             int64           `json:"scale,omitempty"` // Power of ten used for the exact integer domain
}

// EmptyResult is the result for a request with nothing to cut.
func EmptyResult() Result {
	return Result{
		TotalWaste:        decimal.Zero,
		TotalWastePercent: decimal.Zero,
		CuttingPlan:       []PlanEntry{},
	}
}

// TotalMaterial returns the stock length consumed by all cores.
func (r Result) TotalMaterial(masterLength decimal.Decimal) decimal.Decimal {
	return masterLength.Mul(decimal.NewFromInt(int64(r.CoresRequired)))
}

// MaterialUsed returns the stock length that ends up in pieces or kerf.
func (r Result) MaterialUsed(masterLength decimal.Decimal) decimal.Decimal {
	return r.TotalMaterial(masterLength).Sub(r.TotalWaste)
}

// TotalKerfLoss returns the material lost to blade passes across all cores.
func (r Result) TotalKerfLoss() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.CuttingPlan {
		total = total.Add(e.KerfLoss.Mul(decimal.NewFromInt(int64(e.Count))))
	}
	return total
}

// Efficiency returns the share of stock not lost as waste, in percent.
func (r Result) Efficiency() decimal.Decimal {
	if r.CoresRequired == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(100).Sub(r.TotalWastePercent)
}

// Core is one physical master core of a plan, numbered from 1.
type Core struct {
	Number int       `json:"number"`
	Entry  PlanEntry `json:"entry"`
}

// Cores expands the plan into individually numbered cores, repeating each
// entry Count times in plan order.
func (r Result) Cores() []Core {
	cores := make([]Core, 0, r.CoresRequired)
	n := 1
	for _, e := range r.CuttingPlan {
		for i := 0; i < e.Count; i++ {
			cores = append(cores, Core{Number: n, Entry: e})
			n++
		}
	}
	return cores
}
