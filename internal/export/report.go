// Package export renders optimization results as text, PDF, QR-coded core
// labels and Excel workbooks.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amgaina/CoreCutter/internal/model"
)

// ReportOptions holds the presentation settings shared by all exporters.
type ReportOptions struct {
	Title   string
	Company string
	Units   string // "in", "mm", ... printed after every length
}

// Report is one optimization result prepared for export.
type Report struct {
	ID          uuid.UUID
	GeneratedAt time.Time
	Options     ReportOptions
	Solver      string
	Config      model.Configuration
	Result      model.Result
}

// NewReport stamps a result with a fresh report ID and timestamp.
func NewReport(opts ReportOptions, solver string, cfg model.Configuration, result model.Result) Report {
	if opts.Title == "" {
		opts.Title = "Core Cutting Plan"
	}
	return Report{
		ID:          uuid.New(),
		GeneratedAt: time.Now(),
		Options:     opts,
		Solver:      solver,
		Config:      cfg,
		Result:      result,
	}
}

// length formats a length with two decimals and the report's unit.
func (r Report) length(d decimal.Decimal) string {
	switch r.Options.Units {
	case "":
		return d.StringFixed(2)
	case "in":
		return d.StringFixed(2) + `"`
	default:
		return d.StringFixed(2) + " " + r.Options.Units
	}
}

func percent(d decimal.Decimal, places int32) string {
	return d.StringFixed(places) + "%"
}

// pieceSummary returns e.g. "2 x 45.00 mm, 1 x 36.00 mm" for one plan entry.
func (r Report) pieceSummary(e model.PlanEntry) string {
	parts := make([]string, 0, len(e.Pattern))
	for _, p := range e.Pattern {
		s := fmt.Sprintf("%d x %s", p.Count, r.length(p.Width))
		if p.Label != "" {
			s += " (" + p.Label + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
