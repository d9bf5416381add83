// Package engine solves the one-dimensional cutting-stock problem exactly.
//
// A request is scaled to exact integers (Normalize), every feasible single-core
// pattern is enumerated (PatternSupplier), an integer program picks pattern
// multiplicities minimizing the number of cores (Solver), and the answer is
// mapped back to real units with waste accounting (Assemble).
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/amgaina/CoreCutter/internal/model"
)

// Optimizer runs the full pipeline. It holds no per-request state and is safe
// for concurrent use.
type Optimizer struct {
	Settings model.SolverSettings
	Patterns PatternSupplier
}

// New returns an Optimizer using exhaustive depth-first pattern enumeration.
func New(settings model.SolverSettings) *Optimizer {
	return &Optimizer{
		Settings: settings.WithDefaults(),
		Patterns: DepthFirstEnumerator{},
	}
}

// Stats describes how one optimization went.
type Stats struct {
	Solver   string        `json:"solver"`
	Scale    int64         `json:"scale"`
	Patterns int           `json:"patterns"`
	Nodes    int           `json:"nodes"`
	Duration time.Duration `json:"duration"`
}

// Optimize computes the minimum-core cutting plan for demands.
func (o *Optimizer) Optimize(ctx context.Context, cfg model.Configuration, demands []model.DemandLine) (model.Result, error) {
	result, _, err := o.OptimizeWithStats(ctx, cfg, demands)
	return result, err
}

// OptimizeWithStats is Optimize plus run statistics. On failure no partial
// result is returned.
func (o *Optimizer) OptimizeWithStats(ctx context.Context, cfg model.Configuration, demands []model.DemandLine) (model.Result, Stats, error) {
	start := time.Now()
	settings := o.Settings.WithDefaults()
	stats := Stats{Solver: settings.Solver}
	logger := zerolog.Ctx(ctx).With().Str("component", "engine").Logger()

	result, err := o.run(ctx, settings, cfg, demands, &stats)
	stats.Duration = time.Since(start)
	if err != nil {
		ev := logger.Debug()
		if IsInternalError(err) {
			ev = logger.Error()
		}
		ev.Err(err).
			Str("kind", string(KindOf(err))).
			Str("master_length", cfg.MasterLength.String()).
			Str("kerf", cfg.Kerf.String()).
			Int("demand_lines", len(demands)).
			Msg("Optimization failed")
		return model.Result{}, stats, err
	}

	logger.Debug().
		Int("cores", result.CoresRequired).
		Str("waste", result.TotalWaste.String()).
		Int("patterns", stats.Patterns).
		Int("nodes", stats.Nodes).
		Dur("duration", stats.Duration).
		Msg("Optimization complete")
	return result, stats, nil
}

func (o *Optimizer) run(ctx context.Context, settings model.SolverSettings, cfg model.Configuration, demands []model.DemandLine, stats *Stats) (model.Result, error) {
	s, err := Normalize(cfg, demands)
	if err != nil {
		return model.Result{}, err
	}
	if s.Empty() {
		return model.EmptyResult(), nil
	}
	stats.Scale = s.Scale

	if settings.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.TimeLimit)
		defer cancel()
	}

	supplier := o.Patterns
	if supplier == nil {
		supplier = DepthFirstEnumerator{}
	}
	patterns, err := supplier.Patterns(ctx, s.Capacity, s.Widths)
	if err != nil {
		if KindOf(err) == "" {
			err = solverErrorf(err, "pattern supply failed")
		}
		return model.Result{}, err
	}
	stats.Patterns = len(patterns)
	zerolog.Ctx(ctx).Debug().
		Int64("scale", s.Scale).
		Int64("capacity", s.Capacity).
		Int("patterns", len(patterns)).
		Msg("Patterns enumerated")

	problem := Problem{
		Patterns: patterns,
		Demand:   s.Demand,
		Capacity: s.Capacity,
		Widths:   s.Widths,
	}
	sol, err := Solve(ctx, settings, problem)
	if err != nil {
		return model.Result{}, err
	}
	stats.Nodes = sol.Nodes

	return Assemble(s, Uses(patterns, sol.Multiplicity))
}
