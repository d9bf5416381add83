package engine

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"sync"

	"github.com/amgaina/CoreCutter/internal/model"
)

// Problem is the integer program handed to a Solver: choose non-negative
// integer multiplicities x[j] minimizing sum(x) such that, for every item i,
// sum_j Patterns[j][i]*x[j] >= Demand[i].
type Problem struct {
	Patterns []Pattern
	Demand   []int64

	// Effective-domain magnitudes. Backends use them for bounds only.
	Capacity int64
	Widths   []int64
}

// Solution is a proven-optimal assignment for a Problem.
type Solution struct {
	Multiplicity []int64 // Aligned with Problem.Patterns
	Cores        int64
	Nodes        int // Search nodes explored
}

// Solver finds a proven-optimal Solution or fails with a SolverError.
// Instances are built per solve and never shared.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// SolverFactory builds a fresh Solver.
type SolverFactory func(settings model.SolverSettings) (Solver, error)

var (
	solversMu sync.RWMutex
	solvers   = map[string]SolverFactory{
		model.SolverBranchAndBound: newBranchAndBound,
		model.SolverExhaustive:     newExhaustive,
	}
)

// RegisterSolver makes a backend available under name. Registering an
// existing name replaces it.
func RegisterSolver(name string, f SolverFactory) {
	solversMu.Lock()
	defer solversMu.Unlock()
	solvers[name] = f
}

// SolverNames returns the registered backend names, sorted.
func SolverNames() []string {
	solversMu.RLock()
	defer solversMu.RUnlock()
	names := make([]string, 0, len(solvers))
	for n := range solvers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewSolver builds the backend named in settings.
func NewSolver(settings model.SolverSettings) (Solver, error) {
	solversMu.RLock()
	f, ok := solvers[settings.Solver]
	solversMu.RUnlock()
	if !ok {
		return nil, newError(KindSolverUnavailable, -1, nil, "unknown solver backend %q", settings.Solver)
	}
	s, err := f(settings)
	if err != nil {
		return nil, newError(KindSolverUnavailable, -1, err, "solver backend %q could not be started", settings.Solver)
	}
	if s == nil {
		return nil, newError(KindSolverUnavailable, -1, nil, "solver backend %q returned no instance", settings.Solver)
	}
	return s, nil
}

// Covers reports whether x satisfies every demand row. On failure it returns
// the first uncovered item.
func (p Problem) Covers(x []int64) (bool, int) {
	if len(x) != len(p.Patterns) {
		return false, -1
	}
	for i, q := range p.Demand {
		var got int64
		for j, pat := range p.Patterns {
			got += int64(pat[i]) * x[j]
		}
		if got < q {
			return false, i
		}
	}
	return true, -1
}

// activeItems returns the items with positive demand.
func (p Problem) activeItems() []int {
	var rows []int
	for i, q := range p.Demand {
		if q > 0 {
			rows = append(rows, i)
		}
	}
	return rows
}

// usefulPatterns returns the patterns that cut at least one piece with
// positive demand. The rest only cost a core and never appear in an optimum.
func (p Problem) usefulPatterns() []int {
	var cols []int
	for j, pat := range p.Patterns {
		for i, q := range p.Demand {
			if q > 0 && pat[i] > 0 {
				cols = append(cols, j)
				break
			}
		}
	}
	return cols
}

// checkCoverable verifies that every item with demand appears in some pattern.
func (p Problem) checkCoverable() error {
	for i, q := range p.Demand {
		if q <= 0 {
			continue
		}
		found := false
		for _, pat := range p.Patterns {
			if pat[i] > 0 {
				found = true
				break
			}
		}
		if !found {
			return solverErrorf(nil, "no pattern cuts demand line %d", i+1)
		}
	}
	return nil
}

// lowerBound returns a valid lower bound on the optimal core count: the
// material bound when widths are known, and the per-item bound
// ceil(q / best count per core) otherwise. A material load that does not fit
// in int64 is skipped.
func (p Problem) lowerBound() int64 {
	var lb int64
	for i, q := range p.Demand {
		if q <= 0 {
			continue
		}
		best := 0
		for _, pat := range p.Patterns {
			best = max(best, pat[i])
		}
		if best > 0 {
			lb = max(lb, ceilDiv(q, int64(best)))
		}
	}
	if p.Capacity > 0 && len(p.Widths) == len(p.Demand) {
		var load int64
		for i, q := range p.Demand {
			if q > 0 {
				load = addSat(load, mulSat(q, p.Widths[i]))
			}
		}
		if load < math.MaxInt64 {
			lb = max(lb, ceilDiv(load, p.Capacity))
		}
	}
	return lb
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// mulSat returns a*b for non-negative operands, saturating at math.MaxInt64.
func mulSat(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

// addSat returns a+b for non-negative operands, saturating at math.MaxInt64.
func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// accept checks a backend's answer before it leaves the solver layer.
func accept(p Problem, s Solution) (Solution, error) {
	if ok, item := p.Covers(s.Multiplicity); !ok {
		if item < 0 {
			return Solution{}, solverErrorf(nil, "solution has %d multiplicities for %d patterns", len(s.Multiplicity), len(p.Patterns))
		}
		return Solution{}, solverErrorf(nil, "solution leaves demand line %d uncovered", item+1)
	}
	var total int64
	for _, x := range s.Multiplicity {
		if x < 0 {
			return Solution{}, solverErrorf(nil, "negative multiplicity %d", x)
		}
		total += x
	}
	if total != s.Cores {
		return Solution{}, solverErrorf(nil, "reported %d cores but multiplicities sum to %d", s.Cores, total)
	}
	return s, nil
}

// Solve builds a fresh backend from settings, solves p and validates the answer.
func Solve(ctx context.Context, settings model.SolverSettings, p Problem) (Solution, error) {
	solver, err := NewSolver(settings)
	if err != nil {
		return Solution{}, err
	}
	sol, err := solver.Solve(ctx, p)
	if err != nil {
		if KindOf(err) == "" {
			err = solverErrorf(err, "%s solve failed", solver.Name())
		}
		return Solution{}, err
	}
	sol, err = accept(p, sol)
	if err != nil {
		return Solution{}, fmt.Errorf("%s: %w", solver.Name(), err)
	}
	return sol, nil
}
