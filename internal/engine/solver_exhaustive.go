package engine

import (
	"context"
	"math"
	"strconv"

	"github.com/amgaina/CoreCutter/internal/model"
)

// exhaustive proves optimality by iterative deepening on the core count: for
// K = lower bound, lower bound + 1, ... it searches for K patterns covering the
// demand. Any cover must contain a pattern cutting the first unmet item, so each
// level branches only on those. Failed states are memoized. Pure integer
// arithmetic, no tolerances; meant for small instances and for cross-checking.
type exhaustive struct {
	maxNodes int
}

func newExhaustive(settings model.SolverSettings) (Solver, error) {
	return &exhaustive{maxNodes: settings.MaxNodes}, nil
}

func (e *exhaustive) Name() string { return model.SolverExhaustive }

type coverSearch struct {
	ctx      context.Context
	p        Problem
	cols     []int
	maxPer   []int64 // most pieces of item i any pattern cuts
	failed   map[string]struct{}
	chosen   []int
	nodes    int
	maxNodes int
	err      error
}

func (e *exhaustive) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := p.checkCoverable(); err != nil {
		return Solution{}, err
	}
	sol, found, err := minCover(ctx, p, math.MaxInt64, e.maxNodes)
	if err != nil {
		return Solution{}, err
	}
	if !found {
		return Solution{}, solverErrorf(nil, "no cover found")
	}
	return sol, nil
}

// minCover searches for a cover of p.Demand with the fewest cores, trying
// core counts from the lower bound up to limit. Items with demand <= 0 count
// as met. found is false when no cover uses limit cores or fewer; Nodes is set
// either way.
func minCover(ctx context.Context, p Problem, limit int64, maxNodes int) (Solution, bool, error) {
	var upper int64
	remaining := make([]int64, len(p.Demand))
	for i, q := range p.Demand {
		if q > 0 {
			remaining[i] = q
			upper += q
		}
	}
	if upper == 0 {
		return Solution{Multiplicity: make([]int64, len(p.Patterns))}, true, nil
	}

	s := &coverSearch{
		ctx:      ctx,
		p:        p,
		cols:     p.usefulPatterns(),
		maxPer:   make([]int64, len(p.Demand)),
		maxNodes: maxNodes,
	}
	for _, j := range s.cols {
		for i, c := range p.Patterns[j] {
			s.maxPer[i] = max(s.maxPer[i], int64(c))
		}
	}

	// One core per piece always works, so the loop ends by upper.
	for k := max(p.lowerBound(), 1); k <= min(limit, upper); k++ {
		if err := ctx.Err(); err != nil {
			return Solution{Nodes: s.nodes}, false, solverErrorf(err, "exhaustive search stopped at %d cores", k)
		}
		s.failed = make(map[string]struct{})
		s.chosen = s.chosen[:0]
		if s.cover(remaining, k) {
			x := make([]int64, len(p.Patterns))
			for _, j := range s.chosen {
				x[j]++
			}
			return Solution{Multiplicity: x, Cores: k, Nodes: s.nodes}, true, nil
		}
		if s.err != nil {
			return Solution{Nodes: s.nodes}, false, s.err
		}
	}
	return Solution{Nodes: s.nodes}, false, nil
}

// cover reports whether left cores can satisfy remaining, recording the
// chosen pattern indices on success.
func (s *coverSearch) cover(remaining []int64, left int64) bool {
	first := -1
	for i, r := range remaining {
		if r > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return true
	}
	if left == 0 || s.err != nil {
		return false
	}

	s.nodes++
	if s.nodes%1024 == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = solverErrorf(err, "exhaustive search stopped after %d nodes", s.nodes)
			return false
		}
	}
	if s.maxNodes > 0 && s.nodes > s.maxNodes {
		s.err = solverErrorf(nil, "node budget of %d exhausted before optimality was proven", s.maxNodes)
		return false
	}

	if !s.feasible(remaining, left) {
		return false
	}
	key := stateKey(remaining, left)
	if _, ok := s.failed[key]; ok {
		return false
	}

	// Patterns whose clipped contribution is identical lead to the same state.
	tried := make(map[string]struct{})
	next := make([]int64, len(remaining))
	for _, j := range s.cols {
		pat := s.p.Patterns[j]
		if pat[first] == 0 {
			continue
		}
		for i, r := range remaining {
			next[i] = max(r-int64(pat[i]), 0)
		}
		nk := stateKey(next, left-1)
		if _, ok := tried[nk]; ok {
			continue
		}
		tried[nk] = struct{}{}

		s.chosen = append(s.chosen, j)
		if s.cover(append([]int64(nil), next...), left-1) {
			return true
		}
		s.chosen = s.chosen[:len(s.chosen)-1]
		if s.err != nil {
			return false
		}
	}
	s.failed[key] = struct{}{}
	return false
}

// feasible applies the per-item and material bounds to a partial state.
// Products that do not fit in int64 never prune.
func (s *coverSearch) feasible(remaining []int64, left int64) bool {
	withLoad := s.p.Capacity > 0 && len(s.p.Widths) == len(remaining)
	var load int64
	for i, r := range remaining {
		if r <= 0 {
			continue
		}
		if most := mulSat(left, s.maxPer[i]); most < math.MaxInt64 && r > most {
			return false
		}
		if withLoad {
			load = addSat(load, mulSat(r, s.p.Widths[i]))
		}
	}
	if !withLoad {
		return true
	}
	room := mulSat(left, s.p.Capacity)
	return room == math.MaxInt64 || load <= room
}

func stateKey(remaining []int64, left int64) string {
	b := strconv.AppendInt(nil, left, 10)
	for _, r := range remaining {
		b = append(b, ',')
		b = strconv.AppendInt(b, r, 10)
	}
	return string(b)
}
