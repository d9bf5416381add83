package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/amgaina/CoreCutter/internal/model"
)

const (
	// integralityTol is how far an LP value may sit from an integer and still
	// count as integral.
	integralityTol = 1e-6

	// simplexTol is the reduced-cost tolerance handed to the simplex.
	simplexTol = 1e-10

	// artificialTol is the largest artificial value an LP optimum may keep.
	artificialTol = 1e-7

	// penaltyAttempts bounds how often the artificial cost is raised.
	penaltyAttempts = 3

	// seedPieceLimit is the most pieces the best-fit seed places one by one.
	seedPieceLimit = 5000
)

// branchAndBound solves the pattern-selection program with LP relaxations
// (gonum's simplex) and depth-first branching on fractional multiplicities.
// The objective is a sum of integers, so a node whose relaxation is at least
// incumbent-1+eps can be pruned. A best-fit decreasing packing seeds the
// incumbent, and nodes the simplex cannot settle are searched exactly.
type branchAndBound struct {
	maxNodes int
}

func newBranchAndBound(settings model.SolverSettings) (Solver, error) {
	return &branchAndBound{maxNodes: settings.MaxNodes}, nil
}

func (b *branchAndBound) Name() string { return model.SolverBranchAndBound }

// bbNode carries the branching bounds of one subproblem, indexed by column.
// hi < 0 means unbounded above.
type bbNode struct {
	lo []int64
	hi []int64
}

func (n bbNode) child(k int, lo, hi int64) bbNode {
	c := bbNode{
		lo: append([]int64(nil), n.lo...),
		hi: append([]int64(nil), n.hi...),
	}
	if lo >= 0 {
		c.lo[k] = lo
	}
	if hi >= 0 {
		c.hi[k] = hi
	}
	return c
}

func (b *branchAndBound) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := p.checkCoverable(); err != nil {
		return Solution{}, err
	}
	rows := p.activeItems()
	cols := p.usefulPatterns()
	if len(rows) == 0 {
		return Solution{Multiplicity: make([]int64, len(p.Patterns))}, nil
	}

	var (
		best      []int64 // incumbent, indexed by column
		bestCores = int64(math.MaxInt64)
		nodes     int
	)
	consider := func(x []int64) {
		var total int64
		for _, v := range x {
			total += v
		}
		if total >= bestCores {
			return
		}
		if ok, _ := p.Covers(expand(len(p.Patterns), cols, x)); ok {
			best = x
			bestCores = total
		}
	}

	if seed := bestFit(p, cols); seed != nil {
		consider(seed)
	}

	floor := p.lowerBound()
	root := bbNode{lo: make([]int64, len(cols)), hi: make([]int64, len(cols))}
	for k := range root.hi {
		root.hi[k] = -1
	}
	stack := []bbNode{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{}, solverErrorf(err, "branch and bound stopped after %d nodes", nodes)
		}
		if bestCores <= floor {
			break
		}
		if b.maxNodes > 0 && nodes >= b.maxNodes {
			return Solution{}, solverErrorf(nil, "node budget of %d exhausted before optimality was proven", b.maxNodes)
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, err := relax(p, rows, cols, n)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			// The simplex could not settle this node; search it exactly.
			budget := b.maxNodes
			if budget > 0 {
				budget = max(budget-nodes, 1)
			}
			x, used, err := searchNode(ctx, p, cols, n, bestCores, budget)
			nodes += used
			if err != nil {
				return Solution{}, err
			}
			if x != nil {
				consider(x)
			}
			continue
		}

		bound := int64(math.Ceil(obj - integralityTol))
		if nodes == 1 {
			floor = max(floor, bound)
		}
		if bound >= bestCores {
			continue
		}

		// Rounding every multiplicity up keeps all demand rows satisfied.
		up := make([]int64, len(cols))
		for k, v := range x {
			up[k] = int64(math.Ceil(v - integralityTol))
		}
		consider(up)

		branch, value := -1, 0.0
		worst := integralityTol
		for k, v := range x {
			frac := v - math.Floor(v)
			if d := math.Min(frac, 1-frac); d > worst {
				branch, value, worst = k, v, d
			}
		}
		if branch < 0 {
			rounded := make([]int64, len(cols))
			for k, v := range x {
				rounded[k] = int64(math.Round(v))
			}
			consider(rounded)
			continue
		}

		// Push the down branch first so the up branch, which tends to reach
		// feasible integer points sooner, is explored first.
		stack = append(stack,
			n.child(branch, -1, int64(math.Floor(value))),
			n.child(branch, int64(math.Ceil(value)), -1),
		)
	}

	if best == nil {
		return Solution{}, solverErrorf(nil, "no integer solution found in %d nodes", nodes)
	}
	return Solution{
		Multiplicity: expand(len(p.Patterns), cols, best),
		Cores:        bestCores,
		Nodes:        nodes,
	}, nil
}

// relax solves the LP relaxation of node n. The bounds are substituted out:
// with x = lo + x' and u = hi - lo the program handed to the simplex is
//
//	minimize   sum x' + M sum a
//	subject to sum_k P[k][i] x'_k - s_i + a_i = r_i   for every item i with r_i > 0
//	           x'_k + t_k = u_k                       for every capped column
//	           x', s, a, t >= 0
//
// where r is the demand left after the lower bounds. The artificial columns a
// and the cap slacks t form an identity starting basis, so the simplex never
// has to search for one. M is raised until the artificials leave the optimum;
// a node where they cannot is reported as an error for the caller to settle
// exactly.
func relax(p Problem, rows, cols []int, n bbNode) (float64, []float64, error) {
	x := make([]float64, len(cols))
	var base float64
	for k := range cols {
		if n.hi[k] >= 0 && n.hi[k] < n.lo[k] {
			return 0, nil, lp.ErrInfeasible
		}
		x[k] = float64(n.lo[k])
		base += x[k]
	}

	var (
		live  []int
		resid []float64
		total float64
	)
	for _, i := range rows {
		r := float64(p.Demand[i])
		for k, j := range cols {
			r -= float64(p.Patterns[j][i]) * x[k]
		}
		if r > 0 {
			live = append(live, i)
			resid = append(resid, r)
			total += r
		}
	}
	if len(live) == 0 {
		return base, x, nil
	}

	var free, capped []int
	for k, j := range cols {
		if n.hi[k] >= 0 && n.hi[k] == n.lo[k] {
			continue
		}
		for _, i := range live {
			if p.Patterns[j][i] > 0 {
				free = append(free, k)
				if n.hi[k] >= 0 {
					capped = append(capped, len(free)-1)
				}
				break
			}
		}
	}

	// Every dual is at most 1 when each live row has an uncapped column.
	bounded := true
	for r, i := range live {
		var reach float64
		open := false
		for _, k := range free {
			v := float64(p.Patterns[cols[k]][i])
			if v == 0 {
				continue
			}
			if n.hi[k] < 0 {
				open = true
				break
			}
			reach += v * float64(n.hi[k]-n.lo[k])
		}
		if open {
			continue
		}
		bounded = false
		if reach < resid[r] {
			return 0, nil, lp.ErrInfeasible
		}
	}

	nf, nl, nc := len(free), len(live), len(capped)
	nRows := nl + nc
	nVars := nf + 2*nl + nc
	a := mat.NewDense(nRows, nVars, nil)
	bv := make([]float64, nRows)
	basis := make([]int, 0, nRows)
	for r, i := range live {
		for f, k := range free {
			if v := p.Patterns[cols[k]][i]; v != 0 {
				a.Set(r, f, float64(v))
			}
		}
		a.Set(r, nf+r, -1)
		a.Set(r, nf+nl+r, 1)
		bv[r] = resid[r]
		basis = append(basis, nf+nl+r)
	}
	for c, f := range capped {
		row := nl + c
		k := free[f]
		a.Set(row, f, 1)
		a.Set(row, nf+2*nl+c, 1)
		bv[row] = float64(n.hi[k] - n.lo[k])
		basis = append(basis, nf+2*nl+c)
	}

	penalty := 2.0
	if !bounded {
		penalty = total + 1
	}
	cost := make([]float64, nVars)
	for f := range free {
		cost[f] = 1
	}
	for attempt := 0; attempt < penaltyAttempts; attempt++ {
		for r := range live {
			cost[nf+nl+r] = penalty
		}
		_, sol, err := lp.Simplex(cost, a, bv, simplexTol, basis)
		if err != nil {
			return 0, nil, err
		}
		var stuck float64
		for r := range live {
			stuck = math.Max(stuck, sol[nf+nl+r])
		}
		if stuck <= artificialTol {
			obj := base
			for f, k := range free {
				x[k] += sol[f]
				obj += sol[f]
			}
			return obj, x, nil
		}
		penalty *= 1000
	}
	return 0, nil, fmt.Errorf("artificial demand left in the relaxation after %d penalty rounds", penaltyAttempts)
}

// searchNode finds the fewest-core cover inside node n with its upper bounds
// dropped, counting the committed lower bounds. That region contains the node,
// so the cover is feasible, and when none beats incumbent neither does the
// node. It returns nil when nothing beats incumbent.
func searchNode(ctx context.Context, p Problem, cols []int, n bbNode, incumbent int64, maxNodes int) ([]int64, int, error) {
	residual := append([]int64(nil), p.Demand...)
	var committed int64
	for k, j := range cols {
		if n.lo[k] == 0 {
			continue
		}
		committed += n.lo[k]
		for i := range residual {
			residual[i] -= int64(p.Patterns[j][i]) * n.lo[k]
		}
	}

	limit := int64(math.MaxInt64)
	if incumbent < math.MaxInt64 {
		limit = incumbent - 1 - committed
		if limit < 0 {
			return nil, 0, nil
		}
	}

	sub := Problem{Patterns: p.Patterns, Demand: residual, Capacity: p.Capacity, Widths: p.Widths}
	sol, found, err := minCover(ctx, sub, limit, maxNodes)
	if err != nil || !found {
		return nil, sol.Nodes, err
	}
	x := make([]int64, len(cols))
	for k, j := range cols {
		x[k] = n.lo[k] + sol.Multiplicity[j]
	}
	return x, sol.Nodes, nil
}

// bestFit packs the pieces widest first, each into the open core with the
// least room that still takes it, and maps the packed cores onto columns. It
// returns nil when widths are unknown, the demand is too large, or a packed
// core is not among the columns.
func bestFit(p Problem, cols []int) []int64 {
	if p.Capacity <= 0 || len(p.Widths) != len(p.Demand) {
		return nil
	}
	var pieces int64
	order := make([]int, 0, len(p.Demand))
	for i, q := range p.Demand {
		if q > 0 {
			pieces = addSat(pieces, q)
			order = append(order, i)
		}
	}
	if pieces > seedPieceLimit {
		return nil
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Widths[order[a]] > p.Widths[order[b]]
	})

	type core struct {
		room   int64
		counts Pattern
	}
	var cores []core
	for _, i := range order {
		w := p.Widths[i]
		if w > p.Capacity {
			return nil
		}
		for n := int64(0); n < p.Demand[i]; n++ {
			best := -1
			for c := range cores {
				if cores[c].room >= w && (best < 0 || cores[c].room < cores[best].room) {
					best = c
				}
			}
			if best < 0 {
				cores = append(cores, core{room: p.Capacity, counts: make(Pattern, len(p.Demand))})
				best = len(cores) - 1
			}
			cores[best].room -= w
			cores[best].counts[i]++
		}
	}

	index := make(map[string]int, len(cols))
	for k, j := range cols {
		index[p.Patterns[j].key()] = k
	}
	x := make([]int64, len(cols))
	for _, c := range cores {
		k, ok := index[c.counts.key()]
		if !ok {
			return nil
		}
		x[k]++
	}
	return x
}

// expand maps column-indexed multiplicities back onto the full pattern list.
func expand(total int, cols []int, x []int64) []int64 {
	full := make([]int64, total)
	for k, j := range cols {
		full[j] = x[k]
	}
	return full
}
