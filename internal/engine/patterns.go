package engine

import (
	"context"
	"strconv"
)

// Pattern is one way to cut a single core: Pattern[i] pieces of demand line i.
type Pattern []int

// Pieces returns the total number of pieces in the pattern.
func (p Pattern) Pieces() int {
	n := 0
	for _, c := range p {
		n += c
	}
	return n
}

// Load returns sum(p[i] * widths[i]).
func (p Pattern) Load(widths []int64) int64 {
	var total int64
	for i, c := range p {
		total += int64(c) * widths[i]
	}
	return total
}

// IsZero reports whether the pattern cuts nothing.
func (p Pattern) IsZero() bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

// Less orders patterns lexicographically, index 0 most significant.
func (p Pattern) Less(o Pattern) bool {
	for i := range p {
		if p[i] != o[i] {
			return p[i] < o[i]
		}
	}
	return false
}

func (p Pattern) key() string {
	var b []byte
	for _, c := range p {
		b = strconv.AppendInt(b, int64(c), 10)
		b = append(b, ',')
	}
	return string(b)
}

// PatternSupplier produces the candidate patterns handed to the solver.
// Capacity and widths are in the effective integer domain.
type PatternSupplier interface {
	Patterns(ctx context.Context, capacity int64, widths []int64) ([]Pattern, error)
}

// DepthFirstEnumerator lists every feasible non-zero pattern.
//
// The search fixes a count for item 0, recurses on item 1 with the remaining
// capacity, and so on; each complete assignment with at least one piece is
// emitted. Output is sorted lexicographically. Cost grows combinatorially
// with the number of widths and with capacity / min(width).
type DepthFirstEnumerator struct{}

// enumCheckInterval is how many search nodes pass between context checks.
const enumCheckInterval = 4096

// Patterns implements PatternSupplier.
func (DepthFirstEnumerator) Patterns(ctx context.Context, capacity int64, widths []int64) ([]Pattern, error) {
	m := len(widths)
	if m == 0 || capacity < 0 {
		return nil, nil
	}

	maxCounts := make([]int64, m)
	for i, w := range widths {
		maxCounts[i] = capacity / w
	}

	if err := ctx.Err(); err != nil {
		return nil, solverErrorf(err, "pattern enumeration interrupted")
	}

	var (
		patterns []Pattern
		current  = make(Pattern, m)
		visited  int
		stopErr  error
		dfs      func(i int, remaining int64) bool
	)
	dfs = func(i int, remaining int64) bool {
		visited++
		if visited%enumCheckInterval == 0 {
			if stopErr = ctx.Err(); stopErr != nil {
				return false
			}
		}
		if i == m {
			if !current.IsZero() {
				patterns = append(patterns, append(Pattern(nil), current...))
			}
			return true
		}
		maxC := min(maxCounts[i], remaining/widths[i])
		for c := int64(0); c <= maxC; c++ {
			current[i] = int(c)
			if !dfs(i+1, remaining-c*widths[i]) {
				return false
			}
		}
		current[i] = 0
		return true
	}

	if !dfs(0, capacity) {
		return nil, solverErrorf(stopErr, "pattern enumeration interrupted after %d patterns", len(patterns))
	}
	return patterns, nil
}
