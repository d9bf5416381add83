package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enumerate(t *testing.T, capacity int64, widths []int64) []Pattern {
	t.Helper()
	patterns, err := DepthFirstEnumerator{}.Patterns(context.Background(), capacity, widths)
	require.NoError(t, err)
	return patterns
}

func TestPatterns_Completeness(t *testing.T) {
	patterns := enumerate(t, 10, []int64{3, 4})

	expected := []Pattern{{0, 1}, {0, 2}, {1, 0}, {1, 1}, {2, 0}, {2, 1}, {3, 0}}
	assert.Equal(t, expected, patterns)
}

func TestPatterns_FeasibleNonZeroAndUnique(t *testing.T) {
	widths := []int64{223, 313, 148, 403}
	const capacity = 1003

	patterns := enumerate(t, capacity, widths)
	require.NotEmpty(t, patterns)

	seen := make(map[string]bool)
	for _, p := range patterns {
		assert.LessOrEqual(t, p.Load(widths), int64(capacity), "pattern %v overflows", p)
		assert.False(t, p.IsZero(), "zero pattern emitted")
		key := fmt.Sprint([]int(p))
		assert.False(t, seen[key], "duplicate pattern %v", p)
		seen[key] = true
	}
	for i := 1; i < len(patterns); i++ {
		assert.True(t, patterns[i-1].Less(patterns[i]), "patterns not sorted at %d", i)
	}
}

func TestPatterns_MatchesBruteForceCount(t *testing.T) {
	widths := []int64{5, 7, 11}
	const capacity = 40

	count := 0
	for a := 0; a <= 8; a++ {
		for b := 0; b <= 5; b++ {
			for c := 0; c <= 3; c++ {
				if (a|b|c) != 0 && int64(a)*5+int64(b)*7+int64(c)*11 <= capacity {
					count++
				}
			}
		}
	}
	assert.Len(t, enumerate(t, capacity, widths), count)
}

func TestPatterns_SingleItemPatternsPresent(t *testing.T) {
	widths := []int64{7, 9, 10}
	patterns := enumerate(t, 10, widths)

	for i := range widths {
		single := make(Pattern, len(widths))
		single[i] = 1
		assert.Contains(t, patterns, single)
	}
}

func TestPatterns_ItemWiderThanCapacityNeverUsed(t *testing.T) {
	patterns := enumerate(t, 10, []int64{11, 5})
	assert.Equal(t, []Pattern{{0, 1}, {0, 2}}, patterns)
}

func TestPatterns_EmptyInput(t *testing.T) {
	assert.Empty(t, enumerate(t, 10, nil))
}

func TestPatterns_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DepthFirstEnumerator{}.Patterns(ctx, 10, []int64{3, 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSolverError))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPatterns_DeadlineStopsDeepSearch(t *testing.T) {
	// One wide item and many narrow ones: almost all the work sits under the
	// first top-level branch.
	widths := []int64{600, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149, 151, 157, 163}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := DepthFirstEnumerator{}.Patterns(ctx, 1000, widths)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSolverError))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, elapsed, 2*time.Second)
}

func TestPatternHelpers(t *testing.T) {
	p := Pattern{2, 0, 1}
	assert.Equal(t, 3, p.Pieces())
	assert.Equal(t, int64(2*3+1*5), p.Load([]int64{3, 4, 5}))
	assert.False(t, p.IsZero())
	assert.True(t, Pattern{0, 0}.IsZero())
	assert.True(t, Pattern{1, 2}.Less(Pattern{2, 0}))
	assert.False(t, Pattern{1, 2}.Less(Pattern{1, 2}))
}
