package batch

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestRun_NeverExceedsLimit(t *testing.T) {
	for _, tc := range []struct{ n, limit int }{{10, 3}, {7, 7}, {25, 4}, {5, 1}} {
		var inFlight, peak atomic.Int32
		work := func(ctx context.Context, i int) error {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(time.Duration(1+i%3) * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}

		s := Run(context.Background(), ints(tc.n), Options{Limit: tc.limit}, work, nil)

		assert.Equal(t, Summary{Total: tc.n, Succeeded: tc.n}, s)
		assert.LessOrEqual(t, int(peak.Load()), tc.limit, "n=%d limit=%d", tc.n, tc.limit)
		assert.Equal(t, int32(0), inFlight.Load())
	}
}

func TestRun_ChunkSettlesBeforeNextStarts(t *testing.T) {
	const limit = 3
	var mu sync.Mutex
	finished := map[int]bool{}
	var violations []int

	work := func(ctx context.Context, i int) error {
		mu.Lock()
		chunk := i / limit
		for j := 0; j < chunk*limit; j++ {
			if !finished[j] {
				violations = append(violations, i)
				break
			}
		}
		mu.Unlock()

		time.Sleep(time.Duration(limit-i%limit) * time.Millisecond)

		mu.Lock()
		finished[i] = true
		mu.Unlock()
		return nil
	}

	Run(context.Background(), ints(10), Options{Limit: limit}, work, nil)
	assert.Empty(t, violations)
}

func TestRun_FailureIsIsolated(t *testing.T) {
	boom := errors.New("boom")
	var got []int
	done := func(i int, err error) {
		if err == nil {
			got = append(got, i)
		} else {
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, 4, i)
		}
	}

	s := Run(context.Background(), ints(9), Options{Limit: 2}, func(ctx context.Context, i int) error {
		if i == 4 {
			return boom
		}
		return nil
	}, done)

	assert.Equal(t, Summary{Total: 9, Succeeded: 8, Failed: 1}, s)
	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8}, got)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	var panicked error
	s := Run(context.Background(), []string{"ok", "bad", "ok2"}, Options{Limit: 3},
		func(ctx context.Context, name string) error {
			if name == "bad" {
				panic("corrupt input")
			}
			return nil
		},
		func(name string, err error) {
			if name == "bad" {
				panicked = err
			}
		})

	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	require.Error(t, panicked)
	assert.True(t, errors.Is(panicked, ErrPanic))
	assert.Contains(t, panicked.Error(), "corrupt input")
}

func TestRun_TimeoutIsFailure(t *testing.T) {
	var errs sync.Map
	s := Run(context.Background(), ints(3), Options{Limit: 3, Timeout: 30 * time.Millisecond},
		func(ctx context.Context, i int) error {
			if i == 1 {
				time.Sleep(150 * time.Millisecond) // ignores ctx, like a hung native call
			}
			return nil
		},
		func(i int, err error) {
			if err != nil {
				errs.Store(i, err)
			}
		})

	assert.Equal(t, Summary{Total: 3, Succeeded: 2, Failed: 1}, s)
	v, ok := errs.Load(1)
	require.True(t, ok)
	assert.ErrorIs(t, v.(error), ErrTimeout)
}

func TestRun_TimedOutWorkKeepsItsSlot(t *testing.T) {
	var inFlight, peak atomic.Int32
	work := func(ctx context.Context, i int) error {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(60 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	s := Run(context.Background(), ints(6), Options{Limit: 2, Timeout: 10 * time.Millisecond}, work, nil)

	assert.Equal(t, Summary{Total: 6, Failed: 6}, s)
	assert.Equal(t, int32(2), peak.Load())
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestRun_CancelStopsLaterChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	s := Run(ctx, ints(10), Options{Limit: 3}, func(ctx context.Context, i int) error {
		started.Add(1)
		if i == 0 {
			cancel()
		}
		return nil
	}, nil)

	assert.Equal(t, int32(3), started.Load(), "only the first chunk runs")
	assert.Equal(t, Summary{Total: 10, Succeeded: 3, NotStarted: 7}, s)
	assert.True(t, s.Interrupted())
}

func TestRun_EmptyAndZeroLimit(t *testing.T) {
	s := Run(context.Background(), nil, Options{}, func(context.Context, int) error { return nil }, nil)
	assert.Equal(t, Summary{}, s)

	s = Run(context.Background(), ints(3), Options{Limit: 0}, func(context.Context, int) error { return nil }, nil)
	assert.Equal(t, Summary{Total: 3, Succeeded: 3}, s)
}
