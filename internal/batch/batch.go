// Package batch runs a unit of work over a list of items with at most Limit
// items in flight.
//
// Items are split into sequential chunks of Limit. Every item of a chunk is
// started at once and the next chunk starts only after the whole chunk has
// settled. A failing, panicking or timed-out item is counted and reported to
// the completion callback; it never cancels its siblings.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// ErrTimeout is reported for an item that exceeded Options.Timeout.
var ErrTimeout = errors.New("task timed out")

// ErrPanic marks an item whose work function panicked.
var ErrPanic = errors.New("task panicked")

// Options configure Run.
type Options struct {
	// Limit is the chunk size and so the maximum number of items in flight.
	// Values below 1 are treated as 1.
	Limit int
	// Timeout bounds each item. The item's context is cancelled at the
	// deadline and the item fails with ErrTimeout, but it keeps its slot until
	// the work function returns. Zero means no deadline.
	Timeout time.Duration
}

// Summary counts outcomes. Succeeded+Failed+NotStarted == Total.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	NotStarted int
}

// Interrupted reports whether cancellation left items unstarted.
func (s Summary) Interrupted() bool { return s.NotStarted > 0 }

// Run calls work for every item and done after each item settles. done calls
// are serialized, so the callback may mutate shared state without locking.
// When ctx is cancelled no further chunk is started; items already in flight
// see the cancelled context and are waited for.
func Run[T any](ctx context.Context, items []T, opts Options, work func(context.Context, T) error, done func(T, error)) Summary {
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}

	s := Summary{Total: len(items)}
	var mu sync.Mutex

	for start := 0; start < len(items); start += limit {
		if ctx.Err() != nil {
			s.NotStarted = len(items) - start
			break
		}
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		for _, item := range items[start:end] {
			g.Go(func() error {
				err := runOne(ctx, opts.Timeout, work, item)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.Failed++
				} else {
					s.Succeeded++
				}
				if done != nil {
					done(item, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return s
}

// runOne executes work for one item, converting a panic into an error. Work
// still running at the deadline is reported as ErrTimeout once it returns.
func runOne[T any](ctx context.Context, timeout time.Duration, work func(context.Context, T) error, item T) error {
	if timeout <= 0 {
		return protect(ctx, work, item)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- protect(tctx, work, item) }()

	select {
	case err := <-result:
		return err
	case <-tctx.Done():
		// The slot stays taken until the work returns, even past its deadline.
		err := <-result
		if ctx.Err() != nil {
			return err
		}
		return errors.Wrapf(ErrTimeout, "after %s", timeout)
	}
}

func protect[T any](ctx context.Context, work func(context.Context, T) error, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Mark(errors.Newf("panic: %v", r), ErrPanic)
		}
	}()
	return work(ctx, item)
}
