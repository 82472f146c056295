package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/gcottom/semaphore"

	"github.com/sopti/sopti/internal/model"
)

// teardownBound limits how long the executor waits for in-flight fetches to
// drain after cancellation. Fetchers terminate their subprocesses within a
// shorter grace period, so hitting this bound means a fetch is stuck.
const teardownBound = 10 * time.Second

type fetchResult struct {
	track model.Track
	err   error
}

// RunBatch drives a sliding window of at most limit concurrent fetches over
// pending. Each completion updates the tallies, records successes in the
// store, and advances the reporter by one unit. No new track is admitted
// into the window once cancellation is observed.
//
// The only returned error is a store failure; fetch failures are absorbed
// into the outcome.
func RunBatch(ctx context.Context, pending []model.Track, fetcher Fetcher, store Store, reporter Reporter, limit int) (Outcome, error) {
	var out Outcome
	if len(pending) == 0 {
		return out, nil
	}
	if limit < 1 {
		limit = 1
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	reporter.Begin(len(pending))
	defer reporter.End()

	limiter := semaphore.NewSemaphore(limit)
	results := make(chan fetchResult, len(pending))
	dispatched := make(chan int, 1)

	go func() {
		n := 0
		for _, track := range pending {
			if ctx.Err() != nil {
				break
			}
			limiter.Acquire()
			if ctx.Err() != nil {
				limiter.Release()
				break
			}
			n++
			go func(t model.Track) {
				defer limiter.Release()
				results <- fetchResult{track: t, err: fetcher.Fetch(ctx, t)}
			}(track)
		}
		dispatched <- n
	}()

	collected := 0
	total := -1
	ctxDone := ctx.Done()
	var deadline <-chan time.Time

	for total < 0 || collected < total {
		select {
		case n := <-dispatched:
			total = n
		case res := <-results:
			collected++
			if res.err == nil {
				if err := store.Add(res.track); err != nil {
					return out, fmt.Errorf("recording completion for %s: %w", res.track.ID, err)
				}
				out.Succeeded++
			} else {
				out.Failed++
			}
			reporter.Advance(res.track, res.err == nil)
		case <-ctxDone:
			// Arm the teardown deadline once; keep draining completions.
			ctxDone = nil
			deadline = time.After(teardownBound)
		case <-deadline:
			out.Cancelled = true
			if total > 0 {
				out.Failed += total - collected
			}
			return out, nil
		}
	}

	out.Cancelled = ctx.Err() != nil
	return out, nil
}
