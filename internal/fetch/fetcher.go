package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sopti/sopti/internal/model"
)

// Runner performs a single fetch attempt for one track. Cleanup removes
// partially written artifacts for the runner's destination; it is best-effort
// and safe to call after any attempt.
type Runner interface {
	Run(ctx context.Context, track model.Track) error
	Cleanup()
}

// ErrCancelled reports that a fetch stopped because the run was cancelled.
var ErrCancelled = errors.New("fetch cancelled")

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 2 * time.Second
)

// Retrier wraps a Runner with bounded retries and exponential backoff.
// Cancellation is checked before every attempt and observed during attempts
// and backoff sleeps; partial artifacts are cleaned on every failure path.
type Retrier struct {
	Runner      Runner
	MaxAttempts int
	BaseDelay   time.Duration
	Log         *zap.Logger
}

// NewRetrier builds a Retrier with the default attempt budget (5 attempts,
// 2s base delay doubling after every failure).
func NewRetrier(runner Runner, log *zap.Logger) *Retrier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{
		Runner:      runner,
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		Log:         log,
	}
}

// Fetch attempts to download one track, returning nil on the first
// successful attempt. Every failure is absorbed into the retry budget; the
// caller only learns whether the track completed.
func (r *Retrier) Fetch(ctx context.Context, track model.Track) error {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			r.Runner.Cleanup()
			return ErrCancelled
		}

		err := r.Runner.Run(ctx, track)
		if err == nil {
			return nil
		}
		lastErr = err
		r.Runner.Cleanup()

		if ctx.Err() != nil {
			return ErrCancelled
		}
		r.Log.Warn("fetch attempt failed",
			zap.String("id", track.ID),
			zap.String("url", track.URL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < maxAttempts {
			if err := sleepWithContext(ctx, r.backoffDelay(attempt)); err != nil {
				r.Runner.Cleanup()
				return ErrCancelled
			}
		}
	}
	return fmt.Errorf("all %d attempts failed for %s: %w", maxAttempts, track.URL, lastErr)
}

// backoffDelay returns the sleep before the attempt following the given
// failed attempt: base, 2*base, 4*base, ...
func (r *Retrier) backoffDelay(failedAttempt int) time.Duration {
	base := r.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	return base << (failedAttempt - 1)
}

// sleepWithContext sleeps for the given duration, returning early if the
// context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
