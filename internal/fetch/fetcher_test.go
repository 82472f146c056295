package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sopti/sopti/internal/model"
)

// scriptedRunner fails a set number of attempts before succeeding.
type scriptedRunner struct {
	failures int
	runs     int
	cleanups int
}

func (r *scriptedRunner) Run(ctx context.Context, track model.Track) error {
	r.runs++
	if r.runs <= r.failures {
		return errors.New("simulated failure")
	}
	return nil
}

func (r *scriptedRunner) Cleanup() {
	r.cleanups++
}

func newTestRetrier(runner Runner) *Retrier {
	r := NewRetrier(runner, nil)
	r.BaseDelay = time.Millisecond
	return r
}

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	runner := &scriptedRunner{}
	r := newTestRetrier(runner)

	if err := r.Fetch(context.Background(), model.NewTrack("u")); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if runner.runs != 1 {
		t.Errorf("runs = %d, want 1", runner.runs)
	}
	if runner.cleanups != 0 {
		t.Errorf("cleanups = %d, want 0 on success", runner.cleanups)
	}
}

func TestFetchRetriesUntilSuccess(t *testing.T) {
	runner := &scriptedRunner{failures: 3}
	r := newTestRetrier(runner)

	if err := r.Fetch(context.Background(), model.NewTrack("u")); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if runner.runs != 4 {
		t.Errorf("runs = %d, want 4", runner.runs)
	}
	if runner.cleanups != 3 {
		t.Errorf("cleanups = %d, want 3 (one per failure)", runner.cleanups)
	}
}

func TestFetchExhaustsAttempts(t *testing.T) {
	runner := &scriptedRunner{failures: 100}
	r := newTestRetrier(runner)

	err := r.Fetch(context.Background(), model.NewTrack("u"))
	if err == nil {
		t.Fatal("Fetch succeeded, want exhaustion error")
	}
	if runner.runs != defaultMaxAttempts {
		t.Errorf("runs = %d, want %d", runner.runs, defaultMaxAttempts)
	}
	if errors.Is(err, ErrCancelled) {
		t.Error("exhaustion reported as cancellation")
	}
}

func TestFetchCancelledBeforeFirstAttempt(t *testing.T) {
	runner := &scriptedRunner{}
	r := newTestRetrier(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Fetch(ctx, model.NewTrack("u"))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Fetch returned %v, want ErrCancelled", err)
	}
	if runner.runs != 0 {
		t.Errorf("runs = %d, want 0 when cancelled up front", runner.runs)
	}
	if runner.cleanups == 0 {
		t.Error("Cleanup not called on cancellation")
	}
}

// cancellingRunner cancels the run context from inside the first attempt.
type cancellingRunner struct {
	cancel context.CancelFunc
	runs   int
}

func (r *cancellingRunner) Run(ctx context.Context, track model.Track) error {
	r.runs++
	r.cancel()
	return errors.New("interrupted")
}

func (r *cancellingRunner) Cleanup() {}

func TestFetchCancelledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &cancellingRunner{cancel: cancel}
	r := newTestRetrier(runner)

	err := r.Fetch(ctx, model.NewTrack("u"))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Fetch returned %v, want ErrCancelled", err)
	}
	if runner.runs != 1 {
		t.Errorf("runs = %d, want 1 (no retry after cancellation)", runner.runs)
	}
}

func TestBackoffDelay(t *testing.T) {
	r := &Retrier{BaseDelay: 2 * time.Second}
	tests := []struct {
		failedAttempt int
		want          time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
	}
	for _, tt := range tests {
		if got := r.backoffDelay(tt.failedAttempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.failedAttempt, got, tt.want)
		}
	}
}

func TestSleepWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleepWithContext(ctx, 5*time.Second)
	if err == nil {
		t.Fatal("sleepWithContext returned nil, want context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("sleepWithContext took %v, want early return", elapsed)
	}
}
