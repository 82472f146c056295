package orchestrate

import (
	"context"

	"github.com/sopti/sopti/internal/model"
)

// Store is the idempotency ledger contract. Implementations must allow
// concurrent Add calls from completion callbacks; re-adding an existing id
// is a no-op. Store errors are fatal to the run, never swallowed.
type Store interface {
	Exists(id string) (bool, error)
	Add(track model.Track) error
}

// Fetcher downloads one track, absorbing its own retries. A nil return means
// the track completed; any error counts as a failure for this pass.
type Fetcher interface {
	Fetch(ctx context.Context, track model.Track) error
}

// Reporter receives display-only progress events. Implementations must not
// influence scheduling or outcomes.
type Reporter interface {
	Begin(total int)
	Advance(track model.Track, ok bool)
	End()
}

// NopReporter discards all progress events.
type NopReporter struct{}

func (NopReporter) Begin(int)                 {}
func (NopReporter) Advance(model.Track, bool) {}
func (NopReporter) End()                      {}

// Outcome summarizes one executor pass. Only the counts and the final store
// state are contractually meaningful; completion order is not.
type Outcome struct {
	Succeeded int
	Failed    int
	Cancelled bool
}

// State is the terminal state of a convergence run.
type State string

const (
	StateConverged State = "converged"
	StateCancelled State = "cancelled"
	StateStalled   State = "stalled"
	StatePassLimit State = "pass_limit"
)

// Tally is the final report of a convergence run.
type Tally struct {
	State     State
	Total     int
	Completed int
	Succeeded int
	Failed    int
}
