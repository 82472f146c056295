package orchestrate

import (
	"context"

	"go.uber.org/zap"

	"github.com/sopti/sopti/internal/model"
)

// maxPasses bounds how often the loop re-sweeps tracks that failed in an
// earlier pass. A track transiently unavailable while one worker burned its
// own retry budget can still succeed in a later pass.
const maxPasses = 3

// Loop is the multi-pass convergence driver: filter pending tracks through
// the store, run one executor pass, and repeat until everything is done, the
// run is cancelled, or a pass makes no net progress.
type Loop struct {
	Store    Store
	Fetcher  Fetcher
	Reporter Reporter
	Limit    int
	Log      *zap.Logger
}

// Run sweeps tracks until a terminal state is reached and reports the final
// tally. Partial completion is a normal result, not an error; only store
// failures propagate.
func (l *Loop) Run(ctx context.Context, tracks []model.Track) (Tally, error) {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}

	tally := Tally{State: StatePassLimit, Total: len(tracks)}

	previous, err := l.completedCount(tracks)
	if err != nil {
		return tally, err
	}

	for pass := 1; pass <= maxPasses; pass++ {
		pending, err := l.pendingTracks(tracks)
		if err != nil {
			return tally, err
		}
		if len(pending) == 0 {
			tally.State = StateConverged
			break
		}

		log.Info("starting pass",
			zap.Int("pass", pass),
			zap.Int("max_passes", maxPasses),
			zap.Int("pending", len(pending)),
		)

		outcome, err := RunBatch(ctx, pending, l.Fetcher, l.Store, l.Reporter, l.Limit)
		tally.Succeeded += outcome.Succeeded
		tally.Failed += outcome.Failed
		if err != nil {
			return tally, err
		}
		if outcome.Cancelled {
			tally.State = StateCancelled
			break
		}

		now, err := l.completedCount(tracks)
		if err != nil {
			return tally, err
		}
		if now == previous {
			log.Info("no further progress detected, stopping", zap.Int("pass", pass))
			tally.State = StateStalled
			break
		}
		previous = now

		if pass == maxPasses {
			break
		}
	}

	completed, err := l.completedCount(tracks)
	if err != nil {
		return tally, err
	}
	tally.Completed = completed
	if tally.State == StatePassLimit && tally.Completed == tally.Total {
		tally.State = StateConverged
	}

	log.Info("run finished",
		zap.String("state", string(tally.State)),
		zap.Int("completed", tally.Completed),
		zap.Int("total", tally.Total),
		zap.Int("succeeded", tally.Succeeded),
		zap.Int("failed", tally.Failed),
	)
	return tally, nil
}

func (l *Loop) pendingTracks(tracks []model.Track) ([]model.Track, error) {
	var pending []model.Track
	for _, t := range tracks {
		done, err := l.Store.Exists(t.ID)
		if err != nil {
			return nil, err
		}
		if !done {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

func (l *Loop) completedCount(tracks []model.Track) (int, error) {
	count := 0
	for _, t := range tracks {
		done, err := l.Store.Exists(t.ID)
		if err != nil {
			return 0, err
		}
		if done {
			count++
		}
	}
	return count, nil
}
