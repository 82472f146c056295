package orchestrate

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Controller converts interrupt and termination signals into one monotonic,
// run-scoped cancellation. The signal path does nothing beyond cancelling
// the context; once cancelled, a run can never be un-cancelled.
type Controller struct {
	ctx      context.Context
	cancel   context.CancelFunc
	signals  chan os.Signal
	stopOnce sync.Once
	done     chan struct{}
}

// NewController derives a cancellable context from parent and starts a
// listener for SIGINT and SIGTERM. Call Stop when the run ends to restore
// the previous signal disposition.
func NewController(parent context.Context) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		ctx:     ctx,
		cancel:  cancel,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
	signal.Notify(c.signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-c.signals:
			c.cancel()
		case <-c.done:
		}
	}()
	return c
}

// Context returns the run context observed by the executor and fetchers.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Cancel requests cancellation directly. Idempotent.
func (c *Controller) Cancel() {
	c.cancel()
}

// Cancelled reports whether cancellation has been requested.
func (c *Controller) Cancelled() bool {
	return c.ctx.Err() != nil
}

// Stop detaches the signal listener and restores prior signal handling.
// The cancellation state itself is preserved.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		signal.Stop(c.signals)
		close(c.done)
	})
}
