// Package control implements the per-request RequestController: a
// cancellation signal plus a race-free pause/resume latch.
package control

import (
	"context"
	"sync"
)

// Controller is the per-request control surface handed back from dispatch.
// It is created before the task starts and may be observed by either side
// (host or task) any number of times; every setter is idempotent.
type Controller struct {
	id string

	cancel context.CancelFunc
	ctx    context.Context

	mu      sync.Mutex
	paused  bool
	version uint64
	waiters chan struct{} // closed and replaced every time the state transitions to not-paused
}

// New builds a Controller bound to ctx's cancellation. Cancelling ctx from
// the caller raises the controller's cancellation signal.
func New(ctx context.Context, id string) (*Controller, context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	return &Controller{
		id:      id,
		cancel:  cancel,
		ctx:     cctx,
		waiters: make(chan struct{}),
	}, cctx
}

// ID returns the request correlation id this controller was created with.
func (c *Controller) ID() string { return c.id }

// Abort raises the cancellation signal. Idempotent.
func (c *Controller) Abort() { c.cancel() }

// IsCancelled reports whether Abort has been called, or the bound context
// was cancelled for any other reason (e.g. Agent.Destroy).
func (c *Controller) IsCancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Done returns the channel closed when the controller is cancelled, for use
// in select statements alongside timeouts and chunk reads.
func (c *Controller) Done() <-chan struct{} { return c.ctx.Done() }

// Pause sets the pause latch. Idempotent.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.version++
	c.mu.Unlock()
}

// Resume clears the pause latch and wakes any waiter. Idempotent.
func (c *Controller) Resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.version++
	old := c.waiters
	c.waiters = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// IsPaused is a snapshot reader.
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// WaitWhilePaused returns immediately if not paused. Otherwise it suspends
// until Resume is observed, or the controller is cancelled.
//
// The check-then-wait step is race-free: the waiter channel is captured
// under the same lock as the paused flag, so a Resume that fires between
// the check and the wait still closes the exact channel this call is
// waiting on — there is no gap in which a wakeup can be lost.
func (c *Controller) WaitWhilePaused(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.paused {
			c.mu.Unlock()
			return nil
		}
		wake := c.waiters
		c.mu.Unlock()

		select {
		case <-wake:
			// loop: re-check, since a subsequent Pause could have fired
			// before we wake.
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}
