// Package dispatch implements the HTTP client dispatch engine: Agent,
// request execution, and the Options/ResponseStart/Handler data model a
// host uses to drive requests through it.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/badu/dispatch/control"
	"github.com/badu/dispatch/errs"
	"github.com/badu/dispatch/internal/applog"
	"github.com/badu/dispatch/internal/wiretransport"
)

// Agent owns the transport client and the active-request registry; it is
// the entry point for Dispatch and implements the close/destroy lifecycle:
// Close drains in-flight requests, Destroy cancels them.
type Agent struct {
	client wiretransport.Client
	log    *slog.Logger
	clock  clockwork.Clock

	active sync.Map // string request id -> *control.Controller
	count  atomic.Int64
	wg     sync.WaitGroup

	closed    atomic.Bool
	destroyed atomic.Bool

	// group supervises every in-flight request task; its context is
	// cancelled wholesale by Destroy, never by Close.
	group      *errgroup.Group
	groupCtx   context.Context
	groupClose context.CancelFunc
}

// Option configures optional Agent behavior at construction.
type Option func(*Agent)

// WithLogger overrides the default tint-colorized logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// WithClock overrides the agent's clock, used for headers/body timeouts.
// Tests inject a clockwork.FakeClock here to avoid sleeping real time.
func WithClock(c clockwork.Clock) Option {
	return func(a *Agent) { a.clock = c }
}

// New constructs an Agent from a transport Config. A builder failure is
// reported as errs.InvalidArgument.
func New(cfg wiretransport.Config, opts ...Option) (*Agent, error) {
	cl, err := wiretransport.New(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)

	a := &Agent{
		client:     cl,
		log:        applog.Default(slog.LevelInfo),
		clock:      clockwork.NewRealClock(),
		group:      group,
		groupCtx:   groupCtx,
		groupClose: cancel,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// ActiveCount returns the number of in-flight requests.
func (a *Agent) ActiveCount() int64 { return a.count.Load() }

// IsClosed is a state snapshot.
func (a *Agent) IsClosed() bool { return a.closed.Load() }

// IsDestroyed is a state snapshot.
func (a *Agent) IsDestroyed() bool { return a.destroyed.Load() }

// Dispatch registers a controller for the request, spawns its task, and
// returns the controller. It fails fast only when the agent is already
// closed or destroyed or the options are malformed; every other failure is
// asynchronous and arrives via the Handler.
func (a *Agent) Dispatch(opts Options, h Handler) (*control.Controller, error) {
	if a.destroyed.Load() {
		return nil, errs.ClientDestroyed()
	}
	if a.closed.Load() {
		return nil, errs.ClientClosed()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	id := opts.RequestID
	if id == "" {
		id = xid.New().String()
		opts.RequestID = id
	}

	ctrl, ctx := control.New(a.groupCtx, id)
	a.active.Store(id, ctrl)
	a.count.Add(1)
	a.wg.Add(1)

	a.log.Debug("dispatch", "request_id", id, "method", string(opts.Method), "path", opts.Path)

	a.group.Go(func() error {
		defer a.finishRequest(id)
		runRequest(ctx, a, opts, ctrl, h)
		return nil
	})

	return ctrl, nil
}

func (a *Agent) finishRequest(id string) {
	a.active.Delete(id)
	a.count.Add(-1)
	a.wg.Done()
}

// Close marks the agent closed: no new dispatch may succeed afterward, but
// in-flight requests run to completion. Close does not cancel them.
func (a *Agent) Close() error {
	a.closed.Store(true)
	a.log.Debug("agent close: awaiting quiescence")
	a.wg.Wait()
	return nil
}

// Destroy marks the agent both destroyed and closed, raises cancellation on
// every in-flight request, and waits for all of them to finish. reason is
// informational; the per-request error observed by each Handler is always
// RequestAborted.
func (a *Agent) Destroy(reason error) error {
	a.destroyed.Store(true)
	a.closed.Store(true)

	if reason != nil {
		a.log.Debug("agent destroy", "reason", reason.Error())
	}

	var result *multierror.Error
	a.active.Range(func(_, v any) bool {
		ctrl := v.(*control.Controller)
		ctrl.Abort()
		return true
	})
	a.groupClose()

	a.wg.Wait()
	if err := a.group.Wait(); err != nil {
		result = multierror.Append(result, fmt.Errorf("dispatch: task supervision: %w", err))
	}
	a.client.CloseIdleConnections()

	return result.ErrorOrNil()
}
