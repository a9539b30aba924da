package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/badu/dispatch/control"
	"github.com/badu/dispatch/errs"
	"github.com/badu/dispatch/internal/wiretransport"
)

// runRequest drives one dispatched request through the headers phase and
// the body phase, emitting exactly one terminal event to h. It never
// panics on recoverable conditions; every failure path ends in exactly one
// OnResponseError call.
func runRequest(ctx context.Context, a *Agent, opts Options, ctrl *control.Controller, h Handler) {
	// reqCtx bounds the underlying transport call for the life of this
	// request task. Cancelling it (via the deferred reqCancel, which fires
	// the instant this function returns) abandons any pending connect or
	// blocked body read of the built-in net/http-backed client, so the
	// background goroutines below do not outlive the task.
	reqCtx, reqCancel := context.WithCancel(ctx)
	defer reqCancel()

	var body io.ReadCloser
	var contentLength int64
	if opts.Body != nil {
		body, contentLength = opts.Body.open()
	}

	req := &wiretransport.Request{
		Method:        string(opts.Method),
		URL:           opts.url(),
		Header:        opts.Header,
		Body:          body,
		ContentLength: contentLength,
	}

	resp, terminal := sendHeaders(reqCtx, a, req, ctrl, opts.headersTimeoutMS())
	if terminal != nil {
		h.OnResponseError(terminal)
		return
	}

	h.OnResponseStart(ResponseStart{
		StatusCode:    resp.StatusCode,
		StatusMessage: canonicalReason(resp.Status),
		Header:        resp.Header,
	})

	streamBody(reqCtx, a, opts, ctrl, resp, h)
}

// sendHeaders races cancellation, the headers timeout, and the transport
// send, per the Sending row of the state machine table.
func sendHeaders(ctx context.Context, a *Agent, req *wiretransport.Request, ctrl *control.Controller, headersTimeoutMS int) (*wiretransport.Response, *errs.Error) {
	type result struct {
		resp *wiretransport.Response
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := wiretransport.RoundTripContext(ctx, a.client, req)
		resCh <- result{resp, err}
	}()

	timer := a.clock.NewTimer(time.Duration(headersTimeoutMS) * time.Millisecond)
	defer timer.Stop()

	if ctrl.IsCancelled() {
		return nil, errs.RequestAborted()
	}

	select {
	case <-ctrl.Done():
		return nil, errs.RequestAborted()
	case <-timer.Chan():
		if ctrl.IsCancelled() {
			return nil, errs.RequestAborted()
		}
		return nil, errs.HeadersTimeout()
	case res := <-resCh:
		if ctrl.IsCancelled() {
			if res.resp != nil {
				_ = res.resp.Drop()
			}
			return nil, errs.RequestAborted()
		}
		if res.err != nil {
			return nil, errs.FromTransport(res.err, false)
		}
		return res.resp, nil
	}
}

// streamBody loops the body phase: wait-while-paused, then race
// cancellation / idle-timeout / next-chunk, per the Streaming row of the
// state machine table. The idle timer is re-armed on every successful
// chunk, never on a wall-clock bound over the whole body.
func streamBody(ctx context.Context, a *Agent, opts Options, ctrl *control.Controller, resp *wiretransport.Response, h Handler) {
	chunks := resp.Chunks()
	idleDur := time.Duration(opts.bodyTimeoutMS()) * time.Millisecond
	var received int64

	type result struct {
		chunk []byte
		err   error
	}

	for {
		if err := ctrl.WaitWhilePaused(ctx); err != nil {
			_ = resp.Drop()
			h.OnResponseError(errs.RequestAborted())
			return
		}
		if ctrl.IsCancelled() {
			_ = resp.Drop()
			h.OnResponseError(errs.RequestAborted())
			return
		}

		resCh := make(chan result, 1)
		go func() {
			c, err := chunks.Next()
			resCh <- result{c, err}
		}()

		timer := a.clock.NewTimer(idleDur)

		select {
		case <-ctrl.Done():
			timer.Stop()
			_ = resp.Drop()
			h.OnResponseError(errs.RequestAborted())
			return
		case <-timer.Chan():
			if ctrl.IsCancelled() {
				_ = resp.Drop()
				h.OnResponseError(errs.RequestAborted())
				return
			}
			_ = resp.Drop()
			h.OnResponseError(errs.BodyTimeout())
			return
		case res := <-resCh:
			timer.Stop()
			if ctrl.IsCancelled() {
				_ = resp.Drop()
				h.OnResponseError(errs.RequestAborted())
				return
			}
			if res.err != nil {
				if isCleanEOF(res.err) {
					_ = chunks.Close()
					h.OnResponseEnd(map[string][]string{})
					return
				}
				_ = resp.Drop()
				h.OnResponseError(errs.FromTransport(res.err, true))
				return
			}
			if len(res.chunk) > 0 {
				received += int64(len(res.chunk))
				if opts.MaxResponseBytes > 0 && received > opts.MaxResponseBytes {
					_ = resp.Drop()
					h.OnResponseError(errs.ResponseExceededMaxSize(
						fmt.Sprintf("received %d bytes, exceeding limit of %d", received, opts.MaxResponseBytes)))
					return
				}
				h.OnResponseData(res.chunk)
			}
			// loop: wait-while-paused again, then the next chunk.
		}
	}
}

func isCleanEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func canonicalReason(status string) string {
	// status is formatted "200 OK"; split off the numeric prefix.
	for i, c := range status {
		if c == ' ' {
			return status[i+1:]
		}
	}
	return ""
}
