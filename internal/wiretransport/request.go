package wiretransport

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Request is the outbound shape the dispatch engine hands to the
// collaborator: method, absolute URL, ordered multi-value headers, and an
// optional body. Header values are emitted in order, one wire header per
// value, so a multi-value header goes out as repeated header lines rather
// than a single comma-joined one.
type Request struct {
	Method string
	URL    string
	Header map[string][]string
	Body   io.ReadCloser
	// ContentLength is -1 for a streaming body of unknown length, matching
	// net/http.Request's own convention.
	ContentLength int64
}

func (c *client) RoundTrip(req *Request) (*Response, error) {
	return c.roundTrip(context.Background(), req)
}

// RoundTripContext is the context-aware entry point request execution uses
// directly; for the built-in net/http-backed client, ctx governs
// cancellation and the headers-phase race. Any other Client implementation
// is called through its RoundTrip method and does not see ctx.
func RoundTripContext(ctx context.Context, c Client, req *Request) (*Response, error) {
	cl, ok := c.(*client)
	if !ok {
		return c.RoundTrip(req)
	}
	return cl.roundTrip(ctx, req)
}

func (c *client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, err
	}
	httpReq.ContentLength = req.ContentLength
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := c.rt.RoundTrip(httpReq)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     lowerHeader(resp.Header),
		body:       resp.Body,
	}, nil
}

// lowerHeader converts net/http's canonical-case header map into the
// lowercase-keyed shape the dispatch engine hands to Handler.OnResponseStart,
// keeping per-name value order intact.
func lowerHeader(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = values
	}
	return out
}
