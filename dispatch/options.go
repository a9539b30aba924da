package dispatch

import (
	"bytes"
	"io"
)

const defaultTimeoutMS = 300_000

// Body is an optional request body: either a finite byte buffer
// (BytesBody) or a streaming source of byte chunks (StreamBody). It is
// consumed exactly once by the request task and never retried.
type Body interface {
	open() (io.ReadCloser, int64)
}

// BytesBody is a finite in-memory request body.
type BytesBody []byte

func (b BytesBody) open() (io.ReadCloser, int64) {
	return io.NopCloser(bytes.NewReader(b)), int64(len(b))
}

// StreamBody wraps a streaming source of unknown length. Reader is
// consumed exactly once; if it also implements io.Closer, Close is called
// when the body is no longer needed (including on abort, without draining
// it first).
type StreamBody struct {
	Reader io.Reader
}

func (s StreamBody) open() (io.ReadCloser, int64) {
	if rc, ok := s.Reader.(io.ReadCloser); ok {
		return rc, -1
	}
	return io.NopCloser(s.Reader), -1
}

// Options describes one request, passed once to Agent.Dispatch.
type Options struct {
	// Origin is the optional absolute origin (scheme + authority). If
	// absent, Path must itself be absolute.
	Origin string
	// Path is the non-empty request path beginning with "/".
	Path string
	// Query is a pre-encoded query string without a leading "?". Empty
	// means no query.
	Query string

	Method Method

	// Header maps lowercase header name to an ordered sequence of values;
	// multiple values are emitted as repeated headers.
	Header map[string][]string

	// Body is optional; must be nil for bodyless methods.
	Body Body

	// HeadersTimeoutMS bounds request-start to response-headers receipt.
	// 0 selects the default of 300000ms.
	HeadersTimeoutMS int
	// BodyTimeoutMS bounds the idle interval between successive response
	// body chunks. 0 selects the default of 300000ms.
	BodyTimeoutMS int

	// RequestID correlates this dispatch across logs and the returned
	// controller. Empty means Agent.Dispatch generates one.
	RequestID string

	// MaxResponseBytes caps the cumulative size of the response body; once
	// exceeded, the body stream is dropped and the request fails with
	// errs.ResponseExceededMaxSize. 0 means unlimited.
	MaxResponseBytes int64
}

func (o *Options) headersTimeoutMS() int {
	if o.HeadersTimeoutMS == 0 {
		return defaultTimeoutMS
	}
	return o.HeadersTimeoutMS
}

func (o *Options) bodyTimeoutMS() int {
	if o.BodyTimeoutMS == 0 {
		return defaultTimeoutMS
	}
	return o.BodyTimeoutMS
}

// url assembles the outbound URL: origin ++ path, plus "?" ++ query when
// query is non-empty. No further encoding is performed — Query is assumed
// already percent-encoded.
func (o *Options) url() string {
	u := o.Origin + o.Path
	if o.Query != "" {
		u += "?" + o.Query
	}
	return u
}

func (o *Options) validate() error {
	if o.Origin == "" && (o.Path == "" || o.Path[0] != '/') {
		return errInvalid("path must be absolute when origin is absent")
	}
	if o.Path == "" {
		return errInvalid("path must be non-empty")
	}
	if o.Path[0] != '/' {
		return errInvalid("path must begin with '/'")
	}
	if !o.Method.valid() {
		return errInvalid("unsupported method: " + string(o.Method))
	}
	if o.Method == MethodConnect {
		return errNotSupported("CONNECT is not supported")
	}
	if o.Body != nil && o.Method.bodyless() {
		return errInvalid("body not allowed for method " + string(o.Method))
	}
	if o.HeadersTimeoutMS < 0 || o.BodyTimeoutMS < 0 {
		return errInvalid("timeouts must be non-negative")
	}
	if o.MaxResponseBytes < 0 {
		return errInvalid("max response bytes must be non-negative")
	}
	return nil
}
