package wiretransport

import "io"

const chunkBufSize = 32 * 1024

// Response is the collaborator's response shape: status, canonical reason,
// multi-value headers (receipt order preserved), and a chunked body stream.
// Trailers are never exposed: the underlying transport doesn't surface
// them to this layer, so callers always see an empty trailer set.
type Response struct {
	StatusCode int
	Status     string // e.g. "200 OK"; empty means unknown reason
	Header     map[string][]string

	body io.ReadCloser
}

// NewResponse builds a Response from already-known parts. Exported for
// test doubles of Client that don't go through net/http.
func NewResponse(statusCode int, status string, header map[string][]string, body io.ReadCloser) *Response {
	return &Response{StatusCode: statusCode, Status: status, Header: header, body: body}
}

// Chunks returns an iterator over the response body. Each call reads into a
// fresh buffer and returns a slice owned by the caller, never reused across
// calls, so the dispatch engine can hand it straight to
// Handler.OnResponseData without copying again.
func (r *Response) Chunks() *ChunkReader {
	return &ChunkReader{r: r.body}
}

// Drop abandons the body stream without consuming the remaining bytes —
// the "drop the stream (do not drain)" behavior required on abort and on
// stream error, so the task never pays for work the host will discard.
func (r *Response) Drop() error { return r.body.Close() }

// ChunkReader pulls successive non-zero-length chunks from a response
// body. Chunks are never coalesced — each Next call returns exactly what
// the underlying read produced.
type ChunkReader struct {
	r io.ReadCloser
}

// Next returns the next chunk, io.EOF at a clean end of body, or any other
// read error as-is (for errs.FromTransport to classify).
func (c *ChunkReader) Next() ([]byte, error) {
	for {
		buf := make([]byte, chunkBufSize)
		n, err := c.r.Read(buf)
		if n > 0 {
			// A successful partial read may still carry io.EOF alongside
			// data; deliver the data now and let the next call observe the
			// EOF, matching the body-loop state machine which always emits
			// exactly one response-end after the last chunk.
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
		// n == 0, err == nil: a reader is allowed to do this; retry rather
		// than surface a spurious zero-length chunk.
	}
}

// Close releases the underlying body after a clean end of stream.
func (c *ChunkReader) Close() error { return c.r.Close() }
