package dispatch

import "github.com/badu/dispatch/errs"

// ResponseStart is emitted once per successful request.
type ResponseStart struct {
	StatusCode int
	// StatusMessage is the canonical reason string, empty if unknown.
	StatusMessage string
	// Header preserves multiplicity, e.g. repeated "set-cookie" values
	// appear in receipt order.
	Header map[string][]string
}

// Handler is the capability set a host supplies per dispatch. All methods
// may suspend — request execution awaits each call before proceeding, so a
// slow handler applies backpressure all the way down to the body reads.
//
// Expressed as a plain interface rather than a base type a caller must
// embed, so a host can implement only what it needs without inheriting
// unrelated behavior.
type Handler interface {
	// OnResponseStart is called at most once, before any data/end/error.
	OnResponseStart(ResponseStart)
	// OnResponseData delivers one non-zero-length chunk. No coalescing is
	// performed.
	OnResponseData(chunk []byte)
	// OnResponseEnd is the terminal success callback. Trailers are always
	// empty: the underlying transport never surfaces them to this layer.
	OnResponseEnd(trailers map[string][]string)
	// OnResponseError is the terminal failure callback, called with
	// exactly one error kind from the errs taxonomy.
	OnResponseError(*errs.Error)
}
