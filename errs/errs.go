// Package errs implements the closed error taxonomy surfaced by the
// dispatch engine. It is the only package in this module allowed to
// inspect transport-library-specific error classifications; everywhere
// else speaks only in Kind values.
package errs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// Kind is a closed enumeration of dispatch error kinds.
type Kind int

const (
	KindRequestAborted Kind = iota
	KindConnectTimeout
	KindHeadersTimeout
	KindBodyTimeout
	KindHeadersOverflow
	KindSocket
	KindInvalidArgument
	KindClientDestroyed
	KindClientClosed
	KindRequestContentLengthMismatch
	KindResponseContentLengthMismatch
	KindResponseExceededMaxSize
	KindNotSupported
	KindSecureProxyConnection
	KindResponse
)

type taxon struct {
	code  string
	class string
}

var taxonomy = map[Kind]taxon{
	KindRequestAborted:                {"UND_ERR_ABORTED", "AbortError"},
	KindConnectTimeout:                {"UND_ERR_CONNECT_TIMEOUT", "ConnectTimeoutError"},
	KindHeadersTimeout:                {"UND_ERR_HEADERS_TIMEOUT", "HeadersTimeoutError"},
	KindBodyTimeout:                   {"UND_ERR_BODY_TIMEOUT", "BodyTimeoutError"},
	KindHeadersOverflow:               {"UND_ERR_HEADERS_OVERFLOW", "HeadersOverflowError"},
	KindSocket:                        {"UND_ERR_SOCKET", "SocketError"},
	KindInvalidArgument:               {"UND_ERR_INVALID_ARG", "InvalidArgumentError"},
	KindClientDestroyed:               {"UND_ERR_DESTROYED", "ClientDestroyedError"},
	KindClientClosed:                  {"UND_ERR_CLOSED", "ClientClosedError"},
	KindRequestContentLengthMismatch:  {"UND_ERR_REQ_CONTENT_LENGTH_MISMATCH", "RequestContentLengthMismatchError"},
	KindResponseContentLengthMismatch: {"UND_ERR_RES_CONTENT_LENGTH_MISMATCH", "ResponseContentLengthMismatchError"},
	KindResponseExceededMaxSize:       {"UND_ERR_RES_EXCEEDED_MAX_SIZE", "ResponseExceededMaxSizeError"},
	KindNotSupported:                  {"UND_ERR_NOT_SUPPORTED", "NotSupportedError"},
	KindSecureProxyConnection:         {"UND_ERR_SECURE_PROXY_CONNECTION", "SecureProxyConnectionError"},
	KindResponse:                      {"UND_ERR_RESPONSE", "ResponseError"},
}

// Error is the concrete type behind every dispatch failure. Construct one
// via the per-kind constructor functions below (RequestAborted, Socket, ...)
// or FromTransport, never via a literal — the set of kinds is closed.
type Error struct {
	kind    Kind
	msg     string
	status  int
	hasStat bool
	cause   error
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.ClassName()
	}
	return fmt.Sprintf("%s: %s", e.ClassName(), e.msg)
}

// Unwrap exposes the underlying transport cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the closed-set kind this error belongs to.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the stable wire code, e.g. "UND_ERR_ABORTED".
func (e *Error) Code() string { return taxonomy[e.kind].code }

// ClassName returns the stable class name, e.g. "AbortError".
func (e *Error) ClassName() string { return taxonomy[e.kind].class }

// StatusCode returns the HTTP status carried by a ResponseError, if any.
func (e *Error) StatusCode() (int, bool) { return e.status, e.hasStat }

func newKind(k Kind, msg string) *Error { return &Error{kind: k, msg: msg} }

func RequestAborted() *Error { return newKind(KindRequestAborted, "") }

func ConnectTimeout() *Error { return newKind(KindConnectTimeout, "") }

func HeadersTimeout() *Error { return newKind(KindHeadersTimeout, "") }

func BodyTimeout() *Error { return newKind(KindBodyTimeout, "") }

func HeadersOverflow() *Error { return newKind(KindHeadersOverflow, "") }

func Socket(msg string) *Error { return newKind(KindSocket, msg) }

func InvalidArgument(msg string) *Error { return newKind(KindInvalidArgument, msg) }

func ClientDestroyed() *Error { return newKind(KindClientDestroyed, "") }

func ClientClosed() *Error { return newKind(KindClientClosed, "") }

func RequestContentLengthMismatch(msg string) *Error {
	return newKind(KindRequestContentLengthMismatch, msg)
}

func ResponseContentLengthMismatch(msg string) *Error {
	return newKind(KindResponseContentLengthMismatch, msg)
}

func ResponseExceededMaxSize(msg string) *Error { return newKind(KindResponseExceededMaxSize, msg) }

func NotSupported(msg string) *Error { return newKind(KindNotSupported, msg) }

func SecureProxyConnection(msg string) *Error { return newKind(KindSecureProxyConnection, msg) }

func Response(status int, msg string) *Error {
	return &Error{kind: KindResponse, msg: msg, status: status, hasStat: true}
}

// FromTransport is the single mapping point from the wiretransport
// collaborator's error classifications into the closed Kind set. No other
// code in this module inspects a raw transport error.
func FromTransport(err error, inBodyPhase bool) *Error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		e := errFor(inBodyPhase)
		e.cause = err
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e := errFor(inBodyPhase)
		e.cause = err
		return e
	}

	// A response body that stops short of its declared length surfaces from
	// net/http as io.ErrUnexpectedEOF.
	if inBodyPhase && errors.Is(err, io.ErrUnexpectedEOF) {
		e := ResponseContentLengthMismatch(err.Error())
		e.cause = err
		return e
	}
	// net/http has no exported sentinel for MaxResponseHeaderBytes being
	// exceeded; its transport reports it as a plain formatted error.
	if !inBodyPhase && strings.Contains(err.Error(), "response headers exceeded") {
		e := HeadersOverflow()
		e.cause = err
		return e
	}
	// Likewise a declared request Content-Length that doesn't match the
	// body actually written is reported as a plain formatted error.
	if strings.Contains(err.Error(), "ContentLength=") && strings.Contains(err.Error(), "with Body length") {
		e := RequestContentLengthMismatch(err.Error())
		e.cause = err
		return e
	}

	var opErr *net.OpError
	hasOpErr := errors.As(err, &opErr)
	if hasOpErr && opErr.Op == "proxyconnect" {
		e := SecureProxyConnection(fmt.Sprintf("proxy connect error: %v", opErr))
		e.cause = err
		return e
	}
	var tlsErr tls.RecordHeaderError
	if errors.As(err, &tlsErr) {
		e := SecureProxyConnection(fmt.Sprintf("tls record header error: %v", tlsErr))
		e.cause = err
		return e
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			e := errFor(inBodyPhase)
			e.cause = err
			return e
		}
		e := Socket(fmt.Sprintf("Connect error: %v", urlErr.Err))
		e.cause = err
		return e
	}

	if hasOpErr {
		e := Socket(fmt.Sprintf("Connect error: %v", opErr))
		e.cause = err
		return e
	}

	var builderErr *BuilderError
	if errors.As(err, &builderErr) {
		e := InvalidArgument(builderErr.Error())
		e.cause = err
		return e
	}

	var upgradeErr *UpgradeError
	if errors.As(err, &upgradeErr) {
		e := NotSupported(upgradeErr.Error())
		e.cause = err
		return e
	}

	e := Socket(err.Error())
	e.cause = err
	return e
}

func errFor(inBodyPhase bool) *Error {
	if inBodyPhase {
		return BodyTimeout()
	}
	return ConnectTimeout()
}

// BuilderError marks a failure building a request/transport out of
// malformed caller input; FromTransport collapses it to InvalidArgument,
// since from the caller's point of view a bad builder input is the same
// shape of mistake as a bad argument.
type BuilderError struct{ Detail string }

func (e *BuilderError) Error() string { return e.Detail }

// UpgradeError marks a CONNECT or protocol-upgrade attempt; this module has
// no tunneling or WebSocket support, so FromTransport maps it to
// NotSupported rather than a generic socket failure.
type UpgradeError struct{ Detail string }

func (e *UpgradeError) Error() string { return e.Detail }
