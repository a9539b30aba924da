package errs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodesAreStable(t *testing.T) {
	cases := []struct {
		err  *Error
		code string
		cls  string
	}{
		{RequestAborted(), "UND_ERR_ABORTED", "AbortError"},
		{ConnectTimeout(), "UND_ERR_CONNECT_TIMEOUT", "ConnectTimeoutError"},
		{HeadersTimeout(), "UND_ERR_HEADERS_TIMEOUT", "HeadersTimeoutError"},
		{BodyTimeout(), "UND_ERR_BODY_TIMEOUT", "BodyTimeoutError"},
		{HeadersOverflow(), "UND_ERR_HEADERS_OVERFLOW", "HeadersOverflowError"},
		{Socket("x"), "UND_ERR_SOCKET", "SocketError"},
		{InvalidArgument("x"), "UND_ERR_INVALID_ARG", "InvalidArgumentError"},
		{ClientDestroyed(), "UND_ERR_DESTROYED", "ClientDestroyedError"},
		{ClientClosed(), "UND_ERR_CLOSED", "ClientClosedError"},
		{NotSupported("x"), "UND_ERR_NOT_SUPPORTED", "NotSupportedError"},
		{SecureProxyConnection("x"), "UND_ERR_SECURE_PROXY_CONNECTION", "SecureProxyConnectionError"},
		{Response(404, "not found"), "UND_ERR_RESPONSE", "ResponseError"},
	}
	for _, c := range cases {
		require.Equal(t, c.code, c.err.Code())
		require.Equal(t, c.cls, c.err.ClassName())
	}
}

func TestResponseErrorCarriesStatus(t *testing.T) {
	e := Response(503, "unavailable")
	status, ok := e.StatusCode()
	require.True(t, ok)
	require.Equal(t, 503, status)

	_, ok = RequestAborted().StatusCode()
	require.False(t, ok)
}

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestFromTransportTimeoutMapsByPhase(t *testing.T) {
	var netErr net.Error = fakeTimeoutErr{}

	e := FromTransport(netErr, false)
	require.Equal(t, KindConnectTimeout, e.Kind())

	e = FromTransport(netErr, true)
	require.Equal(t, KindBodyTimeout, e.Kind())
}

func TestFromTransportDeadlineExceeded(t *testing.T) {
	e := FromTransport(context.DeadlineExceeded, false)
	require.Equal(t, KindConnectTimeout, e.Kind())
}

func TestFromTransportURLError(t *testing.T) {
	wrapped := errors.New("dial tcp: connection refused")
	e := FromTransport(&url.Error{Op: "Get", URL: "http://x", Err: wrapped}, false)
	require.Equal(t, KindSocket, e.Kind())
	require.ErrorIs(t, e, wrapped)
}

func TestFromTransportBuilderErrorIsInvalidArgument(t *testing.T) {
	e := FromTransport(&BuilderError{Detail: "bad header"}, false)
	require.Equal(t, KindInvalidArgument, e.Kind())
}

func TestFromTransportUpgradeErrorIsNotSupported(t *testing.T) {
	e := FromTransport(&UpgradeError{Detail: "upgrade: websocket"}, false)
	require.Equal(t, KindNotSupported, e.Kind())
}

func TestFromTransportFallsBackToSocket(t *testing.T) {
	e := FromTransport(errors.New("boom"), true)
	require.Equal(t, KindSocket, e.Kind())
}

func TestFromTransportNilIsNil(t *testing.T) {
	require.Nil(t, FromTransport(nil, false))
}

func TestFromTransportUnexpectedEOFInBodyPhase(t *testing.T) {
	e := FromTransport(io.ErrUnexpectedEOF, true)
	require.Equal(t, KindResponseContentLengthMismatch, e.Kind())

	// The same error outside the body phase is not reclassified.
	e = FromTransport(io.ErrUnexpectedEOF, false)
	require.Equal(t, KindSocket, e.Kind())
}

func TestFromTransportHeadersOverflow(t *testing.T) {
	err := errors.New("net/http: server response headers exceeded 1048576 bytes")
	e := FromTransport(err, false)
	require.Equal(t, KindHeadersOverflow, e.Kind())
}

func TestFromTransportRequestContentLengthMismatch(t *testing.T) {
	err := fmt.Errorf("http: ContentLength=11 with Body length 5")
	e := FromTransport(err, false)
	require.Equal(t, KindRequestContentLengthMismatch, e.Kind())
}

func TestFromTransportProxyConnectIsSecureProxyConnection(t *testing.T) {
	err := &net.OpError{Op: "proxyconnect", Net: "tcp", Err: errors.New("tls: handshake failure")}
	e := FromTransport(err, false)
	require.Equal(t, KindSecureProxyConnection, e.Kind())
}

func TestFromTransportTLSRecordHeaderIsSecureProxyConnection(t *testing.T) {
	err := tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}
	e := FromTransport(err, false)
	require.Equal(t, KindSecureProxyConnection, e.Kind())
}

func TestFromTransportGenericOpErrorIsSocket(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	e := FromTransport(err, false)
	require.Equal(t, KindSocket, e.Kind())
}
