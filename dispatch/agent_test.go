package dispatch_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/badu/dispatch/dispatch"
	"github.com/badu/dispatch/errs"
	"github.com/badu/dispatch/internal/wiretransport"
)

func TestAgentCloseRejectsNewDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := dispatch.New(wiretransport.Config{})
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.True(t, a.IsClosed())

	_, err = a.Dispatch(dispatch.Options{Origin: srv.URL, Path: "/", Method: dispatch.MethodGet}, newCollector())
	require.Error(t, err)
	var derr *errs.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, errs.KindClientClosed, derr.Kind())
}

func TestAgentDestroyRejectsNewDispatch(t *testing.T) {
	a, err := dispatch.New(wiretransport.Config{})
	require.NoError(t, err)

	require.NoError(t, a.Destroy(nil))
	require.True(t, a.IsDestroyed())
	require.True(t, a.IsClosed())

	_, err = a.Dispatch(dispatch.Options{Origin: "http://example.invalid", Path: "/", Method: dispatch.MethodGet}, newCollector())
	require.Error(t, err)
	var derr *errs.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, errs.KindClientDestroyed, derr.Kind())
}

// Close waits for in-flight requests to finish rather than cancelling them.
func TestAgentCloseAwaitsQuiescence(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	a, err := dispatch.New(wiretransport.Config{})
	require.NoError(t, err)

	c := newCollector()
	_, err = a.Dispatch(dispatch.Options{Origin: srv.URL, Path: "/", Method: dispatch.MethodGet}, c)
	require.NoError(t, err)

	closeDone := make(chan error, 1)
	go func() { closeDone <- a.Close() }()

	// Close must not resolve while the request is still pending.
	select {
	case <-closeDone:
		t.Fatal("Close returned before the in-flight request finished")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	c.await(t)

	select {
	case err := <-closeDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close never returned after quiescence")
	}

	require.Nil(t, c.err)
	require.Equal(t, "done", string(c.body()))
}

func TestAgentValidatesOptionsSynchronously(t *testing.T) {
	a, err := dispatch.New(wiretransport.Config{})
	require.NoError(t, err)
	defer func() { _ = a.Destroy(nil) }()

	_, err = a.Dispatch(dispatch.Options{Origin: "http://x", Path: "", Method: dispatch.MethodGet}, newCollector())
	require.Error(t, err)

	_, err = a.Dispatch(dispatch.Options{Origin: "http://x", Path: "/", Method: dispatch.MethodConnect}, newCollector())
	require.Error(t, err)

	_, err = a.Dispatch(dispatch.Options{
		Origin: "http://x", Path: "/", Method: dispatch.MethodGet,
		Body: dispatch.BytesBody("nope"),
	}, newCollector())
	require.Error(t, err)
}
