package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAbortIdempotent(t *testing.T) {
	c, _ := New(context.Background(), "r1")
	c.Abort()
	c.Abort()
	require.True(t, c.IsCancelled())
}

func TestPauseResumeRoundtrip(t *testing.T) {
	c, _ := New(context.Background(), "r1")
	require.False(t, c.IsPaused())
	c.Pause()
	require.True(t, c.IsPaused())
	c.Resume()
	require.False(t, c.IsPaused())
	// Resume on an already-unpaused controller is a no-op.
	c.Resume()
	require.False(t, c.IsPaused())
}

func TestWaitWhilePausedReturnsImmediatelyWhenNotPaused(t *testing.T) {
	c, _ := New(context.Background(), "r1")
	done := make(chan struct{})
	go func() {
		_ = c.WaitWhilePaused(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitWhilePaused blocked despite not being paused")
	}
}

// TestPauseResumeRaceNeverHangs guards against a resume firing between the
// waiter's check and its suspend: that wakeup must never be lost.
func TestPauseResumeRaceNeverHangs(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, _ := New(context.Background(), "r1")
		c.Pause()

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			_ = c.WaitWhilePaused(context.Background())
		}()
		go func() {
			defer wg.Done()
			c.Resume()
		}()

		waitDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(waitDone)
		}()

		select {
		case <-waitDone:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: pause/resume race hung", i)
		}
	}
}

func TestAbortUnblocksWaitWhilePaused(t *testing.T) {
	c, _ := New(context.Background(), "r1")
	c.Pause()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.WaitWhilePaused(context.Background())
	}()

	c.Abort()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Abort did not unblock a paused waiter")
	}
}
