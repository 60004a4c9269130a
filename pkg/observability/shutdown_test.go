package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShutdownManager(server *http.Server, timeout time.Duration) *ShutdownManager {
	return NewShutdownManager(NewLogger(ErrorLevel, io.Discard), server, timeout)
}

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	sm := testShutdownManager(nil, time.Second)

	var order []string
	sm.RegisterShutdownFunc("scheduler", func(ctx context.Context) error {
		order = append(order, "scheduler")
		return nil
	})
	sm.RegisterShutdownFunc("ops server", func(ctx context.Context) error {
		order = append(order, "ops server")
		return nil
	})

	require.NoError(t, sm.shutdown(context.Background()))
	assert.Equal(t, []string{"ops server", "scheduler"}, order)
}

func TestShutdownCollectsHookErrors(t *testing.T) {
	sm := testShutdownManager(nil, time.Second)

	var ran atomic.Bool
	sm.RegisterShutdownFunc("scheduler", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	sm.RegisterShutdownFunc("ops server", func(ctx context.Context) error {
		return assert.AnError
	})

	err := sm.shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "ops server")
	// A failing hook never skips the ones behind it
	assert.True(t, ran.Load())
}

func TestShutdownStopsAtDeadline(t *testing.T) {
	sm := testShutdownManager(nil, time.Second)

	var ran atomic.Bool
	sm.RegisterShutdownFunc("scheduler", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	sm.RegisterShutdownFunc("slow resource", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sm.shutdown(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "shutdown timeout before scheduler")
	assert.False(t, ran.Load())
}

func TestShutdownDrainsServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})}
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ln) }()

	sm := testShutdownManager(server, time.Second)
	require.NoError(t, sm.shutdown(context.Background()))

	select {
	case err := <-serveDone:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWaitForShutdownOnSignal(t *testing.T) {
	sm := testShutdownManager(nil, time.Second)

	var ran atomic.Bool
	sm.RegisterShutdownFunc("scheduler", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown() }()

	// Give WaitForShutdown time to install its signal handler, then
	// deliver SIGTERM to ourselves.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, ran.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForShutdown did not return after SIGTERM")
	}
}

func TestNewShutdownManagerDefaultTimeout(t *testing.T) {
	sm := testShutdownManager(nil, 0)
	assert.Equal(t, 30*time.Second, sm.timeout)
}
