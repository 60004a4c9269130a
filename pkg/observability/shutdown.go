package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc releases one resource during shutdown
type ShutdownFunc func(context.Context) error

type shutdownHook struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager drains the API server and then releases registered
// resources when the process receives SIGINT or SIGTERM. Hooks run in
// reverse registration order, mirroring construction order in main.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	hooks []shutdownHook
}

// NewShutdownManager creates a shutdown manager for the given server.
// A non-positive timeout falls back to 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
	}
}

// RegisterShutdownFunc registers a named resource to release after the
// server has drained
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, shutdownHook{name: name, fn: fn})
}

// WaitForShutdown blocks until a termination signal arrives, then runs
// the shutdown sequence under the configured timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	stop()

	sm.logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()
	return sm.shutdown(shutdownCtx)
}

// shutdown drains the HTTP server first so in-flight requests finish
// before their backing resources go away, then releases hooks in
// reverse registration order. Every failure is collected; one bad hook
// never skips the rest.
func (sm *ShutdownManager) shutdown(ctx context.Context) error {
	var errs []error

	if sm.server != nil {
		sm.logger.Info("draining HTTP server")
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server drain failed")
			errs = append(errs, fmt.Errorf("server drain: %w", err))
		}
	}

	sm.mu.Lock()
	hooks := make([]shutdownHook, len(sm.hooks))
	copy(hooks, sm.hooks)
	sm.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("shutdown timeout before %s", hook.name))
			break
		}
		sm.logger.WithField("resource", hook.name).Info("releasing resource")
		if err := hook.fn(ctx); err != nil {
			sm.logger.WithError(err).WithField("resource", hook.name).Error("resource release failed")
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("shutdown complete")
	return nil
}
