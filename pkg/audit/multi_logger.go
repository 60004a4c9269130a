package audit

import (
	"context"
	"fmt"
	"strings"
)

// MultiLogger fans events out to several loggers. Every logger receives
// every event even if an earlier one fails.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all given loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log sends the event to every underlying logger
func (l *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []string
	for _, logger := range l.loggers {
		if err := logger.Log(ctx, event); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit logging failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Close closes every underlying logger
func (l *MultiLogger) Close() error {
	var errs []string
	for _, logger := range l.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close audit loggers: %s", strings.Join(errs, "; "))
	}
	return nil
}
