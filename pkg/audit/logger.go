package audit

import (
	"context"
	"net/http"
	"time"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close flushes any buffered events
	Close() error
}

// contextKey is the type for context keys
type contextKey string

// AuditLoggerKey is the context key for the audit logger
const AuditLoggerKey contextKey = "audit_logger"

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context, falling back to a
// no-op logger when none is set.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards all events
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                { return nil }

// NewEvent creates an event with the timestamp and request context
// populated. The request may be nil.
func NewEvent(eventType EventType, status EventStatus, r *http.Request) *Event {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
	if r != nil {
		event.Method = r.Method
		event.Path = r.URL.Path
		event.IPAddress = clientIP(r)
	}
	return event
}

// AccessDenied records an access denial against a resource
func AccessDenied(ctx context.Context, r *http.Request, userID *int64, orgID *int64, resourceType ResourceType, resourceID, reason string) {
	event := NewEvent(EventTypeAuthzAccessDenied, EventStatusDenied, r)
	event.UserID = userID
	event.OrganizationID = orgID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = reason
	_ = FromContext(ctx).Log(ctx, event)
}

// clientIP extracts the client IP, preferring proxy headers
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
