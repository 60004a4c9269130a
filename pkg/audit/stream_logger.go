package audit

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// StreamLogger emits audit events as structured log lines. Useful for
// shipping the audit trail to a log aggregator alongside persistence.
type StreamLogger struct {
	log *logrus.Logger
}

// NewStreamLogger creates a logrus-backed audit logger writing JSON
// lines to the given output.
func NewStreamLogger(output io.Writer) *StreamLogger {
	log := logrus.New()
	log.SetOutput(output)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return &StreamLogger{log: log}
}

// Log emits the event as one log line
func (l *StreamLogger) Log(ctx context.Context, event *Event) error {
	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"status":     event.Status,
	}
	if event.UserID != nil {
		fields["user_id"] = *event.UserID
	}
	if event.OrganizationID != nil {
		fields["organization_id"] = *event.OrganizationID
	}
	if event.ResourceType != "" {
		fields["resource_type"] = event.ResourceType
		fields["resource_id"] = event.ResourceID
	}
	if event.Path != "" {
		fields["method"] = event.Method
		fields["path"] = event.Path
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.log.WithFields(fields)
	switch event.Status {
	case EventStatusDenied, EventStatusFailure:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
	return nil
}

// Close is a no-op for the stream logger
func (l *StreamLogger) Close() error {
	return nil
}
