package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DBLogger persists audit events to the database so they can be queried
// through the organization audit log.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger
func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

// Log inserts the event
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	metadata := "{}"
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
		metadata = string(data)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			timestamp, event_type, status, user_id, organization_id,
			resource_type, resource_id, ip_address, request_id, method, path,
			message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		event.UserID,
		event.OrganizationID,
		string(event.ResourceType),
		event.ResourceID,
		event.IPAddress,
		event.RequestID,
		event.Method,
		event.Path,
		event.Message,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Close is a no-op for the database logger
func (l *DBLogger) Close() error {
	return nil
}

// Search queries audit events matching the filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	query := `
		SELECT id, timestamp, event_type, status, user_id, organization_id,
		       resource_type, resource_id, ip_address, request_id, method, path,
		       message, metadata
		FROM audit_events
		WHERE 1=1
	`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OrganizationID != nil {
		query += " AND organization_id = " + arg(*filter.OrganizationID)
	}
	if filter.UserID != nil {
		query += " AND user_id = " + arg(*filter.UserID)
	}
	if filter.Status != nil {
		query += " AND status = " + arg(string(*filter.Status))
	}
	if filter.StartTime != nil {
		query += " AND timestamp >= " + arg(*filter.StartTime)
	}
	if filter.EndTime != nil {
		query += " AND timestamp <= " + arg(*filter.EndTime)
	}
	if len(filter.EventTypes) > 0 {
		query += " AND event_type IN ("
		for i, et := range filter.EventTypes {
			if i > 0 {
				query += ", "
			}
			query += arg(string(et))
		}
		query += ")"
	}

	query += " ORDER BY timestamp DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteBefore removes events older than the cutoff and returns the
// number deleted. Used by the retention job.
func (l *DBLogger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return result.RowsAffected()
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (*Event, error) {
	var event Event
	var userID, orgID sql.NullInt64
	var eventType, status, resourceType string
	var metadataJSON string

	err := scanner.Scan(
		&event.ID,
		&event.Timestamp,
		&eventType,
		&status,
		&userID,
		&orgID,
		&resourceType,
		&event.ResourceID,
		&event.IPAddress,
		&event.RequestID,
		&event.Method,
		&event.Path,
		&event.Message,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	event.EventType = EventType(eventType)
	event.Status = EventStatus(status)
	event.ResourceType = ResourceType(resourceType)
	if userID.Valid {
		id := userID.Int64
		event.UserID = &id
	}
	if orgID.Valid {
		id := orgID.Int64
		event.OrganizationID = &id
	}
	if metadataJSON != "" && metadataJSON != "{}" {
		if err := json.Unmarshal([]byte(metadataJSON), &event.Metadata); err != nil {
			event.Metadata = nil
		}
	}

	return &event, nil
}
