package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDBLogger(t *testing.T) *DBLogger {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL,
			user_id BIGINT,
			organization_id BIGINT,
			resource_type VARCHAR(50) NOT NULL DEFAULT '',
			resource_id VARCHAR(255) NOT NULL DEFAULT '',
			ip_address VARCHAR(64) NOT NULL DEFAULT '',
			request_id VARCHAR(64) NOT NULL DEFAULT '',
			method VARCHAR(10) NOT NULL DEFAULT '',
			path VARCHAR(255) NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	require.NoError(t, err)

	return NewDBLogger(db)
}

func TestDBLoggerLogAndSearch(t *testing.T) {
	logger := setupDBLogger(t)
	ctx := context.Background()

	userID := int64(7)
	orgID := int64(10)

	for i := 0; i < 3; i++ {
		event := NewEvent(EventTypeAuthzAccessDenied, EventStatusDenied, nil)
		event.UserID = &userID
		event.OrganizationID = &orgID
		event.ResourceType = ResourceTypeRoute
		event.ResourceID = "BILLING"
		event.Message = "missing permission org:billing:view"
		require.NoError(t, logger.Log(ctx, event))
	}

	otherOrg := int64(11)
	event := NewEvent(EventTypeMemberJoin, EventStatusSuccess, nil)
	event.OrganizationID = &otherOrg
	require.NoError(t, logger.Log(ctx, event))

	events, err := logger.Search(ctx, SearchFilter{OrganizationID: &orgID})
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, EventTypeAuthzAccessDenied, events[0].EventType)
	assert.Equal(t, "BILLING", events[0].ResourceID)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, userID, *events[0].UserID)

	denied := EventStatusDenied
	events, err = logger.Search(ctx, SearchFilter{Status: &denied, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestDBLoggerDeleteBefore(t *testing.T) {
	logger := setupDBLogger(t)
	ctx := context.Background()

	old := NewEvent(EventTypeAuthLogin, EventStatusSuccess, nil)
	old.Timestamp = time.Now().UTC().Add(-100 * 24 * time.Hour)
	require.NoError(t, logger.Log(ctx, old))

	recent := NewEvent(EventTypeAuthLogin, EventStatusSuccess, nil)
	require.NoError(t, logger.Log(ctx, recent))

	deleted, err := logger.DeleteBefore(ctx, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, err := logger.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStreamLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStreamLogger(&buf)

	userID := int64(7)
	event := NewEvent(EventTypeAuthzRoleChange, EventStatusSuccess, httptest.NewRequest("POST", "/api/orgs/10/members/7/role", nil))
	event.UserID = &userID
	event.Message = "role changed to ADMIN"
	require.NoError(t, logger.Log(context.Background(), event))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "authz.role_change", line["event_type"])
	assert.Equal(t, float64(7), line["user_id"])
	assert.Equal(t, "role changed to ADMIN", line["msg"])
	assert.Equal(t, "/api/orgs/10/members/7/role", line["path"])
}

type failLogger struct{ called bool }

func (f *failLogger) Log(ctx context.Context, event *Event) error {
	f.called = true
	return errors.New("sink unavailable")
}
func (f *failLogger) Close() error { return nil }

func TestMultiLoggerDeliversToAllSinks(t *testing.T) {
	failing := &failLogger{}
	second := &failLogger{}
	multi := NewMultiLogger(failing, second)

	err := multi.Log(context.Background(), NewEvent(EventTypeAuthLogin, EventStatusSuccess, nil))
	assert.Error(t, err)
	assert.True(t, failing.called)
	assert.True(t, second.called)
}

func TestFromContextFallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NoError(t, logger.Log(context.Background(), NewEvent(EventTypeAuthLogin, EventStatusSuccess, nil)))
}
