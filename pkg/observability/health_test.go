package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockDB(t *testing.T) (sqlmock.Sqlmock, *HealthChecker) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewHealthChecker(db, nil)
}

func testRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCheckHealthy(t *testing.T) {
	mock, checker := mockDB(t)
	mock.ExpectPing()

	status := checker.Check(context.Background())

	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, Version, status.Version)
	require.Contains(t, status.Dependencies, "postgres")
	assert.Equal(t, StatusHealthy, status.Dependencies["postgres"].Status)
}

func TestCheckPostgresDown(t *testing.T) {
	mock, checker := mockDB(t)
	mock.ExpectPing().WillReturnError(assert.AnError)

	status := checker.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["postgres"].Status)
	assert.NotEmpty(t, status.Dependencies["postgres"].Message)
}

func TestCheckRedisDownDegrades(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectPing()

	mr, client := testRedisClient(t)
	mr.Close()

	checker := NewHealthChecker(db, client)
	status := checker.Check(context.Background())

	// The access cache is optional, so losing it never fails readiness
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["postgres"].Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
}

func TestCheckRedisHealthy(t *testing.T) {
	_, client := testRedisClient(t)
	checker := NewHealthChecker(nil, client)

	status := checker.Check(context.Background())

	assert.Equal(t, StatusHealthy, status.Status)
	require.Contains(t, status.Dependencies, "redis")
	assert.NotContains(t, status.Dependencies, "postgres")
}

func TestLivenessIgnoresDependencies(t *testing.T) {
	mock, checker := mockDB(t)

	rec := httptest.NewRecorder()
	checker.Liveness(rec, httptest.NewRequest("GET", "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	// No ping was expected, and none should have happened
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadinessStatusCodes(t *testing.T) {
	t.Run("healthy returns 200", func(t *testing.T) {
		mock, checker := mockDB(t)
		mock.ExpectPing()

		rec := httptest.NewRecorder()
		checker.Readiness(rec, httptest.NewRequest("GET", "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, StatusHealthy, status.Status)
	})

	t.Run("unhealthy returns 503", func(t *testing.T) {
		mock, checker := mockDB(t)
		mock.ExpectPing().WillReturnError(assert.AnError)

		rec := httptest.NewRecorder()
		checker.Readiness(rec, httptest.NewRequest("GET", "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRegisterHealthRoutes(t *testing.T) {
	_, client := testRedisClient(t)
	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(nil, client))

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
