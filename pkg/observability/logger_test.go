package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var line map[string]interface{}
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	return lines
}

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("org_id", 10).Info("member activated")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "member activated", lines[0]["msg"])
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, float64(10), lines[0]["org_id"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("dropped")
	logger.Error("kept")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("connection refused")).Error("resolution failed")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "connection refused", lines[0]["error"])
}

func TestLoggerWithErrorNil(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	derived := logger.WithError(nil)
	assert.Same(t, logger, derived)
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithFields(map[string]interface{}{
		"user_id": 7,
		"org_id":  10,
	}).Info("access resolved")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(7), lines[0]["user_id"])
	assert.Equal(t, float64(10), lines[0]["org_id"])
}

func TestLoggerDerivedDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("scope", "project").Info("first")
	logger.Info("second")

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "project", lines[0]["scope"])
	_, leaked := lines[1]["scope"]
	assert.False(t, leaked)
}

func TestLoggerFormattedMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.Debugf("resolved %d routes", 4)
	logger.Warnf("retry %d/%d", 2, 3)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "resolved 4 routes", lines[0]["msg"])
	assert.Equal(t, "retry 2/3", lines[1]["msg"])
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
}

func TestNewLoggerNilOutput(t *testing.T) {
	logger := NewLogger(InfoLevel, nil)
	require.NotNil(t, logger)
}
