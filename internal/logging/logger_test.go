package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartquery/chartquery/internal/config"
)

func newTestLogger(t *testing.T, level, format string) (*Logger, *bytes.Buffer) {
	t.Helper()

	logger, err := NewLogger(config.LoggingConfig{
		Level:  level,
		Format: format,
		Output: "stdout",
	})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	logger.output = buf

	return logger, buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, "warn", "text")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, buf := newTestLogger(t, "info", "json")

	logger.WithField("request_id", "abc-123").Info("pipeline started")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "pipeline started", entry.Message)
	assert.Equal(t, "abc-123", entry.Fields["request_id"])
}

func TestLogger_WithFields(t *testing.T) {
	logger, buf := newTestLogger(t, "debug", "text")

	child := logger.WithFields(map[string]interface{}{
		"stage": "synthesis",
		"try":   1,
	})
	child.Debug("attempt")

	out := buf.String()
	assert.Contains(t, out, "stage=synthesis")
	assert.Contains(t, out, "try=1")

	// Parent logger must not inherit the child's fields
	buf.Reset()
	logger.Debug("clean")
	assert.NotContains(t, buf.String(), "stage=synthesis")
}

func TestLogger_ErrorWithErr(t *testing.T) {
	logger, buf := newTestLogger(t, "info", "text")

	logger.ErrorWithErr("execution failed", errors.New("syntax error near GROUP"))

	out := buf.String()
	assert.Contains(t, out, "execution failed")
	assert.Contains(t, out, "syntax error near GROUP")
}

func TestNewLogger_InvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, InfoLevel, parseLogLevel("unknown"))
}
