package pkg

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs routes the default logger into a buffer at the given level
// for the duration of the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalLogger := DefaultLogger
	originalLevel := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(originalLogger)
		SetLogLevel(originalLevel)
	})
	SetLogLevel(level)
	SetLogger(NewLogger(&buf, nil))
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		t.Run(level.String(), func(t *testing.T) {
			SetLogLevel(level)
			assert.Equal(t, level, GetLogLevel())
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	require.NotNil(t, logger)

	logger.Info("test message")
	assert.Contains(t, buf.String(), `"msg":"test message"`)
}

func TestComponentLogging(t *testing.T) {
	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
		want      string
	}{
		{"debug", LogDebug, ComponentDevice, "component=device"},
		{"info", LogInfo, ComponentControl, "component=control"},
		{"warn", LogWarn, ComponentMemory, "component=pma"},
		{"error", LogError, ComponentHAL, "component=hal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t, slog.LevelDebug)
			tt.log(tt.component, tt.name+" message", "key", "value")
			out := buf.String()
			assert.Contains(t, out, tt.name+" message")
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "key=value")
		})
	}
}

func TestLogBelowLevelIsDropped(t *testing.T) {
	buf := captureLogs(t, slog.LevelWarn)

	LogDebug(ComponentDevice, "quiet")
	LogInfo(ComponentDevice, "quiet")
	assert.Empty(t, buf.String())

	LogWarn(ComponentDevice, "loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestSetLogFormat(t *testing.T) {
	original := DefaultLogger
	defer SetLogger(original)

	SetLogFormat(LogFormatJSON)
	_, isJSON := DefaultLogger.Handler().(*slog.JSONHandler)
	assert.True(t, isJSON)

	SetLogFormat(LogFormatText)
	_, isText := DefaultLogger.Handler().(*slog.TextHandler)
	assert.True(t, isText)
}
