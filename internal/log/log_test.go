package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbdfs/pkg"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

// restore puts the engine and slog defaults back after a test replaces them.
func restore(t *testing.T) {
	t.Helper()
	logger, level := slog.Default(), pkg.GetLogLevel()
	engine := pkg.DefaultLogger
	t.Cleanup(func() {
		slog.SetDefault(logger)
		pkg.SetLogLevel(level)
		pkg.SetLogger(engine)
	})
}

func TestSetupConsole(t *testing.T) {
	restore(t)
	var stdout, stderr bytes.Buffer
	logger, closers, err := Setup(Options{Level: "debug", Color: ColorNever, Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)
	assert.Empty(t, closers)

	pkg.LogDebug(pkg.ComponentDevice, "bus reset", "state", "Default")
	logger.Error("boom", "code", 3)
	logger.WithGroup("ep").Info("armed", "n", 1)

	out := stdout.String()
	assert.Contains(t, out, "DEBUG [device] bus reset state=Default")
	assert.Contains(t, out, "armed ep.n=1")
	assert.NotContains(t, out, "boom")
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, stderr.String(), "ERROR boom code=3")
	assert.Equal(t, slog.LevelDebug, pkg.GetLogLevel())
}

func TestSetupColor(t *testing.T) {
	restore(t)
	var stdout bytes.Buffer
	logger, _, err := Setup(Options{Color: ColorAlways, Stdout: &stdout, Stderr: &bytes.Buffer{}})
	require.NoError(t, err)

	logger.Info("configured", "component", "device")
	assert.Contains(t, stdout.String(), ansiGreen+"INFO ")
	assert.Contains(t, stdout.String(), ansiCyan+"[device]"+ansiReset)

	logger.Debug("hidden")
	assert.NotContains(t, stdout.String(), "hidden")
}

func TestSetupFile(t *testing.T) {
	restore(t)
	path := filepath.Join(t.TempDir(), "usbdfs.log")
	logger, closers, err := Setup(Options{Format: "json", File: path, Stdout: &bytes.Buffer{}})
	require.NoError(t, err)
	require.Len(t, closers, 1)

	logger.Warn("stalled", "ep", 0)
	require.NoError(t, closers[0].Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=stalled ep=0")
}

func TestSetupErrors(t *testing.T) {
	restore(t)
	_, _, err := Setup(Options{Format: "xml"})
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	_, _, err = Setup(Options{File: filepath.Join(t.TempDir(), "missing", "x.log"), Stdout: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestUseColor(t *testing.T) {
	assert.True(t, useColor(ColorAlways, &bytes.Buffer{}))
	assert.False(t, useColor(ColorNever, os.Stdout))
	assert.False(t, useColor(ColorAuto, &bytes.Buffer{}))
}
