package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestModuleAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug).Module("health").Module("scan")

	log.With(String("split", "train")).Warn("Malformed line",
		Int("line", 3), Error(errors.New("bad float")))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="Malformed line"`)
	assert.Contains(t, out, "module=health.scan")
	assert.Contains(t, out, "split=train")
	assert.Contains(t, out, "line=3")
	assert.Contains(t, out, `error="bad float"`)
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelWarn)

	log.Debug("hidden")
	log.Info("hidden too")
	assert.Empty(t, buf.String())

	log.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithLogFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "main.log", []byte("stale content\n"), 0o644))

	console := &bytes.Buffer{}
	log, closer, err := New(fs, console, Config{Level: "info", File: "main.log"})
	require.NoError(t, err)

	log.Info("Run started")
	require.NoError(t, closer.Close())

	data, err := afero.ReadFile(fs, "main.log")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale content")
	assert.Contains(t, string(data), "Run started")
	assert.Contains(t, console.String(), "Run started")
}

func TestNewConsoleOnly(t *testing.T) {
	console := &bytes.Buffer{}
	log, closer, err := New(afero.NewMemMapFs(), console, Config{Level: "debug"})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug("details")
	assert.Contains(t, console.String(), "details")
}
