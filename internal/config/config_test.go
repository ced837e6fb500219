package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLogLevel(tt.input), "level %q", tt.input)
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, parseDuration("100ms"))
	assert.Equal(t, 250*time.Millisecond, parseDuration("not-a-duration"))
	assert.Equal(t, 250*time.Millisecond, parseDuration("-5s"))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("SESSION_ID", "")
	cfg := Load()
	assert.Equal(t, "http://localhost:8000/game", cfg.APIBaseURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.SessionID)
}

func TestLoadSessionID(t *testing.T) {
	t.Setenv("SESSION_ID", "0f8fad5b-d9cb-469f-a165-70867728950e")
	cfg := Load()
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", cfg.SessionID)
}
