package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	APIBaseURL    string
	AssetsBaseURL string
	RedisAddr     string
	Environment   string
	LogLevel      slog.Level
	PollInterval  time.Duration

	// SessionID pins the session identity across restarts so a persisted
	// snapshot can be found again. Empty means a fresh session each run.
	SessionID string
}

func Load() *Config {
	return &Config{
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:8000/game"),
		AssetsBaseURL: getEnv("ASSETS_BASE_URL", "http://localhost:8000/assets"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      parseLogLevel(getEnv("LOG_LEVEL", "info")),
		PollInterval:  parseDuration(getEnv("POLL_INTERVAL", "2s")),
		SessionID:     getEnv("SESSION_ID", ""),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
