package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jwebster45206/story-client/internal/api"
	"github.com/jwebster45206/story-client/internal/config"
	"github.com/jwebster45206/story-client/internal/logger"
	"github.com/jwebster45206/story-client/internal/session"
	"github.com/jwebster45206/story-client/internal/snapshot"
)

const bootstrapTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	// The UI owns the terminal, so log lines go to a file instead.
	var logWriter io.Writer = io.Discard
	logFile, err := os.OpenFile("story-client.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err == nil {
		defer func() {
			_ = logFile.Close() // Ignore error in defer
		}()
		logWriter = logFile
	}
	log := logger.SetupWithWriter(cfg, logWriter)

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}
	client := api.NewClient(cfg.APIBaseURL, cfg.AssetsBaseURL, httpClient, log)

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	// Snapshot persistence is best-effort: without Redis the game still
	// runs, it just cannot resume a previous session.
	var store snapshot.Store
	redisStore := snapshot.NewRedisStore(cfg.RedisAddr, log)
	if err := redisStore.Ping(ctx); err == nil {
		store = redisStore
		defer func() {
			_ = redisStore.Close() // Ignore error in defer
		}()
	} else {
		log.Warn("redis unreachable, running without snapshots", "addr", cfg.RedisAddr)
	}

	bridge := &noticeBridge{}
	sess := session.New(client, store, bridge, log)
	defer sess.Stop()

	// A pinned session ID is what lets a snapshot from a previous run be
	// found again; without one every run starts a fresh session.
	if cfg.SessionID != "" {
		if id, err := uuid.Parse(cfg.SessionID); err == nil {
			sess.ID = id
		} else {
			log.Warn("invalid SESSION_ID, starting a fresh session", "value", cfg.SessionID)
		}
	}

	if err := sess.Bootstrap(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not reach the game server at %s: %v\nPlease ensure the server is running.\n", cfg.APIBaseURL, err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, sess, bridge),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
