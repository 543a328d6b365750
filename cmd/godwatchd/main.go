// Command godwatchd runs the deity attention engine: the periodic evaluation
// cycle over every watched character, plus the HTTP surface the delivery
// layer polls.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/godwatch/internal/api"
	"github.com/talgya/godwatch/internal/attention"
	"github.com/talgya/godwatch/internal/config"
	"github.com/talgya/godwatch/internal/engine"
	"github.com/talgya/godwatch/internal/entropy"
	"github.com/talgya/godwatch/internal/manifest"
	"github.com/talgya/godwatch/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("godwatch — deity attention engine",
		"db", cfg.DBPath,
		"interval", cfg.TickInterval,
		"true_randomness", cfg.RandomOrgKey != "",
	)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureDeityStates(); err != nil {
		slog.Error("failed to ensure deity states", "error", err)
		os.Exit(1)
	}

	eng := engine.New(db,
		engine.DefaultConfig(),
		attention.DefaultParams(),
		entropy.SourceFor(cfg.RandomOrgKey),
		manifest.PhraseGenerator{})

	server := &api.Server{
		DB:        db,
		Engine:    eng,
		Addr:      cfg.Addr,
		StartedAt: time.Now().UTC(),
	}
	server.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.Run(ctx, cfg.TickInterval)
}
