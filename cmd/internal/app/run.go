package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
)

// Run loads configuration, builds the App, and serves until SIGINT or
// SIGTERM. It returns instead of exiting so main owns the exit path
// and defers stay effective.
func Run() error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	a, err := New(cfg, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}
