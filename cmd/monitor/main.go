// Command monitor runs one roster check over every configured group and exits.
// It is meant to be started periodically by an external scheduler such as cron.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bcnelson/roster-monitor/internal/bootstrap"
	"github.com/bcnelson/roster-monitor/internal/config"
	"github.com/bcnelson/roster-monitor/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logging", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	monitor, store, err := bootstrap.NewMonitor(cfg)
	if err != nil {
		logger.Error("failed to initialize monitor", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	monitor.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Group failures are logged by the run and never change the exit status.
	rep := monitor.Run(ctx)
	logger.Info("monitor finished", "groups", len(rep.Results), "failed", rep.Failed())
}
