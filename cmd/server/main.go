package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcnelson/roster-monitor/internal/api"
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
	if cfg.Server.APIKey == "" {
		logger.Warn("API_KEY is not set, only stored API keys are accepted")
	}

	monitor, store, err := bootstrap.NewMonitor(cfg)
	if err != nil {
		logger.Error("failed to initialize monitor", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	monitor.SetLogger(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// In-process schedule (disabled when MONITOR_INTERVAL is 0)
	scheduleDone := make(chan struct{})
	go func() {
		defer close(scheduleDone)
		if cfg.Monitor.Interval > 0 {
			logger.Info("scheduled runs enabled", "interval", cfg.Monitor.Interval)
		}
		monitor.StartSchedule(ctx, cfg.Monitor.Interval)
	}()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(store, monitor, cfg.Server.APIKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting roster monitor", "addr", "http://"+cfg.Server.Addr(), "groups", len(cfg.Groups))

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	<-scheduleDone

	logger.Info("server stopped")
}
