// Package bootstrap wires configuration into the concrete storage and fetcher.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcnelson/roster-monitor/internal/config"
	"github.com/bcnelson/roster-monitor/internal/fetcher"
	"github.com/bcnelson/roster-monitor/internal/service"
	"github.com/bcnelson/roster-monitor/internal/storage"
	"github.com/bcnelson/roster-monitor/internal/storage/file"
	"github.com/bcnelson/roster-monitor/internal/storage/memory"
	"github.com/bcnelson/roster-monitor/internal/storage/sql"
)

// OpenStorage opens the backend selected by cfg.Driver.
func OpenStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case "file":
		store, err := file.New(cfg.DataDir, cfg.ReportsDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return memory.New(), nil
	case "sqlite3":
		if dir := sqliteDir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		fallthrough
	case "postgres":
		store, err := sql.New(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// sqliteDir returns the directory to create for a plain-path SQLite DSN.
// URI DSNs (file:...) and DSNs with query parameters are left to the driver.
func sqliteDir(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "?") {
		return ""
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return ""
	}
	return dir
}

// NewRosterClient returns the file shim when configured, the HTTP client otherwise.
func NewRosterClient(cfg config.MonitorConfig) (fetcher.RosterClient, error) {
	if cfg.FileShim != "" {
		slog.Info("using file shim for roster API", "dir", cfg.FileShim)
		return fetcher.NewFileShim(cfg.FileShim), nil
	}
	client, err := fetcher.New(cfg.APIURL, cfg.FetchTimeout, cfg.UserAgent)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewMonitor builds the storage, client and monitor service from cfg.
// The caller owns the returned storage and must close it.
func NewMonitor(cfg *config.Config) (*service.MonitorService, storage.Storage, error) {
	store, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing storage: %w", err)
	}

	client, err := NewRosterClient(cfg.Monitor)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("initializing roster client: %w", err)
	}

	monitor := service.NewMonitorService(store, client, cfg.Groups, cfg.Monitor.WriteReports)
	return monitor, store, nil
}
