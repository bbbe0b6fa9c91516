package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bcnelson/roster-monitor/internal/domain"
	"github.com/bcnelson/roster-monitor/internal/validation"
)

// Config holds all configuration for the application.
type Config struct {
	Monitor MonitorConfig
	Storage StorageConfig
	Logging LoggingConfig
	Server  ServerConfig

	// Groups is the fixed list of monitored groups, resolved once at startup.
	Groups []domain.Group
}

// MonitorConfig holds roster fetching configuration.
type MonitorConfig struct {
	APIURL       string        `env:"MONITOR_API_URL" envDefault:"https://www.habbo.it/api/public/groups/{id}/members"`
	FetchTimeout time.Duration `env:"MONITOR_FETCH_TIMEOUT" envDefault:"30s"`
	UserAgent    string        `env:"MONITOR_USER_AGENT" envDefault:"roster-monitor/1.0"`
	GroupsFile   string        `env:"MONITOR_GROUPS_FILE"`
	FileShim     string        `env:"MONITOR_FILE_SHIM"` // Directory of <id>.json rosters (disables real API)
	Interval     time.Duration `env:"MONITOR_INTERVAL" envDefault:"0s"`
	WriteReports bool          `env:"MONITOR_WRITE_REPORTS" envDefault:"true"`
}

// StorageConfig holds storage backend configuration.
type StorageConfig struct {
	Driver     string `env:"STORAGE_DRIVER" envDefault:"file"`
	DataDir    string `env:"DATA_DIR" envDefault:"data"`
	ReportsDir string `env:"REPORTS_DIR" envDefault:"reports"`
	DSN        string `env:"DB_DSN" envDefault:"data/roster-monitor.db"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	LogDir     string `env:"LOG_DIR"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"20"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host   string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port   int    `env:"SERVER_PORT" envDefault:"8080"`
	// APIKey is the bootstrap key, accepted until the first key is created
	// through /api/v1/keys.
	APIKey string `env:"API_KEY"`
}

// DefaultGroups is the group list used when no groups file is configured.
var DefaultGroups = []domain.Group{
	{ID: "g-hhit-7acf574a748ba61d8630da806f8e5e7b", Name: "BLACKPEARL"},
	{ID: "g-hhit-be7029dce95f69a40f5e57640c30cc85", Name: "Masarez"},
	{ID: "g-hhit-c3fe900882ba6ebc01bdc17453b47299", Name: "Oblivion"},
	{ID: "g-hhit-aae7f46b38f69abbff3d42d86cee0a16", Name: "Eternal Warriors"},
	{ID: "g-hhit-2b2c13212f5f75731116cbebf7c27f4c", Name: "Golden Demons"},
	{ID: "g-hhit-cb506cfe44eb2d49894eae2bfc0b7ffb", Name: "Hooligans"},
	{ID: "g-hhit-f2aa4ed84bfcb4f79942ede9b7dd23bd", Name: "Famiglia Corleone"},
}

// Load loads configuration from environment variables.
// Variables from the file named by CONFIG_ENV_FILE (default ".env") are
// loaded first if the file exists; the real environment takes precedence.
func Load() (*Config, error) {
	envFile := os.Getenv("CONFIG_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg := &Config{}

	if err := env.Parse(&cfg.Monitor); err != nil {
		return nil, fmt.Errorf("parsing monitor config: %w", err)
	}
	if err := env.Parse(&cfg.Storage); err != nil {
		return nil, fmt.Errorf("parsing storage config: %w", err)
	}
	if err := env.Parse(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("parsing logging config: %w", err)
	}
	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}

	if cfg.Monitor.GroupsFile != "" {
		groups, err := LoadGroups(cfg.Monitor.GroupsFile)
		if err != nil {
			return nil, err
		}
		cfg.Groups = groups
	} else {
		cfg.Groups = append([]domain.Group(nil), DefaultGroups...)
	}

	return cfg, nil
}

// groupsFile is the YAML document listing monitored groups.
type groupsFile struct {
	Groups []domain.Group `yaml:"groups"`
}

// LoadGroups reads the monitored groups from a YAML file of the form:
//
//	groups:
//	  - id: g-hhit-...
//	    name: BLACKPEARL
func LoadGroups(path string) ([]domain.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading groups file: %w", err)
	}

	var doc groupsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing groups file: %w", err)
	}
	for i := range doc.Groups {
		doc.Groups[i].ID = strings.TrimSpace(doc.Groups[i].ID)
		doc.Groups[i].Name = strings.TrimSpace(doc.Groups[i].Name)
	}
	return doc.Groups, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// If using file shim, the API endpoint is not used
	if c.Monitor.FileShim == "" {
		if !strings.Contains(c.Monitor.APIURL, "{id}") {
			return fmt.Errorf("MONITOR_API_URL must contain the {id} placeholder (or set MONITOR_FILE_SHIM for testing)")
		}
		if c.Monitor.FetchTimeout <= 0 {
			return fmt.Errorf("MONITOR_FETCH_TIMEOUT must be positive")
		}
	}
	if c.Monitor.Interval < 0 {
		return fmt.Errorf("MONITOR_INTERVAL must not be negative")
	}

	switch c.Storage.Driver {
	case "file":
		if c.Storage.DataDir == "" || c.Storage.ReportsDir == "" {
			return fmt.Errorf("DATA_DIR and REPORTS_DIR are required for the file driver")
		}
	case "sqlite3", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s driver", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q (file, sqlite3, postgres, memory)", c.Storage.Driver)
	}

	if errs := validation.ValidateGroups(c.Groups); errs.HasErrors() {
		return fmt.Errorf("invalid groups: %w", errs)
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.Monitor.FileShim != ""
}
