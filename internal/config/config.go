package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Migration MigrationConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

// StoreConfig selects the profile backend. Mode is one of local, direct
// or http.
type StoreConfig struct {
	Mode          string
	DSN           string
	DSNToken      string
	RemoteURL     string
	LocalPath     string
	RetryAttempts int
	RetryBackoff  time.Duration
}

type MigrationConfig struct {
	Concurrency int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Store: StoreConfig{
			Mode:          "direct",
			DSN:           filepath.Join(dataDir, "solace.db"),
			LocalPath:     filepath.Join(dataDir, "local.json"),
			RetryAttempts: 3,
			RetryBackoff:  time.Second,
		},
		Migration: MigrationConfig{
			Concurrency: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/solace/config.json and then applies SOLACE_* environment
// variables on top. Secrets are read from the environment only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected store mode has what it needs.
func (c Config) Validate() error {
	switch c.Store.Mode {
	case "local":
	case "direct":
		if c.Store.DSN == "" {
			return errors.New("missing required config: store.dsn must be set for direct mode " +
				"(environment variable SOLACE_STORE_DSN)")
		}
	case "http":
		if c.Store.RemoteURL == "" {
			return errors.New("missing required config: store.remote_url must be set for http mode " +
				"(environment variable SOLACE_STORE_REMOTE_URL)")
		}
	default:
		return fmt.Errorf("invalid store.mode %q: want local, direct or http", c.Store.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store.retry_attempts must be at least 1, got %d", c.Store.RetryAttempts)
	}
	if c.Migration.Concurrency < 1 {
		return fmt.Errorf("migration.concurrency must be at least 1, got %d", c.Migration.Concurrency)
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "solace-data"
		}
	}
	return filepath.Join(dir, "solace")
}
