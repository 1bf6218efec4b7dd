// Package config loads the application configuration from TOML,
// layered over built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"cnsync/internal/store"
)

// Config represents the application configuration
type Config struct {
	Database store.Config  `toml:"database"`
	Canvas   CanvasConfig  `toml:"canvas"`
	Sync     SyncConfig    `toml:"sync"`
	HTTP     HTTPConfig    `toml:"http"`
	Logging  LoggingConfig `toml:"logging"`
}

// CanvasConfig holds Canvas API defaults. The base URL here is the
// fallback when preferences leave it empty.
type CanvasConfig struct {
	BaseURL string `toml:"base_url"`
}

// SyncConfig bounds the retry behaviour of the sync pipeline.
type SyncConfig struct {
	MaxAttempts       int           `toml:"max_attempts"`
	InitialDelay      time.Duration `toml:"initial_delay"`
	BackoffMultiplier float64       `toml:"backoff_multiplier"`
	MaxDelay          time.Duration `toml:"max_delay"`
}

// HTTPConfig holds HTTP API server settings
type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: store.Config{
			Driver:          "sqlite3",
			DSN:             "cnsync.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Canvas: CanvasConfig{
			BaseURL: "",
		},
		Sync: SyncConfig{
			MaxAttempts:       3,
			InitialDelay:      500 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxDelay:          15 * time.Second,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// Parse TOML file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// If no config file specified, return defaults
	if configPath == "" {
		return config, nil
	}

	fileConfig, err := LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	return fileConfig, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Database validation
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver must be specified")
	}
	if c.Database.Driver != "sqlite3" {
		return fmt.Errorf("unsupported database driver: %s (must be sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN must be specified")
	}

	// Sync validation
	if c.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("sync max_attempts must be positive")
	}
	if c.Sync.InitialDelay <= 0 {
		return fmt.Errorf("sync initial_delay must be positive")
	}
	if c.Sync.BackoffMultiplier < 1 {
		return fmt.Errorf("sync backoff_multiplier must be at least 1")
	}
	if c.Sync.MaxDelay < c.Sync.InitialDelay {
		return fmt.Errorf("sync max_delay must be at least initial_delay")
	}

	// HTTP validation
	if c.HTTP.Enabled {
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("HTTP port must be between 1 and 65535")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
