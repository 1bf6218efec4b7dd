package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Database defaults
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("expected driver sqlite3, got %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "cnsync.db" {
		t.Errorf("expected DSN cnsync.db, got %s", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected max_open_conns 25, got %d", cfg.Database.MaxOpenConns)
	}

	// Sync defaults
	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("expected max_attempts 3, got %d", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected initial_delay 500ms, got %v", cfg.Sync.InitialDelay)
	}

	// HTTP defaults
	if !cfg.HTTP.Enabled {
		t.Error("expected HTTP enabled by default")
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP port 8080, got %d", cfg.HTTP.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[database]
dsn = "/var/lib/cnsync/cnsync.db"
max_open_conns = 50

[canvas]
base_url = "https://canvas.example.edu"

[sync]
max_attempts = 5
initial_delay = "1s"

[http]
enabled = false
port = 9000
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Check overridden values
	if cfg.Database.DSN != "/var/lib/cnsync/cnsync.db" {
		t.Errorf("expected overridden DSN, got %s", cfg.Database.DSN)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("expected max_open_conns 50, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Canvas.BaseURL != "https://canvas.example.edu" {
		t.Errorf("expected canvas base URL, got %s", cfg.Canvas.BaseURL)
	}
	if cfg.Sync.MaxAttempts != 5 {
		t.Errorf("expected max_attempts 5, got %d", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.InitialDelay != 1*time.Second {
		t.Errorf("expected initial_delay 1s, got %v", cfg.Sync.InitialDelay)
	}
	if cfg.HTTP.Enabled {
		t.Error("expected HTTP disabled")
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected HTTP port 9000, got %d", cfg.HTTP.Port)
	}

	// Check default values still present
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("expected max_idle_conns default 5, got %d", cfg.Database.MaxIdleConns)
	}
	if cfg.Sync.BackoffMultiplier != 2.0 {
		t.Errorf("expected backoff_multiplier default 2.0, got %v", cfg.Sync.BackoffMultiplier)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.toml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error for empty config path, got %v", err)
	}

	// Should return defaults
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("expected default driver, got %s", cfg.Database.Driver)
	}
}

func TestValidate_Success(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "postgres"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestValidate_EmptyDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.DSN = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty DSN")
	}
}

func TestValidate_InvalidRetryBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max_attempts")
	}

	cfg = DefaultConfig()
	cfg.Sync.BackoffMultiplier = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for backoff multiplier below 1")
	}

	cfg = DefaultConfig()
	cfg.Sync.MaxDelay = cfg.Sync.InitialDelay / 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_delay below initial_delay")
	}
}

func TestValidate_InvalidHTTPPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Port = 99999

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid HTTP port")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "invalid"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}
