// Package cli wires the cnsync commands: the long-running server and
// the one-shot operational commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"cnsync/internal/config"
	"cnsync/internal/credentials"
	"cnsync/internal/store"
	"cnsync/internal/syncer"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "cnsync",
	Short: "Sync Canvas assignments into a Notion database",
	Long: `cnsync pulls assignments from the Canvas LMS API, classifies them
into due-date buckets and reconciles them into a Notion database,
creating and updating one page per assignment.`,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file (TOML)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(verifyCmd)
}

// app holds the shared wiring behind every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *store.DB
	svc    *syncer.Service
}

// newApp loads configuration, opens the database and builds the sync
// service. Callers must close the returned app.
func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	db, err := store.OpenWithConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Environment variables override stored tokens.
	creds := credentials.Chain{
		credentials.Env{},
		credentials.FromPreferences{Source: db},
	}

	svc := syncer.NewService(db, creds, cfg.Canvas.BaseURL, logger)
	svc.SetRetryConfig(syncer.RetryConfig{
		MaxAttempts:       cfg.Sync.MaxAttempts,
		InitialDelay:      cfg.Sync.InitialDelay,
		BackoffMultiplier: cfg.Sync.BackoffMultiplier,
		MaxDelay:          cfg.Sync.MaxDelay,
	})

	return &app{cfg: cfg, logger: logger, db: db, svc: svc}, nil
}

func (a *app) close() {
	a.db.Close()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
