package store

import (
	"fmt"
)

// migration is one ordered schema change. Statements are embedded
// rather than loaded from a directory: the schema is small and ships
// with the binary.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "preferences",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS preferences (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				canvas_base_url TEXT NOT NULL DEFAULT '',
				canvas_token TEXT NOT NULL DEFAULT '',
				notion_token TEXT NOT NULL DEFAULT '',
				notion_database_id TEXT NOT NULL DEFAULT '',
				buckets TEXT NOT NULL DEFAULT '',
				course_ids TEXT NOT NULL DEFAULT '',
				sync_time TEXT NOT NULL DEFAULT '23:59',
				first_sync_complete INTEGER NOT NULL DEFAULT 0,
				updated_at TIMESTAMP NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "sync_runs",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS sync_runs (
				run_id TEXT PRIMARY KEY,
				started_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP,
				state TEXT NOT NULL,
				created_count INTEGER NOT NULL DEFAULT 0,
				updated_count INTEGER NOT NULL DEFAULT 0,
				skipped_count INTEGER NOT NULL DEFAULT 0,
				failed_count INTEGER NOT NULL DEFAULT 0,
				errors TEXT NOT NULL DEFAULT '[]',
				reason TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at DESC)`,
		},
	},
}

// migrate applies pending migrations in version order, tracking applied
// versions in schema_migrations.
func (db *DB) migrate() error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}
