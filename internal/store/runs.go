package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SyncRun is one execution of the sync pipeline. Rows are append-only:
// a run is created when triggered and completed exactly once; nothing
// ever mutates or deletes it afterwards.
type SyncRun struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt *time.Time
	State       string
	Created     int
	Updated     int
	Skipped     int
	Failed      int
	Errors      []string
	Reason      *string
}

// CreateSyncRun records a newly triggered run in the running state.
func (db *DB) CreateSyncRun(run *SyncRun) error {
	errJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_runs (run_id, started_at, completed_at, state, created_count, updated_count, skipped_count, failed_count, errors, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query,
		run.RunID,
		run.StartedAt,
		run.CompletedAt,
		run.State,
		run.Created,
		run.Updated,
		run.Skipped,
		run.Failed,
		errJSON,
		run.Reason,
	)

	return err
}

// CompleteSyncRun writes the terminal state, final counts and error
// list for a run.
func (db *DB) CompleteSyncRun(run *SyncRun) error {
	errJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return err
	}

	now := time.Now()
	if run.CompletedAt == nil {
		run.CompletedAt = &now
	}

	query := `
		UPDATE sync_runs
		SET completed_at = ?, state = ?, created_count = ?, updated_count = ?, skipped_count = ?, failed_count = ?, errors = ?, reason = ?
		WHERE run_id = ?
	`

	result, err := db.Exec(query,
		run.CompletedAt,
		run.State,
		run.Created,
		run.Updated,
		run.Skipped,
		run.Failed,
		errJSON,
		run.Reason,
		run.RunID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSyncRun retrieves a run by its run ID.
func (db *DB) GetSyncRun(runID string) (*SyncRun, error) {
	query := `
		SELECT run_id, started_at, completed_at, state, created_count, updated_count, skipped_count, failed_count, errors, reason
		FROM sync_runs
		WHERE run_id = ?
	`
	return db.scanRun(db.QueryRow(query, runID))
}

// ListSyncRuns retrieves the most recent runs, newest first.
func (db *DB) ListSyncRuns(limit int) ([]SyncRun, error) {
	query := `
		SELECT run_id, started_at, completed_at, state, created_count, updated_count, skipped_count, failed_count, errors, reason
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []SyncRun{}
	for rows.Next() {
		run, err := db.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanRun(row rowScanner) (*SyncRun, error) {
	run := &SyncRun{}
	var errJSON string

	err := row.Scan(
		&run.RunID,
		&run.StartedAt,
		&run.CompletedAt,
		&run.State,
		&run.Created,
		&run.Updated,
		&run.Skipped,
		&run.Failed,
		&errJSON,
		&run.Reason,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(errJSON), &run.Errors); err != nil {
		return nil, fmt.Errorf("decoding run errors: %w", err)
	}
	return run, nil
}

func marshalErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	data, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("encoding run errors: %w", err)
	}
	return string(data), nil
}
