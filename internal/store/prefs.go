package store

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Preferences is the per-installation sync configuration. It is read at
// the start of each run and mutated only through SavePreferences.
type Preferences struct {
	CanvasBaseURL     string
	CanvasToken       string
	NotionToken       string
	NotionDatabaseID  string
	Buckets           []string
	CourseIDs         []int64
	SyncTime          string // "HH:MM", 24-hour
	FirstSyncComplete bool
	UpdatedAt         time.Time
}

// GetPreferences retrieves the preferences row. Returns ErrNotFound
// when preferences have never been saved.
func (db *DB) GetPreferences() (*Preferences, error) {
	p := &Preferences{}

	query := `
		SELECT canvas_base_url, canvas_token, notion_token, notion_database_id,
		       buckets, course_ids, sync_time, first_sync_complete, updated_at
		FROM preferences
		WHERE id = 1
	`

	var buckets, courseIDs string
	err := db.QueryRow(query).Scan(
		&p.CanvasBaseURL,
		&p.CanvasToken,
		&p.NotionToken,
		&p.NotionDatabaseID,
		&buckets,
		&courseIDs,
		&p.SyncTime,
		&p.FirstSyncComplete,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Buckets = splitList(buckets)
	p.CourseIDs = parseIDList(courseIDs)
	return p, nil
}

// SavePreferences upserts the single preferences row.
func (db *DB) SavePreferences(p *Preferences) error {
	query := `
		INSERT INTO preferences (id, canvas_base_url, canvas_token, notion_token, notion_database_id,
		                         buckets, course_ids, sync_time, first_sync_complete, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			canvas_base_url = excluded.canvas_base_url,
			canvas_token = excluded.canvas_token,
			notion_token = excluded.notion_token,
			notion_database_id = excluded.notion_database_id,
			buckets = excluded.buckets,
			course_ids = excluded.course_ids,
			sync_time = excluded.sync_time,
			first_sync_complete = excluded.first_sync_complete,
			updated_at = excluded.updated_at
	`

	_, err := db.Exec(query,
		p.CanvasBaseURL,
		p.CanvasToken,
		p.NotionToken,
		p.NotionDatabaseID,
		joinList(p.Buckets),
		joinIDList(p.CourseIDs),
		p.SyncTime,
		p.FirstSyncComplete,
		time.Now(),
	)

	return err
}

// MarkFirstSyncComplete flips the first-sync flag after a successful
// run. Subsequent runs skip long-overdue assignments.
func (db *DB) MarkFirstSyncComplete() error {
	result, err := db.Exec(`UPDATE preferences SET first_sync_complete = 1, updated_at = ? WHERE id = 1`, time.Now())
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

// CredentialTokens returns the stored API tokens, empty when
// preferences have never been saved. Satisfies the credential provider
// source interface.
func (db *DB) CredentialTokens() (string, string, error) {
	p, err := db.GetPreferences()
	if IsNotFound(err) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return p.CanvasToken, p.NotionToken, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func parseIDList(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func joinIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
