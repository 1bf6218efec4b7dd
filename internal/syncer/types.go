package syncer

import (
	"context"
	"time"

	"cnsync/internal/canvas"
	"cnsync/internal/notion"
	"cnsync/internal/store"
)

// Counts holds per-run outcome counters.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Status is a point-in-time view of a run, served to the CLI and web
// trigger surface.
type Status struct {
	RunID       string     `json:"run_id"`
	State       string     `json:"state"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Counts      Counts     `json:"counts"`
	Errors      []string   `json:"errors"`
	Reason      string     `json:"reason,omitempty"`
}

// CanvasAPI is the slice of the Canvas client the service consumes.
type CanvasAPI interface {
	ListCourses(ctx context.Context) ([]canvas.Course, error)
	ListAssignments(ctx context.Context, courseID int64) ([]canvas.Assignment, error)
}

// NotionAPI is the slice of the Notion client the service consumes.
type NotionAPI interface {
	VerifySchema(ctx context.Context) error
	FindPageByCanvasID(ctx context.Context, canvasID int64) (*notion.Existing, error)
	CreatePage(ctx context.Context, m notion.Mapped, description string) (string, error)
	UpdatePage(ctx context.Context, pageID string, m notion.Mapped) error
}

// RunStore is the persistence the service needs: read-one preferences,
// append-one run, complete-one run.
type RunStore interface {
	GetPreferences() (*store.Preferences, error)
	MarkFirstSyncComplete() error
	CreateSyncRun(run *store.SyncRun) error
	CompleteSyncRun(run *store.SyncRun) error
	GetSyncRun(runID string) (*store.SyncRun, error)
	ListSyncRuns(limit int) ([]store.SyncRun, error)
}
