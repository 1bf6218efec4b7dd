// Package web exposes the sync trigger surface over HTTP: trigger and
// cancel runs, read run status and history, list courses, and manage
// preferences.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"cnsync/internal/bucket"
	"cnsync/internal/canvas"
	"cnsync/internal/notion"
	"cnsync/internal/store"
	"cnsync/internal/syncer"
)

// SyncService is the slice of the sync service the handlers consume.
type SyncService interface {
	Start(ctx context.Context) (string, error)
	Status(runID string) (*syncer.Status, error)
	Cancel(runID string) error
	Logs(limit int) ([]syncer.Status, error)
	Courses(ctx context.Context) ([]canvas.Course, error)
}

// PreferencesStore is the slice of the store the server needs for the
// preferences endpoints.
type PreferencesStore interface {
	GetPreferences() (*store.Preferences, error)
	SavePreferences(p *store.Preferences) error
}

// Server provides the HTTP API over the sync service.
type Server struct {
	svc    SyncService
	prefs  PreferencesStore
	logger *slog.Logger
	mux    *http.ServeMux

	// OnPreferencesSaved, when set, is invoked after a successful PUT
	// to /api/preferences so the scheduler can pick up a changed sync
	// time without a restart.
	OnPreferencesSaved func()
}

// NewServer constructs a new Server.
func NewServer(svc SyncService, prefs PreferencesStore, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		prefs:  prefs,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/sync", s.handleTrigger)
	s.mux.HandleFunc("GET /api/sync/{runID}", s.handleStatus)
	s.mux.HandleFunc("POST /api/sync/{runID}/cancel", s.handleCancel)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	s.mux.HandleFunc("PUT /api/preferences", s.handlePutPreferences)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	runID, err := s.svc.Start(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.PathValue("runID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	if err := s.svc.Cancel(runID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := s.svc.Logs(limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": logs})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.svc.Courses(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

// preferencesPayload is the wire shape of preferences. Tokens are write
// only: reads report whether a token is stored, never its value, and an
// empty token on write keeps the stored one.
type preferencesPayload struct {
	CanvasBaseURL    string   `json:"canvas_base_url"`
	CanvasToken      string   `json:"canvas_token,omitempty"`
	NotionToken      string   `json:"notion_token,omitempty"`
	NotionDatabaseID string   `json:"notion_database_id"`
	Buckets          []string `json:"buckets"`
	CourseIDs        []int64  `json:"course_ids"`
	SyncTime         string   `json:"sync_time"`

	CanvasTokenSet    bool `json:"canvas_token_set,omitempty"`
	NotionTokenSet    bool `json:"notion_token_set,omitempty"`
	FirstSyncComplete bool `json:"first_sync_complete,omitempty"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, _ *http.Request) {
	p, err := s.prefs.GetPreferences()
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "preferences not configured")
		return
	}
	if err != nil {
		s.logger.Error("loading preferences failed", "error", err)
		writeError(w, http.StatusInternalServerError, "loading preferences failed")
		return
	}

	writeJSON(w, http.StatusOK, preferencesPayload{
		CanvasBaseURL:     p.CanvasBaseURL,
		NotionDatabaseID:  p.NotionDatabaseID,
		Buckets:           p.Buckets,
		CourseIDs:         p.CourseIDs,
		SyncTime:          p.SyncTime,
		CanvasTokenSet:    p.CanvasToken != "",
		NotionTokenSet:    p.NotionToken != "",
		FirstSyncComplete: p.FirstSyncComplete,
	})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var payload preferencesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if payload.SyncTime != "" {
		if err := validateSyncTime(payload.SyncTime); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if len(payload.Buckets) > 0 {
		if _, err := bucket.NewSet(payload.Buckets); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	current, err := s.prefs.GetPreferences()
	if err != nil && !store.IsNotFound(err) {
		s.logger.Error("loading preferences failed", "error", err)
		writeError(w, http.StatusInternalServerError, "loading preferences failed")
		return
	}
	if current == nil {
		current = &store.Preferences{}
	}

	current.CanvasBaseURL = payload.CanvasBaseURL
	current.NotionDatabaseID = payload.NotionDatabaseID
	current.Buckets = payload.Buckets
	current.CourseIDs = payload.CourseIDs
	if payload.SyncTime != "" {
		current.SyncTime = payload.SyncTime
	}
	if payload.CanvasToken != "" {
		current.CanvasToken = payload.CanvasToken
	}
	if payload.NotionToken != "" {
		current.NotionToken = payload.NotionToken
	}

	if err := s.prefs.SavePreferences(current); err != nil {
		s.logger.Error("saving preferences failed", "error", err)
		writeError(w, http.StatusInternalServerError, "saving preferences failed")
		return
	}

	if s.OnPreferencesSaved != nil {
		s.OnPreferencesSaved()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// validateSyncTime checks the "HH:MM" 24-hour format.
func validateSyncTime(v string) error {
	var h, m int
	if _, err := fmt.Sscanf(v, "%02d:%02d", &h, &m); err != nil || len(v) != 5 || v[2] != ':' {
		return fmt.Errorf("sync_time must be HH:MM, got %q", v)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("sync_time out of range: %q", v)
	}
	return nil
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var cfgErr *syncer.ConfigError
	var schemaErr *notion.SchemaError

	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusBadRequest, cfgErr.Error())
	case errors.Is(err, syncer.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, syncer.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusUnprocessableEntity, schemaErr.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Headers are already out; an encode failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}
