// Package syncer drives the assignment sync pipeline: fetch from
// Canvas, classify into buckets, reconcile against Notion, write. Each
// run walks a typed state machine and is recorded in the append-only
// run log.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cnsync/internal/apierr"
	"cnsync/internal/bucket"
	"cnsync/internal/canvas"
	"cnsync/internal/credentials"
	"cnsync/internal/notion"
	"cnsync/internal/store"
)

const (
	// StaleWindow is how far past an assignment's due date updates stop.
	// Applies only after the first successful run; the first run imports
	// everything the bucket filter admits.
	StaleWindow = 14 * 24 * time.Hour

	// maxDescriptionLen caps the page body written on create.
	maxDescriptionLen = 2000
)

// Service coordinates sync runs. At most one run is active per Notion
// database at any time; concurrent triggers are rejected, not queued.
type Service struct {
	store          RunStore
	creds          credentials.Provider
	logger         *slog.Logger
	retry          RetryConfig
	defaultBaseURL string
	now            func() time.Time

	newCanvas func(ctx context.Context, baseURL, token string) CanvasAPI
	newNotion func(token, databaseID string) NotionAPI

	mu     sync.Mutex
	active map[string]*Run // keyed by Notion database ID
}

// NewService wires a Service over the given store and credential
// provider. defaultBaseURL is used when preferences leave the Canvas
// base URL empty.
func NewService(st RunStore, creds credentials.Provider, defaultBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		store:          st,
		creds:          creds,
		logger:         logger,
		retry:          DefaultRetryConfig(),
		defaultBaseURL: defaultBaseURL,
		now:            time.Now,
		newCanvas: func(ctx context.Context, baseURL, token string) CanvasAPI {
			return canvas.New(ctx, baseURL, token)
		},
		newNotion: func(token, databaseID string) NotionAPI {
			return notion.New(token, databaseID)
		},
		active: make(map[string]*Run),
	}
}

// SetRetryConfig overrides the default retry bounds.
func (s *Service) SetRetryConfig(c RetryConfig) {
	s.retry = c
}

// Run is one in-flight execution of the pipeline.
type Run struct {
	id      string
	prefs   store.Preferences
	buckets bucket.Set
	canvas  CanvasAPI
	notion  NotionAPI

	recorder *StateRecorder

	cancelChan chan struct{}
	cancelOnce sync.Once

	mu          sync.Mutex
	state       State
	counts      Counts
	errs        []string
	reason      string
	startedAt   time.Time
	completedAt *time.Time

	assignments []canvas.Assignment
	work        []workItem
	plan        []plannedWrite
}

type workItem struct {
	assignment canvas.Assignment
	bucket     bucket.Bucket
}

type writeOp int

const (
	opCreate writeOp = iota
	opUpdate
)

type plannedWrite struct {
	op          writeOp
	pageID      string
	mapped      notion.Mapped
	description string
	title       string
}

type runConfig struct {
	prefs       store.Preferences
	canvasToken string
	notionToken string
	baseURL     string
	buckets     bucket.Set
}

func (s *Service) resolveConfig() (*runConfig, error) {
	cfg := &runConfig{}

	prefs, err := s.store.GetPreferences()
	if err != nil && !store.IsNotFound(err) {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	if prefs != nil {
		cfg.prefs = *prefs
	}

	cfg.canvasToken, err = s.creds.CanvasToken()
	if err != nil {
		return nil, fmt.Errorf("resolving canvas token: %w", err)
	}
	cfg.notionToken, err = s.creds.NotionToken()
	if err != nil {
		return nil, fmt.Errorf("resolving notion token: %w", err)
	}

	cfg.baseURL = cfg.prefs.CanvasBaseURL
	if cfg.baseURL == "" {
		cfg.baseURL = s.defaultBaseURL
	}

	if len(cfg.prefs.Buckets) == 0 {
		cfg.buckets = bucket.DefaultSet()
	} else {
		cfg.buckets, err = bucket.NewSet(cfg.prefs.Buckets)
		if err != nil {
			return nil, &ConfigError{Missing: []string{"valid bucket selection"}}
		}
	}

	return cfg, nil
}

func (c *runConfig) validateCanvas() *ConfigError {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "canvas base URL")
	}
	if c.canvasToken == "" {
		missing = append(missing, "canvas token")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func (c *runConfig) validateForSync() *ConfigError {
	var missing []string
	if cerr := c.validateCanvas(); cerr != nil {
		missing = append(missing, cerr.Missing...)
	}
	if c.notionToken == "" {
		missing = append(missing, "notion token")
	}
	if c.prefs.NotionDatabaseID == "" {
		missing = append(missing, "notion database id")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// Start triggers a new run and returns its run ID. Configuration is
// validated synchronously; the pipeline itself runs in a goroutine and
// its outcome is observed through Status and the run log.
func (s *Service) Start(ctx context.Context) (string, error) {
	cfg, err := s.resolveConfig()
	if err != nil {
		return "", err
	}
	if cerr := cfg.validateForSync(); cerr != nil {
		return "", cerr
	}

	s.mu.Lock()
	if _, busy := s.active[cfg.prefs.NotionDatabaseID]; busy {
		s.mu.Unlock()
		return "", ErrSyncInProgress
	}

	r := &Run{
		id:         uuid.New().String(),
		prefs:      cfg.prefs,
		buckets:    cfg.buckets,
		state:      &IdleState{},
		cancelChan: make(chan struct{}),
		startedAt:  s.now(),
	}
	// The run outlives the triggering request, so its clients are bound
	// to the background context rather than ctx.
	r.canvas = s.newCanvas(context.Background(), cfg.baseURL, cfg.canvasToken)
	r.notion = s.newNotion(cfg.notionToken, cfg.prefs.NotionDatabaseID)
	s.active[cfg.prefs.NotionDatabaseID] = r
	s.mu.Unlock()

	if err := s.store.CreateSyncRun(&store.SyncRun{
		RunID:     r.id,
		StartedAt: r.startedAt,
		State:     "running",
	}); err != nil {
		s.mu.Lock()
		delete(s.active, cfg.prefs.NotionDatabaseID)
		s.mu.Unlock()
		return "", fmt.Errorf("recording run: %w", err)
	}

	s.logger.Info("sync run triggered",
		"run_id", r.id,
		"buckets", r.buckets.Names(),
		"course_filter", len(r.prefs.CourseIDs),
	)

	go s.run(r)
	return r.id, nil
}

// run walks the state machine until a terminal state. Cancellation is
// honored at assignment boundaries only; the in-flight API call always
// completes.
func (s *Service) run(r *Run) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("sync run panicked", "run_id", r.id, "panic", p)
			r.addError(fmt.Sprintf("internal error: %v", p))
			r.setReason("internal error")
			s.transition(r, &FailedState{})
		}
	}()

	ctx := context.Background()

	for {
		r.mu.Lock()
		state := r.state
		r.mu.Unlock()

		switch st := state.(type) {
		case *IdleState:
			if r.cancelled() {
				s.transition(r, st.ToCancelled())
				continue
			}
			s.transition(r, st.ToFetching())
		case *FetchingState:
			s.runFetching(ctx, r, st)
		case *ClassifyingState:
			s.runClassifying(r, st)
		case *ReconcilingState:
			s.runReconciling(ctx, r, st)
		case *WritingState:
			s.runWriting(ctx, r, st)
		default:
			// Terminal; finish already ran inside transition.
			return
		}
	}
}

// runFetching verifies the Notion schema, then pulls courses and their
// assignments from Canvas, deduplicating by assignment ID.
func (s *Service) runFetching(ctx context.Context, r *Run, state *FetchingState) {
	if err := r.notion.VerifySchema(ctx); err != nil {
		r.addError(err.Error())
		r.setReason("notion database schema verification failed")
		s.transition(r, state.ToFailed())
		return
	}

	var courses []canvas.Course
	err := s.retry.Do(ctx, func() error {
		var err error
		courses, err = r.canvas.ListCourses(ctx)
		return err
	})
	if err != nil {
		r.addError(fmt.Sprintf("listing courses: %v", err))
		r.setReason("canvas course list fetch failed")
		s.transition(r, state.ToFailed())
		return
	}

	selected := courses
	if len(r.prefs.CourseIDs) > 0 {
		want := make(map[int64]bool, len(r.prefs.CourseIDs))
		for _, id := range r.prefs.CourseIDs {
			want[id] = true
		}
		selected = selected[:0]
		for _, c := range courses {
			if want[c.ID] {
				selected = append(selected, c)
			}
		}
	}

	seen := make(map[int64]bool)
	for _, course := range selected {
		if r.cancelled() {
			s.transition(r, state.ToCancelled())
			return
		}

		var assignments []canvas.Assignment
		err := s.retry.Do(ctx, func() error {
			var err error
			assignments, err = r.canvas.ListAssignments(ctx, course.ID)
			return err
		})
		if errors.Is(err, apierr.ErrNotFound) {
			// Course vanished between listing and fetching; sync the rest.
			r.addError(fmt.Sprintf("course %q (%d) not found, skipped", course.Name, course.ID))
			continue
		}
		if err != nil {
			r.addError(fmt.Sprintf("listing assignments for course %d: %v", course.ID, err))
			r.setReason(fmt.Sprintf("canvas assignment fetch failed for course %d", course.ID))
			s.transition(r, state.ToFailed())
			return
		}

		for _, a := range assignments {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			a.CourseName = course.Name
			if a.CourseID == 0 {
				a.CourseID = course.ID
			}
			r.assignments = append(r.assignments, a)
		}
	}

	s.logger.Info("fetch complete",
		"run_id", r.id,
		"courses", len(selected),
		"assignments", len(r.assignments),
	)
	s.transition(r, state.ToClassifying())
}

// runClassifying buckets each fetched assignment and drops the ones the
// preference filter does not admit.
func (s *Service) runClassifying(r *Run, state *ClassifyingState) {
	if r.cancelled() {
		s.transition(r, state.ToCancelled())
		return
	}

	now := s.now()
	for _, a := range r.assignments {
		if !r.buckets.Matches(a.DueAt, a.PointsPossible, now) {
			continue
		}
		r.work = append(r.work, workItem{
			assignment: a,
			bucket:     bucket.Classify(a.DueAt, now),
		})
	}

	s.logger.Info("classification complete",
		"run_id", r.id,
		"matched", len(r.work),
		"dropped", len(r.assignments)-len(r.work),
	)
	s.transition(r, state.ToReconciling())
}

// runReconciling resolves each matched assignment against the Notion
// database and plans the minimal set of writes. Pages whose mapped
// properties already match are counted skipped without a write.
func (s *Service) runReconciling(ctx context.Context, r *Run, state *ReconcilingState) {
	now := s.now()
	var staleBefore time.Time
	if r.prefs.FirstSyncComplete {
		staleBefore = now.Add(-StaleWindow)
	}

	for _, item := range r.work {
		if r.cancelled() {
			s.transition(r, state.ToCancelled())
			return
		}

		mapped := notion.MapAssignment(item.assignment, statusLabel(item.bucket))

		var existing *notion.Existing
		err := s.retry.Do(ctx, func() error {
			var err error
			existing, err = r.notion.FindPageByCanvasID(ctx, item.assignment.ID)
			return err
		})
		if err != nil {
			if errors.Is(err, apierr.ErrAuth) {
				r.addError(err.Error())
				r.setReason("notion authentication failed")
				s.transition(r, state.ToFailed())
				return
			}
			r.addError(fmt.Sprintf("looking up %q (canvas id %d): %v", item.assignment.Name, item.assignment.ID, err))
			r.bumpFailed()
			continue
		}

		if existing == nil {
			r.plan = append(r.plan, plannedWrite{
				op:          opCreate,
				mapped:      mapped,
				description: item.assignment.PlainDescription(maxDescriptionLen),
				title:       item.assignment.Name,
			})
			continue
		}

		if existing.Duplicates > 0 {
			s.logger.Warn("multiple notion pages share a canvas id, first page wins",
				"run_id", r.id,
				"canvas_id", item.assignment.ID,
				"extra_pages", existing.Duplicates,
			)
		}

		// Long-overdue pages stop receiving updates after the initial
		// import; their history is considered settled.
		if !staleBefore.IsZero() && item.assignment.DueAt != nil && item.assignment.DueAt.Before(staleBefore) {
			r.bumpSkipped()
			continue
		}

		if existing.Mapped.Equal(mapped) {
			r.bumpSkipped()
			continue
		}

		r.plan = append(r.plan, plannedWrite{
			op:     opUpdate,
			pageID: existing.PageID,
			mapped: mapped,
			title:  item.assignment.Name,
		})
	}

	s.logger.Info("reconciliation complete",
		"run_id", r.id,
		"planned_writes", len(r.plan),
	)
	s.transition(r, state.ToWriting())
}

// runWriting executes the planned creates and updates sequentially. A
// failed write is recorded and the run moves on; only cancellation
// stops the pass early, counting the unwritten remainder as skipped.
func (s *Service) runWriting(ctx context.Context, r *Run, state *WritingState) {
	for i, pw := range r.plan {
		if r.cancelled() {
			r.mu.Lock()
			r.counts.Skipped += len(r.plan) - i
			r.mu.Unlock()
			s.transition(r, state.ToCancelled())
			return
		}

		var err error
		switch pw.op {
		case opCreate:
			err = s.retry.Do(ctx, func() error {
				_, err := r.notion.CreatePage(ctx, pw.mapped, pw.description)
				return err
			})
			if err == nil {
				r.bumpCreated()
			}
		case opUpdate:
			err = s.retry.Do(ctx, func() error {
				return r.notion.UpdatePage(ctx, pw.pageID, pw.mapped)
			})
			if err == nil {
				r.bumpUpdated()
			}
		}
		if err != nil {
			r.addError(fmt.Sprintf("writing %q: %v", pw.title, err))
			r.bumpFailed()
		}
	}

	s.transition(r, state.ToCompleted())
}

// finish records the terminal result, releases the active slot and
// flips the first-sync flag after the first completed run.
func (s *Service) finish(r *Run) {
	now := s.now()
	r.mu.Lock()
	r.completedAt = &now
	r.mu.Unlock()

	snap := r.snapshot()
	var reason *string
	if snap.Reason != "" {
		reason = &snap.Reason
	}
	record := &store.SyncRun{
		RunID:       snap.RunID,
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
		State:       snap.State,
		Created:     snap.Counts.Created,
		Updated:     snap.Counts.Updated,
		Skipped:     snap.Counts.Skipped,
		Failed:      snap.Counts.Failed,
		Errors:      snap.Errors,
		Reason:      reason,
	}
	if err := s.store.CompleteSyncRun(record); err != nil {
		s.logger.Error("recording run completion failed", "run_id", r.id, "error", err)
	}

	if snap.State == "completed" && !r.prefs.FirstSyncComplete {
		if err := s.store.MarkFirstSyncComplete(); err != nil && !store.IsNotFound(err) {
			s.logger.Error("marking first sync complete failed", "run_id", r.id, "error", err)
		}
	}

	// Release the active slot only after the terminal record is
	// persisted, so a status poll never misses the run entirely.
	s.mu.Lock()
	delete(s.active, r.prefs.NotionDatabaseID)
	s.mu.Unlock()

	s.logger.Info("sync run finished",
		"run_id", r.id,
		"state", snap.State,
		"created", snap.Counts.Created,
		"updated", snap.Counts.Updated,
		"skipped", snap.Counts.Skipped,
		"failed", snap.Counts.Failed,
		"errors", len(snap.Errors),
	)
}

func (s *Service) transition(r *Run, next State) {
	r.mu.Lock()
	prev := r.state.Name()
	r.state = next
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.Record(next)
	}
	s.logger.Info("state transition", "run_id", r.id, "from", prev, "to", next.Name())

	if IsTerminal(next) {
		s.finish(r)
	}
}

// Status reports the current state of a run: a live snapshot when the
// run is active, the persisted record otherwise.
func (s *Service) Status(runID string) (*Status, error) {
	if r := s.activeRun(runID); r != nil {
		snap := r.snapshot()
		return &snap, nil
	}

	rec, err := s.store.GetSyncRun(runID)
	if store.IsNotFound(err) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	snap := statusFromRecord(rec)
	return &snap, nil
}

// Cancel requests a stop at the next assignment boundary. Cancelling a
// finished run is a no-op.
func (s *Service) Cancel(runID string) error {
	if r := s.activeRun(runID); r != nil {
		r.cancel()
		s.logger.Info("cancellation requested", "run_id", runID)
		return nil
	}

	_, err := s.store.GetSyncRun(runID)
	if store.IsNotFound(err) {
		return ErrRunNotFound
	}
	return err
}

// Logs returns the most recent runs, newest first.
func (s *Service) Logs(limit int) ([]Status, error) {
	if limit <= 0 {
		limit = 50
	}
	recs, err := s.store.ListSyncRuns(limit)
	if err != nil {
		return nil, err
	}
	out := make([]Status, len(recs))
	for i := range recs {
		out[i] = statusFromRecord(&recs[i])
	}
	return out, nil
}

// Wait polls until the run reaches a terminal state or ctx is done.
func (s *Service) Wait(ctx context.Context, runID string, poll time.Duration) (*Status, error) {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	for {
		st, err := s.Status(runID)
		if err != nil {
			return nil, err
		}
		switch st.State {
		case "completed", "failed", "cancelled":
			return st, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}

// Courses lists the active Canvas courses using the current
// configuration, for course selection in preferences.
func (s *Service) Courses(ctx context.Context) ([]canvas.Course, error) {
	cfg, err := s.resolveConfig()
	if err != nil {
		return nil, err
	}
	if cerr := cfg.validateCanvas(); cerr != nil {
		return nil, cerr
	}

	client := s.newCanvas(ctx, cfg.baseURL, cfg.canvasToken)
	var courses []canvas.Course
	err = s.retry.Do(ctx, func() error {
		var err error
		courses, err = client.ListCourses(ctx)
		return err
	})
	return courses, err
}

// VerifySchema checks the configured Notion database against the
// required property schema without starting a run.
func (s *Service) VerifySchema(ctx context.Context) error {
	cfg, err := s.resolveConfig()
	if err != nil {
		return err
	}

	var missing []string
	if cfg.notionToken == "" {
		missing = append(missing, "notion token")
	}
	if cfg.prefs.NotionDatabaseID == "" {
		missing = append(missing, "notion database id")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}

	client := s.newNotion(cfg.notionToken, cfg.prefs.NotionDatabaseID)
	return client.VerifySchema(ctx)
}

func (s *Service) activeRun(runID string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.active {
		if r.id == runID {
			return r
		}
	}
	return nil
}

func (r *Run) cancel() {
	r.cancelOnce.Do(func() { close(r.cancelChan) })
}

func (r *Run) cancelled() bool {
	select {
	case <-r.cancelChan:
		return true
	default:
		return false
	}
}

func (r *Run) addError(msg string) {
	r.mu.Lock()
	r.errs = append(r.errs, msg)
	r.mu.Unlock()
}

func (r *Run) setReason(reason string) {
	r.mu.Lock()
	r.reason = reason
	r.mu.Unlock()
}

func (r *Run) bumpCreated() { r.mu.Lock(); r.counts.Created++; r.mu.Unlock() }
func (r *Run) bumpUpdated() { r.mu.Lock(); r.counts.Updated++; r.mu.Unlock() }
func (r *Run) bumpSkipped() { r.mu.Lock(); r.counts.Skipped++; r.mu.Unlock() }
func (r *Run) bumpFailed()  { r.mu.Lock(); r.counts.Failed++; r.mu.Unlock() }

func (r *Run) snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := make([]string, len(r.errs))
	copy(errs, r.errs)

	return Status{
		RunID:       r.id,
		State:       r.state.Name(),
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
		Counts:      r.counts,
		Errors:      errs,
		Reason:      r.reason,
	}
}

func statusFromRecord(rec *store.SyncRun) Status {
	st := Status{
		RunID:       rec.RunID,
		State:       rec.State,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		Counts: Counts{
			Created: rec.Created,
			Updated: rec.Updated,
			Skipped: rec.Skipped,
			Failed:  rec.Failed,
		},
		Errors: rec.Errors,
	}
	if rec.Reason != nil {
		st.Reason = *rec.Reason
	}
	return st
}

func statusLabel(b bucket.Bucket) string {
	switch b {
	case bucket.Past:
		return "Past"
	case bucket.Undated:
		return "Undated"
	case bucket.Upcoming:
		return "Upcoming"
	case bucket.Future:
		return "Future"
	}
	return string(b)
}
