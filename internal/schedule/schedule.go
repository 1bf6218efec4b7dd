// Package schedule runs the daily automatic sync at the time stored in
// preferences.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"cnsync/internal/store"
	"cnsync/internal/syncer"
)

// TimeSource reads the configured sync time. Backed by the preferences
// store in production.
type TimeSource interface {
	GetPreferences() (*store.Preferences, error)
}

// Scheduler fires one sync run per day at the preferred time. A trigger
// that lands while a run is already active is logged and dropped.
type Scheduler struct {
	svc    *syncer.Service
	prefs  TimeSource
	logger *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// New constructs a Scheduler. Start must be called to arm it.
func New(svc *syncer.Service, prefs TimeSource, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		svc:    svc,
		prefs:  prefs,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start arms the daily trigger and begins the cron loop. Missing
// preferences are not an error: the scheduler stays idle until Reload
// is called after they are saved.
func (s *Scheduler) Start() error {
	if err := s.arm(); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop, waiting for an in-flight trigger callback.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Reload re-reads the sync time from preferences and reschedules the
// daily trigger. Called after preferences are saved.
func (s *Scheduler) Reload() {
	if err := s.arm(); err != nil {
		s.logger.Error("rescheduling daily sync failed", "error", err)
	}
}

func (s *Scheduler) arm() error {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}

	p, err := s.prefs.GetPreferences()
	if store.IsNotFound(err) {
		s.logger.Info("no preferences saved, daily sync not scheduled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}

	spec, err := cronSpec(p.SyncTime)
	if err != nil {
		return err
	}

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("scheduling daily sync: %w", err)
	}
	s.entryID = id
	s.logger.Info("daily sync scheduled", "sync_time", p.SyncTime)
	return nil
}

func (s *Scheduler) fire() {
	runID, err := s.svc.Start(context.Background())
	if errors.Is(err, syncer.ErrSyncInProgress) {
		s.logger.Info("scheduled sync skipped, run already in progress")
		return
	}
	if err != nil {
		s.logger.Error("scheduled sync failed to start", "error", err)
		return
	}
	s.logger.Info("scheduled sync started", "run_id", runID)
}

// cronSpec converts "HH:MM" into a daily cron expression.
func cronSpec(syncTime string) (string, error) {
	parts := strings.SplitN(syncTime, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid sync time %q, want HH:MM", syncTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid sync hour in %q", syncTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid sync minute in %q", syncTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
