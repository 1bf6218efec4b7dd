package syncer

import (
	"errors"
	"strings"
)

// Standard errors
var (
	// ErrSyncInProgress rejects a trigger while a run is active for the
	// same database. Triggers are never queued.
	ErrSyncInProgress = errors.New("sync: a run is already in progress")
	// ErrRunNotFound is returned for status or cancel requests naming an
	// unknown run ID.
	ErrRunNotFound = errors.New("sync: run not found")
)

// ConfigError reports missing or invalid configuration detected at
// trigger time, before the run starts. Fatal: the user must fix the
// settings, nothing is retried.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "sync: missing configuration: " + strings.Join(e.Missing, ", ")
}
