package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store defines the interface for run record persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun saves the record for the given run, overwriting any previous one.
	SaveRun(runID string, record *RunRecord) error

	// LoadRun retrieves the record for the given run.
	// Returns ErrNotFound if no record exists for this runID.
	LoadRun(runID string) (*RunRecord, error)

	// ListRuns returns metadata for all stored runs, oldest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the record and every artifact of the run
	// (trace.jsonl, trajectory.csv).
	// Returns ErrNotFound if no record exists for this runID.
	DeleteRun(runID string) error

	// Close releases any resources held by the store.
	Close() error
}

// Kinds of store accepted by Open
const (
	KindFS     = "fs"
	KindSQLite = "sqlite"
)

// sqliteFile is the database file name used by Open for KindSQLite
const sqliteFile = "runs.db"

// Open creates the store of the given kind rooted at dataDir.
func Open(kind, dataDir string) (Store, error) {
	switch kind {
	case KindFS, "":
		return NewFSStore(dataDir)
	case KindSQLite:
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(dataDir, sqliteFile), dataDir)
	default:
		return nil, fmt.Errorf("unknown store kind: %q", kind)
	}
}

// RunDir returns the directory holding a run's artifacts.
func RunDir(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID)
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
