package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run records in a SQLite database. Run artifacts
// (trace.jsonl, trajectory.csv) still live under artifactDir/runs/<runID>/.
type SQLiteStore struct {
	db          *sql.DB
	artifactDir string
}

// createdAtLayout has fixed-width fractions so created_at sorts lexically
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	problem    TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	record     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// NewSQLiteStore opens (or creates) the database at path.
// artifactDir is where DeleteRun removes run artifacts from; empty skips it.
func NewSQLiteStore(path, artifactDir string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}

	// A single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	return &SQLiteStore{db: db, artifactDir: artifactDir}, nil
}

// SaveRun inserts or replaces the record for the given run.
func (s *SQLiteStore) SaveRun(runID string, record *RunRecord) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs (run_id, problem, strategy, created_at, record)
		VALUES (?, ?, ?, ?, ?)
	`,
		runID,
		record.Config.Problem,
		record.Config.Strategy,
		record.Timestamp.UTC().Format(createdAtLayout),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	slog.Debug("Run saved", "run_id", runID, "store", KindSQLite)
	return nil
}

// LoadRun retrieves the record for the given run.
func (s *SQLiteStore) LoadRun(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	var data string
	err := s.db.QueryRow(`SELECT record FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize run record: %w", err)
	}
	return &record, nil
}

// ListRuns returns metadata for all stored runs, oldest first.
func (s *SQLiteStore) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT run_id, record FROM runs ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	infos := []RunInfo{}
	for rows.Next() {
		var runID, data string
		if err := rows.Scan(&runID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var record RunRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			slog.Warn("Failed to load run for listing", "run_id", runID, "error", err)
			continue
		}
		infos = append(infos, record.ToInfo())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return infos, nil
}

// DeleteRun removes the record and the run's artifact directory.
func (s *SQLiteStore) DeleteRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return &NotFoundError{RunID: runID}
	}

	if s.artifactDir != "" {
		if err := os.RemoveAll(RunDir(s.artifactDir, runID)); err != nil {
			return fmt.Errorf("failed to remove run artifacts: %w", err)
		}
	}

	slog.Debug("Run deleted", "run_id", runID, "store", KindSQLite)
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
