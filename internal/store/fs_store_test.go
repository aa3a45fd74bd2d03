package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestRecord creates a run record with test data.
func createTestRecord(runID string) *RunRecord {
	seed := int64(42)
	return &RunRecord{
		RunID:       runID,
		X0:          []float64{0, 0},
		FinalPoint:  []float64{-4.9999, 4.0001},
		FinalCost:   20.0000002,
		InitialCost: 61,
		Iterations:  500,
		Timestamp:   time.Now(),
		Config: RunConfig{
			Problem:  "bowl",
			Strategy: "random-stochastic",
			MaxIters: 500,
			StepSize: 0.1,
			Seed:     &seed,
		},
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != tempDir {
		t.Errorf("Expected base dir %s, got %s", tempDir, store.BaseDir())
	}

	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-123"
	if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "run.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Run file was not created at %s", expectedPath)
	}

	// Verify no temp file remains
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save")
	}
}

func TestSaveRun_InvalidInput(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun("", createTestRecord("any")); err == nil {
		t.Error("Expected error for empty runID")
	}
	if err := store.SaveRun("run", nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-456"
	original := createTestRecord(runID)
	if err := store.SaveRun(runID, original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(runID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.FinalCost != original.FinalCost {
		t.Errorf("FinalCost mismatch: expected %f, got %f", original.FinalCost, loaded.FinalCost)
	}
	if len(loaded.FinalPoint) != len(original.FinalPoint) {
		t.Fatalf("FinalPoint length mismatch: expected %d, got %d", len(original.FinalPoint), len(loaded.FinalPoint))
	}
	for i := range original.FinalPoint {
		if loaded.FinalPoint[i] != original.FinalPoint[i] {
			t.Errorf("FinalPoint[%d] mismatch: expected %f, got %f", i, original.FinalPoint[i], loaded.FinalPoint[i])
		}
	}
	if loaded.Config.Seed == nil || *loaded.Config.Seed != 42 {
		t.Errorf("Seed was not preserved: %v", loaded.Config.Seed)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadRun_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runDir := filepath.Join(tempDir, "runs", "broken")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "run.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupted file: %v", err)
	}

	if _, err := store.LoadRun("broken"); err == nil {
		t.Error("Expected error for corrupted record")
	}

	// Listing skips corrupted records
	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected corrupted run to be skipped, got %d runs", len(infos))
	}
}

func TestListRuns(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected no runs, got %d", len(infos))
	}

	base := time.Now()
	for i := 0; i < 3; i++ {
		runID := fmt.Sprintf("run-%d", i)
		record := createTestRecord(runID)
		record.Timestamp = base.Add(-time.Duration(i) * time.Hour)
		if err := store.SaveRun(runID, record); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	infos, err = store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}

	// Oldest first
	if infos[0].RunID != "run-2" || infos[2].RunID != "run-0" {
		t.Errorf("Runs not sorted by timestamp: %s, %s, %s", infos[0].RunID, infos[1].RunID, infos[2].RunID)
	}
	if infos[0].Problem != "bowl" {
		t.Errorf("Expected problem bowl, got %s", infos[0].Problem)
	}
}

func TestListRuns_SkipsTraceOnlyDirs(t *testing.T) {
	store, tempDir := setupTestStore(t)

	writer, err := NewTraceWriter(tempDir, "in-progress", false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	writer.Close()

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected runs without a record to be skipped, got %d", len(infos))
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-delete"
	if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// Add a trajectory artifact
	if _, err := SaveTrajectoryCSV(tempDir, runID, []TraceEntry{{Iteration: 1, Point: []float64{1, 2}}}); err != nil {
		t.Fatalf("SaveTrajectoryCSV failed: %v", err)
	}

	if err := store.DeleteRun(runID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "runs", runID)); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}

	if err := store.DeleteRun(runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFSStore_ConcurrentSaves(t *testing.T) {
	store, _ := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			runID := fmt.Sprintf("concurrent-%d", i)
			if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
				t.Errorf("SaveRun failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 10 {
		t.Errorf("Expected 10 runs, got %d", len(infos))
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	fsStore, err := Open(KindFS, dir)
	if err != nil {
		t.Fatalf("Open(fs) failed: %v", err)
	}
	if _, ok := fsStore.(*FSStore); !ok {
		t.Errorf("Expected *FSStore, got %T", fsStore)
	}

	sqlStore, err := Open(KindSQLite, dir)
	if err != nil {
		t.Fatalf("Open(sqlite) failed: %v", err)
	}
	defer sqlStore.Close()
	if _, ok := sqlStore.(*SQLiteStore); !ok {
		t.Errorf("Expected *SQLiteStore, got %T", sqlStore)
	}

	if _, err := Open("redis", dir); err == nil {
		t.Error("Expected error for unknown store kind")
	}
}
