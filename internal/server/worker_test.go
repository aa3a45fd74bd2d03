package server

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/gdprocgen/internal/store"
)

func TestRunJob_Success(t *testing.T) {
	dataDir := t.TempDir()
	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	jm := NewJobManager()
	config := JobConfig{
		Problem:  "bowl",
		Strategy: "batch",
		MaxIters: 500,
		StepSize: 0.1,
	}

	job := jm.CreateJob(config)

	if err := runJob(context.Background(), jm, runStore, dataDir, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("Job should be completed, got %s", updated.State)
	}
	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
	if updated.Iterations != 500 {
		t.Errorf("Expected 500 iterations, got %d", updated.Iterations)
	}
	if updated.InitialCost != 61 {
		t.Errorf("Expected initial cost 61, got %f", updated.InitialCost)
	}
	if math.Abs(updated.Cost-20) > 1e-4 {
		t.Errorf("Expected cost near 20, got %f", updated.Cost)
	}
	if len(updated.Point) != 2 || math.Abs(updated.Point[0]+5) > 1e-3 || math.Abs(updated.Point[1]-4) > 1e-3 {
		t.Errorf("Expected point near (-5, 4), got %v", updated.Point)
	}

	// Trace has one entry per iteration
	entries, err := store.ReadTrace(dataDir, job.ID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(entries) != 500 {
		t.Errorf("Expected 500 trace entries, got %d", len(entries))
	}
	if entries[0].Iteration != 1 {
		t.Errorf("First trace entry should be iteration 1, got %d", entries[0].Iteration)
	}

	// Trajectory CSV sits next to the trace
	csvPath := filepath.Join(store.RunDir(dataDir, job.ID), "trajectory.csv")
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("Trajectory CSV missing: %v", err)
	}
	defer f.Close()
	points, err := store.ReadTrajectoryCSV(f)
	if err != nil {
		t.Fatalf("ReadTrajectoryCSV failed: %v", err)
	}
	if len(points) != 500 {
		t.Errorf("Expected 500 trajectory rows, got %d", len(points))
	}

	// Run record is saved under the job ID
	record, err := runStore.LoadRun(job.ID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if record.Iterations != 500 || record.Config.Problem != "bowl" {
		t.Errorf("Unexpected record: %+v", record)
	}
	if len(record.X0) != 2 || record.X0[0] != 0 || record.X0[1] != 0 {
		t.Errorf("Expected x0 (0, 0), got %v", record.X0)
	}
}

func TestRunJob_Maximize(t *testing.T) {
	dataDir := t.TempDir()
	jm := NewJobManager()

	// Climbing the norm moves the point away from the origin
	seed := int64(3)
	job := jm.CreateJob(JobConfig{
		Problem:  "point",
		Strategy: "sequential-stochastic",
		MaxIters: 20,
		StepSize: 0.1,
		Seed:     &seed,
		Maximize: true,
	})

	if err := runJob(context.Background(), jm, nil, dataDir, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.Cost <= updated.InitialCost {
		t.Errorf("Maximizing should raise the cost: initial %f, final %f", updated.InitialCost, updated.Cost)
	}
}

func TestRunJob_X0Override(t *testing.T) {
	dataDir := t.TempDir()
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{Problem: "bowl", MaxIters: 1, X0: []float64{-5, 4}})
	if err := runJob(context.Background(), jm, nil, dataDir, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.InitialCost != 20 {
		t.Errorf("Expected initial cost 20 at the bowl center, got %f", updated.InitialCost)
	}
}

func TestRunJob_Failures(t *testing.T) {
	tests := []struct {
		name   string
		config JobConfig
	}{
		{"unknown problem", JobConfig{Problem: "torus"}},
		{"unknown strategy", JobConfig{Problem: "bowl", Strategy: "newton"}},
		{"wrong dimension", JobConfig{Problem: "bowl", X0: []float64{1, 2, 3}}},
		{"negative budget", JobConfig{Problem: "bowl", MaxIters: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jm := NewJobManager()
			job := jm.CreateJob(tt.config)

			if err := runJob(context.Background(), jm, nil, t.TempDir(), job.ID); err == nil {
				t.Fatal("runJob should fail")
			}

			updated, _ := jm.GetJob(job.ID)
			if updated.State != StateFailed {
				t.Errorf("Job should be failed, got %s", updated.State)
			}
			if updated.Error == "" {
				t.Error("Error message should be set")
			}
		})
	}
}

func TestRunJob_NotFound(t *testing.T) {
	jm := NewJobManager()
	if err := runJob(context.Background(), jm, nil, t.TempDir(), "missing"); err == nil {
		t.Error("runJob should fail for unknown job")
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{Problem: "layout", MaxIters: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runJob(ctx, jm, nil, t.TempDir(), job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}

	// Terminal state is broadcast for stream subscribers
	event, ok := jm.broadcaster.LastEvent(job.ID)
	if !ok || event.State != StateCancelled {
		t.Errorf("Expected cancelled event, got %+v", event)
	}
}
