package server

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/gdprocgen/internal/opt"
	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/cwbudde/gdprocgen/internal/store"
)

// progressInterval throttles progress events to 2 updates per second
const progressInterval = 500 * time.Millisecond

// runJob executes an optimization job in the background.
// The trace is written under dataDir; the run record is saved to runStore
// when it is not nil.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, dataDir string, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "problem", cfg.Problem, "strategy", cfg.Strategy)

	prob, err := problem.Lookup(cfg.Problem, cfg.ProblemSeed())
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	x0, err := problem.StartingPoint(prob, cfg.X0)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	optCfg, err := cfg.OptConfig()
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	trace, err := store.NewTraceWriter(dataDir, jobID, false)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	defer trace.Close()

	traceErrors := 0
	optCfg.Callback = func(iteration int, x opt.Point, cost float64) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = iteration
			j.Cost = cost
			j.Point = x
		})

		// JSON cannot carry NaN or Inf, those iterations stay out of the trace
		if math.IsNaN(cost) || math.IsInf(cost, 0) || !x.Finite() {
			traceErrors++
			return
		}
		if err := trace.Write(store.TraceEntry{Iteration: iteration, Cost: cost, Timestamp: time.Now(), Point: x}); err != nil {
			traceErrors++
			slog.Debug("Failed to write trace entry", "job_id", jobID, "iteration", iteration, "error", err)
		}
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	start := time.Now()
	optimizer := opt.NewGradientDescent(optCfg, cfg.Maximize)
	result, err := optimizer.Run(prob.Cost, x0)
	close(progressDone)
	elapsed := time.Since(start)

	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation after optimization
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	if traceErrors > 0 {
		slog.Warn("Some iterations were not traced", "job_id", jobID, "skipped", traceErrors)
	}
	if err := trace.Close(); err != nil {
		slog.Warn("Failed to close trace", "job_id", jobID, "error", err)
	}
	saveArtifacts(runStore, dataDir, jobID, x0, result, cfg)

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Point = result.X
		j.Cost = result.Cost
		j.InitialCost = result.InitialCost
		j.Iterations = result.Iterations
		j.Converged = result.Converged
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"initial_cost", result.InitialCost,
		"final_cost", result.Cost,
		"iterations", result.Iterations,
		"converged", result.Converged,
	)

	broadcastJob(jm, jobID)
	return nil
}

// saveArtifacts writes the trajectory CSV next to the trace and saves the
// run record. Failures are logged; the job result is kept in memory either way.
func saveArtifacts(runStore store.Store, dataDir, jobID string, x0 opt.Point, result *opt.Result, cfg store.RunConfig) {
	entries, err := store.ReadTrace(dataDir, jobID)
	if err != nil {
		slog.Warn("Failed to read trace", "job_id", jobID, "error", err)
	} else if path, err := store.SaveTrajectoryCSV(dataDir, jobID, entries); err != nil {
		slog.Warn("Failed to save trajectory", "job_id", jobID, "error", err)
	} else {
		slog.Debug("Trajectory saved", "job_id", jobID, "path", path)
	}

	if runStore == nil {
		return
	}
	record := store.NewRunRecord(jobID, x0, result, cfg)
	if err := runStore.SaveRun(jobID, record); err != nil {
		slog.Error("Failed to save run record", "job_id", jobID, "error", err)
	}
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !broadcastJob(jm, jobID) {
				return
			}
		}
	}
}

// broadcastJob sends the job's current state to its subscribers
func broadcastJob(jm *JobManager, jobID string) bool {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return false
	}
	jm.broadcaster.Broadcast(newProgressEvent(job))
	return true
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	broadcastJob(jm, jobID)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
	broadcastJob(jm, jobID)
}
