package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/gdprocgen/internal/opt"
	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/cwbudde/gdprocgen/internal/store"
	"github.com/google/uuid"
)

// progressEvery is how many iterations pass between progress log lines
const progressEvery = 100

// runOutcome is what a finished CLI run produced
type runOutcome struct {
	Record  *store.RunRecord
	Result  *opt.Result
	CSVPath string
	Elapsed time.Duration

	// Saved is false when the run diverged and JSON could not hold its result
	Saved bool
}

// executeRun optimizes cfg's problem from x0 and persists the trace,
// trajectory CSV, and run record under a fresh run ID. When prev is set the
// new record continues it: iterations accumulate and ResumedFrom links back.
func executeRun(cfg store.RunConfig, x0 opt.Point, baseDir string, runStore store.Store, prev *store.RunRecord) (*runOutcome, error) {
	prob, err := problem.Lookup(cfg.Problem, cfg.ProblemSeed())
	if err != nil {
		return nil, err
	}

	optCfg, err := cfg.OptConfig()
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	trace, err := store.NewTraceWriter(baseDir, runID, false)
	if err != nil {
		return nil, err
	}
	defer trace.Close()

	skipped := 0
	optCfg.Callback = func(iteration int, x opt.Point, cost float64) {
		if iteration%progressEvery == 0 {
			slog.Debug("Progress", "run_id", runID, "iteration", iteration, "cost", cost)
		}
		if math.IsNaN(cost) || math.IsInf(cost, 0) || !x.Finite() {
			skipped++
			return
		}
		if err := trace.Write(store.TraceEntry{Iteration: iteration, Cost: cost, Timestamp: time.Now(), Point: x}); err != nil {
			skipped++
		}
	}

	slog.Info("Starting optimization",
		"run_id", runID,
		"problem", cfg.Problem,
		"strategy", optCfg.Strategy,
		"max_iters", cfg.MaxIters,
		"maximize", cfg.Maximize,
	)

	start := time.Now()
	result, err := opt.NewGradientDescent(optCfg, cfg.Maximize).Run(prob.Cost, x0)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if skipped > 0 {
		slog.Warn("Some iterations were not traced", "run_id", runID, "skipped", skipped)
	}
	if err := trace.Close(); err != nil {
		return nil, err
	}

	entries, err := store.ReadTrace(baseDir, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	csvPath, err := store.SaveTrajectoryCSV(baseDir, runID, entries)
	if err != nil {
		return nil, err
	}

	record := store.NewRunRecord(runID, x0, result, cfg)
	if prev != nil {
		record.ResumedFrom = prev.RunID
		record.Iterations += prev.Iterations
	}
	saved := false
	if diverged(result) {
		slog.Warn("Run diverged, record not saved", "run_id", runID, "final_cost", result.Cost)
	} else {
		if err := runStore.SaveRun(runID, record); err != nil {
			return nil, err
		}
		saved = true
	}

	slog.Info("Optimization complete",
		"run_id", runID,
		"elapsed", elapsed,
		"initial_cost", result.InitialCost,
		"final_cost", result.Cost,
		"iterations", result.Iterations,
		"converged", result.Converged,
	)

	return &runOutcome{Record: record, Result: result, CSVPath: csvPath, Elapsed: elapsed, Saved: saved}, nil
}

// diverged reports whether the result holds NaN or Inf values
func diverged(r *opt.Result) bool {
	return math.IsNaN(r.Cost) || math.IsInf(r.Cost, 0) ||
		math.IsNaN(r.InitialCost) || math.IsInf(r.InitialCost, 0) ||
		!r.X.Finite()
}

// printOutcome writes the human-readable run summary
func printOutcome(w io.Writer, out *runOutcome) {
	r := out.Result
	fmt.Fprintf(w, "Run %s (%s, %s)\n", out.Record.RunID, out.Record.Config.Problem, r.Strategy)
	fmt.Fprintf(w, "  Cost: %.6g -> %.6g after %d iterations", r.InitialCost, r.Cost, r.Iterations)
	if r.Converged {
		fmt.Fprint(w, " (converged)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Point: %s\n", formatPoint(r.X))
	fmt.Fprintf(w, "  Trajectory: %s\n", out.CSVPath)
	if !out.Saved {
		fmt.Fprintln(w, "  Diverged: run record was not saved")
	}
}

// formatPoint renders coordinates compactly
func formatPoint(x []float64) string {
	s := "["
	for i, v := range x {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%.4g", v)
	}
	return s + "]"
}
