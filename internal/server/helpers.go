package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cwbudde/gdprocgen/internal/opt"
	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/cwbudde/gdprocgen/internal/store"
)

// writeJSON encodes v before writing any header, so encoding failures
// (NaN costs of a diverged run) still produce a clean 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// validateJobConfig rejects configurations that would fail immediately
func validateJobConfig(config JobConfig) error {
	if config.Problem == "" {
		return fmt.Errorf("problem is required")
	}

	prob, err := problem.Lookup(config.Problem, config.ProblemSeed())
	if err != nil {
		return err
	}
	if _, err := problem.StartingPoint(prob, config.X0); err != nil {
		return err
	}

	optCfg, err := config.OptConfig()
	if err != nil {
		return err
	}
	return optCfg.Validate()
}

// applyJobDefaults fills zero values the way the optimizer would, so the
// stored configuration states what actually ran
func applyJobDefaults(config *JobConfig) {
	if config.Strategy == "" {
		config.Strategy = string(opt.Batch)
	} else if s, err := opt.ParseStrategy(config.Strategy); err == nil {
		config.Strategy = string(s)
	}
	if config.MaxIters == 0 {
		config.MaxIters = opt.DefaultMaxIters
	}
	if config.StepSize == 0 {
		config.StepSize = opt.DefaultStepSize
	}
}

// loadTrace returns the trace of a job, empty when nothing was written yet
func loadTrace(dataDir, jobID string) ([]store.TraceEntry, error) {
	entries, err := store.ReadTrace(dataDir, jobID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []store.TraceEntry{}
	}
	return entries, nil
}
