package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/gdprocgen/internal/opt"
)

// RunConfig holds the serializable configuration of an optimization run.
// It lives here rather than in the server package to avoid import cycles.
type RunConfig struct {
	Problem  string  `json:"problem" yaml:"problem"`
	Strategy string  `json:"strategy" yaml:"strategy"` // batch, sequential-stochastic, random-stochastic
	MaxIters int     `json:"maxIters" yaml:"max_iters"`
	StepSize float64 `json:"stepSize" yaml:"step_size"`
	Seed     *int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Maximize bool    `json:"maximize,omitempty" yaml:"maximize,omitempty"`

	// X0 overrides the problem's starting point when set
	X0 []float64 `json:"x0,omitempty" yaml:"x0,omitempty"`

	Convergence      opt.ConvergenceConfig `json:"convergence" yaml:"convergence"`
	AbortOnNonFinite bool                  `json:"abortOnNonFinite,omitempty" yaml:"abort_on_non_finite,omitempty"`
}

// ProblemSeed is the seed used for randomized starting points
func (c RunConfig) ProblemSeed() int64 {
	if c.Seed != nil {
		return *c.Seed
	}
	return 0
}

// OptConfig converts the run configuration into an optimizer configuration.
// The callback is left for the caller to attach.
func (c RunConfig) OptConfig() (opt.Config, error) {
	strategy := opt.Batch
	if c.Strategy != "" {
		s, err := opt.ParseStrategy(c.Strategy)
		if err != nil {
			return opt.Config{}, err
		}
		strategy = s
	}

	cfg := opt.Config{
		MaxIters:         c.MaxIters,
		StepSize:         c.StepSize,
		Strategy:         strategy,
		Convergence:      c.Convergence,
		AbortOnNonFinite: c.AbortOnNonFinite,
	}
	if c.Seed != nil {
		seed := *c.Seed
		cfg.Seed = &seed
	}
	return cfg, nil
}

// RunRecord is the saved outcome of an optimization run. Resuming a run
// restarts descent from FinalPoint with a fresh estimator; the sequential
// cursor and random generator state are not persisted.
type RunRecord struct {
	// RunID is the unique identifier for this run
	RunID string `json:"runId"`

	// X0 is the starting point of the run
	X0 []float64 `json:"x0"`

	// FinalPoint is the point reached after the last iteration
	FinalPoint []float64 `json:"finalPoint"`

	// FinalCost is the cost at FinalPoint on the caller's function
	FinalCost float64 `json:"finalCost"`

	// InitialCost is the cost at X0
	InitialCost float64 `json:"initialCost"`

	// Iterations is the number of completed iterations, including those of
	// resumed predecessors
	Iterations int `json:"iterations"`

	// Converged records whether early stopping ended the run
	Converged bool `json:"converged"`

	// ResumedFrom names the run this one continued, if any
	ResumedFrom string `json:"resumedFrom,omitempty"`

	// Timestamp records when this record was created
	Timestamp time.Time `json:"timestamp"`

	Config RunConfig `json:"config"`
}

// RunInfo contains metadata about a run without the point data.
type RunInfo struct {
	RunID      string    `json:"runId"`
	Problem    string    `json:"problem"`
	Strategy   string    `json:"strategy"`
	FinalCost  float64   `json:"finalCost"`
	Iterations int       `json:"iterations"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRunRecord creates a record from an optimizer result.
func NewRunRecord(runID string, x0 opt.Point, result *opt.Result, config RunConfig) *RunRecord {
	return &RunRecord{
		RunID:       runID,
		X0:          x0.Clone(),
		FinalPoint:  result.X.Clone(),
		FinalCost:   result.Cost,
		InitialCost: result.InitialCost,
		Iterations:  result.Iterations,
		Converged:   result.Converged,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:      r.RunID,
		Problem:    r.Config.Problem,
		Strategy:   r.Config.Strategy,
		FinalCost:  r.FinalCost,
		Iterations: r.Iterations,
		Timestamp:  r.Timestamp,
	}
}

// Validate checks if the record has valid data.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(r.FinalPoint) == 0 {
		return &ValidationError{Field: "FinalPoint", Reason: "cannot be empty"}
	}
	if len(r.X0) != 0 && len(r.X0) != len(r.FinalPoint) {
		return &ValidationError{
			Field:  "FinalPoint",
			Reason: fmt.Sprintf("length mismatch: expected %d coordinates, got %d", len(r.X0), len(r.FinalPoint)),
		}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.Problem == "" {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	if r.Config.Strategy != "" {
		if _, err := opt.ParseStrategy(r.Config.Strategy); err != nil {
			return &ValidationError{Field: "Config.Strategy", Reason: err.Error()}
		}
	}
	if r.Config.MaxIters < 0 {
		return &ValidationError{Field: "Config.MaxIters", Reason: "cannot be negative"}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this run can be resumed with the given config.
func (r *RunRecord) IsCompatible(config RunConfig) error {
	if r.Config.Problem != config.Problem {
		return &CompatibilityError{
			Field:    "Problem",
			Expected: r.Config.Problem,
			Actual:   config.Problem,
		}
	}
	if r.Config.Maximize != config.Maximize {
		return &CompatibilityError{
			Field:    "Maximize",
			Expected: fmt.Sprintf("%t", r.Config.Maximize),
			Actual:   fmt.Sprintf("%t", config.Maximize),
		}
	}
	if len(config.X0) != 0 && len(config.X0) != len(r.FinalPoint) {
		return &CompatibilityError{
			Field:    "X0",
			Expected: fmt.Sprintf("%d coordinates", len(r.FinalPoint)),
			Actual:   fmt.Sprintf("%d coordinates", len(config.X0)),
		}
	}
	return nil
}

// CompatibilityError represents a resume compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
