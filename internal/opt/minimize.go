package opt

import (
	"log/slog"
	"math"
)

const (
	// DefaultMaxIters is the iteration budget used when Config.MaxIters is zero.
	DefaultMaxIters = 500
	// DefaultStepSize is the fixed step (nabla) used when Config.StepSize is zero.
	DefaultStepSize = 0.1
)

// Callback observes each completed iteration. x is a copy the callback may
// keep; cost is evaluated on the caller's original function.
type Callback func(iteration int, x Point, cost float64)

// Config holds the settings of a single descent run.
type Config struct {
	MaxIters int
	StepSize float64
	Strategy Strategy

	// Seed makes RandomStochastic runs reproducible. Nil seeds from the clock.
	Seed *int64

	Callback Callback

	// Convergence enables optional early stopping. Disabled by default: a run
	// always performs exactly MaxIters iterations.
	Convergence ConvergenceConfig

	// AbortOnNonFinite stops the run with ErrNonFinite as soon as the point
	// or gradient contains NaN or Inf. Off by default, which lets non-finite
	// values propagate into the result.
	AbortOnNonFinite bool
}

// DefaultConfig returns a batch configuration with the default budget and step.
func DefaultConfig() Config {
	return Config{
		MaxIters:    DefaultMaxIters,
		StepSize:    DefaultStepSize,
		Strategy:    Batch,
		Convergence: DisabledConvergenceConfig(),
	}
}

// Validate fills zero values with defaults and rejects the rest of the
// invalid settings.
func (c *Config) Validate() error {
	if c.MaxIters == 0 {
		c.MaxIters = DefaultMaxIters
	}
	if c.MaxIters < 0 {
		return &ConfigError{Field: "MaxIters", Reason: "must be positive"}
	}
	if c.StepSize == 0 {
		c.StepSize = DefaultStepSize
	}
	if c.StepSize < 0 || math.IsNaN(c.StepSize) || math.IsInf(c.StepSize, 0) {
		return &ConfigError{Field: "StepSize", Reason: "must be a positive finite number"}
	}
	if c.Strategy == "" {
		c.Strategy = Batch
	}
	if c.Convergence.Enabled && c.Convergence.Patience <= 0 {
		return &ConfigError{Field: "Convergence.Patience", Reason: "must be positive when enabled"}
	}
	return nil
}

// Result is the outcome of a run.
type Result struct {
	X           Point    `json:"x"`
	Cost        float64  `json:"cost"`
	InitialCost float64  `json:"initialCost"`
	Iterations  int      `json:"iterations"`
	Converged   bool     `json:"converged"`
	Strategy    Strategy `json:"strategy"`
}

// Minimize drives x0 toward a local minimum of cost with fixed-step gradient
// descent. x0 is not modified.
//
// The run fails with ErrInvalidCostFunction, before any step, when cost is
// nil or cost(x0) is NaN or ±Inf. A starting point with NaN or Inf
// coordinates is therefore rejected up front for any cost that propagates
// them. Non-finite values that appear after the first step propagate into
// the Result unless Config.AbortOnNonFinite is set.
func Minimize(cost CostFunc, x0 Point, cfg Config) (*Result, error) {
	if cost == nil {
		return nil, &CostFunctionError{Reason: "nil function"}
	}
	return descend(cost, 1, x0, cfg)
}

// Maximize runs Minimize on -cost. Result.Cost and the callback's cost are
// values of the original function. The starting point is checked as in
// Minimize.
func Maximize(cost CostFunc, x0 Point, cfg Config) (*Result, error) {
	if cost == nil {
		return nil, &CostFunctionError{Reason: "nil function"}
	}
	return descend(Negate(cost), -1, x0, cfg)
}

// descend minimizes objective. sign maps objective values back to the
// caller's function (1 for minimize, -1 for maximize).
func descend(objective CostFunc, sign float64, x0 Point, cfg Config) (*Result, error) {
	if len(x0) == 0 {
		return nil, &ConfigError{Field: "x0", Reason: "cannot be empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	est, err := NewEstimator(cfg.Strategy, cfg.Seed)
	if err != nil {
		return nil, err
	}

	initial := objective(x0)
	if math.IsNaN(initial) || math.IsInf(initial, 0) {
		return nil, &CostFunctionError{Reason: "starting point does not evaluate to a real scalar"}
	}

	slog.Debug("Starting gradient descent",
		"strategy", cfg.Strategy,
		"dim", len(x0),
		"max_iters", cfg.MaxIters,
		"step_size", cfg.StepSize,
	)

	tracker := NewConvergenceTracker(cfg.Convergence)
	observe := cfg.Callback != nil || cfg.Convergence.Enabled

	x := x0.Clone()
	iterations := 0
	converged := false

	for iter := 1; iter <= cfg.MaxIters; iter++ {
		g := est.Estimate(objective, x)
		if cfg.AbortOnNonFinite && !g.Finite() {
			return nil, &NonFiniteError{Iteration: iter}
		}

		for i := range x {
			x[i] -= cfg.StepSize * g[i]
		}
		iterations = iter

		if cfg.AbortOnNonFinite && !x.Finite() {
			return nil, &NonFiniteError{Iteration: iter}
		}

		if !observe {
			continue
		}

		c := objective(x)
		if cfg.Callback != nil {
			cfg.Callback(iter, x.Clone(), sign*c)
		}
		if tracker.Update(c) {
			converged = true
			break
		}
	}

	final := sign * objective(x)

	slog.Debug("Gradient descent complete",
		"strategy", cfg.Strategy,
		"iterations", iterations,
		"initial_cost", sign*initial,
		"final_cost", final,
		"converged", converged,
	)

	return &Result{
		X:           x,
		Cost:        final,
		InitialCost: sign * initial,
		Iterations:  iterations,
		Converged:   converged,
		Strategy:    cfg.Strategy,
	}, nil
}
