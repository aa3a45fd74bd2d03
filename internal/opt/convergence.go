package opt

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines optional early stopping for the descent loop.
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Patience is the number of consecutive iterations with no significant
	// improvement before stopping
	Patience int `json:"patience" yaml:"patience"`

	// Threshold is the minimum relative improvement required to count as progress.
	// Relative improvement = (lastSignificant - cost) / |lastSignificant|
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultConvergenceConfig returns sensible defaults for early stopping
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  20,
		Threshold: 1e-6,
	}
}

// DisabledConvergenceConfig returns a config with early stopping disabled.
// This is the default for every run.
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker follows the best and last significant cost of a run and
// detects when it has stalled
type ConvergenceTracker struct {
	config          ConvergenceConfig
	updates         int     // Costs seen while enabled
	bestCost        float64 // Best cost ever seen
	lastSignificant float64 // Last cost that was a significant improvement
	staleCount      int     // Iterations without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		bestCost:        math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new cost value and returns true if convergence is detected
func (c *ConvergenceTracker) Update(cost float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.updates++

	if cost < c.bestCost {
		c.bestCost = cost
	}

	if c.updates == 1 {
		c.lastSignificant = cost
		return false
	}

	if relativeImprovement(c.lastSignificant, cost) >= c.config.Threshold {
		c.lastSignificant = cost
		c.staleCount = 0
		return false
	}

	c.staleCount++
	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_cost", c.bestCost,
		)
		return true
	}

	return false
}

// relativeImprovement scales by |prev| so negative costs still count
// decreases as progress. A zero reference falls back to the absolute change.
func relativeImprovement(prev, cost float64) float64 {
	if prev == 0 {
		return prev - cost
	}
	return (prev - cost) / math.Abs(prev)
}
