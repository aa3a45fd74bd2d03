package opt

import "fmt"

// ErrInvalidCostFunction is returned when the cost function does not produce
// a real scalar for the starting point. Use errors.Is(err, ErrInvalidCostFunction).
var ErrInvalidCostFunction = &CostFunctionError{}

// ErrInvalidGradientStrategy is returned for an unknown strategy identifier.
// Use errors.Is(err, ErrInvalidGradientStrategy).
var ErrInvalidGradientStrategy = &StrategyError{}

// ErrNonFinite is returned when Config.AbortOnNonFinite is set and the point
// or gradient stops being finite.
var ErrNonFinite = &NonFiniteError{}

// CostFunctionError describes why a cost function was rejected.
type CostFunctionError struct {
	Reason string
}

func (e *CostFunctionError) Error() string {
	if e.Reason != "" {
		return "invalid cost function: " + e.Reason
	}
	return "invalid cost function"
}

func (e *CostFunctionError) Is(target error) bool {
	_, ok := target.(*CostFunctionError)
	return ok
}

// StrategyError names an unrecognized gradient strategy.
type StrategyError struct {
	Name string
}

func (e *StrategyError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid gradient strategy: %q", e.Name)
	}
	return "invalid gradient strategy"
}

func (e *StrategyError) Is(target error) bool {
	_, ok := target.(*StrategyError)
	return ok
}

// NonFiniteError reports the iteration at which NaN or Inf first appeared.
type NonFiniteError struct {
	Iteration int
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("non-finite value at iteration %d", e.Iteration)
}

func (e *NonFiniteError) Is(target error) bool {
	_, ok := target.(*NonFiniteError)
	return ok
}

// ConfigError represents an invalid run configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid config: " + e.Field + " " + e.Reason
}
