package problem

import (
	"fmt"

	"github.com/cwbudde/gdprocgen/internal/opt"
)

// Problem supplies a cost function and a starting point to the optimizer
type Problem interface {
	// Name returns the identifier used on the command line and in run files
	Name() string

	// Dim returns the dimensionality of the parameter space
	Dim() int

	// X0 returns a fresh copy of the starting point
	X0() opt.Point

	// Cost evaluates the objective. Lower is better.
	Cost(x opt.Point) float64
}

// Names lists the built-in problems
func Names() []string {
	return []string{BowlName, PointName, LayoutName}
}

// Lookup builds the named problem. seed only affects problems with a
// randomized starting point.
func Lookup(name string, seed int64) (Problem, error) {
	switch name {
	case BowlName:
		return NewBowl(), nil
	case PointName:
		return NewPointDemo(), nil
	case LayoutName:
		return NewLayout(seed), nil
	default:
		return nil, &UnknownError{Name: name}
	}
}

// UnknownError is returned by Lookup for an unrecognized problem name
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown problem: %q (known: %v)", e.Name, Names())
}

// StartingPoint returns a copy of override when it is set, or the problem's
// own starting point otherwise. The override must match the problem's Dim.
func StartingPoint(p Problem, override []float64) (opt.Point, error) {
	if len(override) == 0 {
		return p.X0(), nil
	}
	if len(override) != p.Dim() {
		return nil, &opt.ConfigError{
			Field:  "x0",
			Reason: fmt.Sprintf("has %d coordinates, problem %s needs %d", len(override), p.Name(), p.Dim()),
		}
	}
	return opt.Point(override).Clone(), nil
}
