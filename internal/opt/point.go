package opt

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Point is a candidate solution: one real value per problem dimension.
type Point []float64

// Gradient holds the estimated per-coordinate slope of a cost function.
// It always has the same length as the Point it was estimated at.
type Gradient []float64

// CostFunc maps a point to a scalar cost. Lower is better for Minimize.
// It must be deterministic for a fixed input.
type CostFunc func(x Point) float64

// Number is any numeric type a starting point can be given in.
type Number interface {
	constraints.Integer | constraints.Float
}

// Promote converts a numeric slice to a float64 Point so that updates are
// never truncated to an integer representation.
func Promote[T Number](xs []T) Point {
	p := make(Point, len(xs))
	for i, v := range xs {
		p[i] = float64(v)
	}
	return p
}

// Clone returns an independent copy of the point.
func (p Point) Clone() Point {
	return append(Point(nil), p...)
}

// Finite reports whether every coordinate is a finite number.
func (p Point) Finite() bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NonZero returns the number of entries that are not exactly zero.
func (g Gradient) NonZero() int {
	n := 0
	for _, v := range g {
		if v != 0 {
			n++
		}
	}
	return n
}

// Finite reports whether every entry is a finite number.
func (g Gradient) Finite() bool {
	return Point(g).Finite()
}

// Negate returns a cost function computing -f(x).
func Negate(f CostFunc) CostFunc {
	return func(x Point) float64 {
		return -f(x)
	}
}

// Dynamic adapts a cost function whose result type is only known at run time.
// Numeric results are converted to float64. Anything else yields NaN, which
// Minimize reports as ErrInvalidCostFunction for the starting point.
func Dynamic(f func(x Point) any) CostFunc {
	return func(x Point) float64 {
		v, ok := toScalar(f(x))
		if !ok {
			return math.NaN()
		}
		return v
	}
}

func toScalar(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
