package problem

import "math"

// Sigmoid is a logistic curve centered at offset that rises from 0.018 to
// 0.982 while x crosses an interval of the given width.
// Subtract it from 1 for a decreasing curve.
func Sigmoid(x, offset, width float64) float64 {
	// A logistic curve centered at 0 needs a distance of 8 to go from 0.018 to 0.982
	k := 8 / width
	e := k * (offset - x)
	// Keep the exponent non-positive so math.Exp cannot overflow
	if e < 0 {
		return 1 / (1 + math.Exp(e))
	}
	return 1 - 1/(1+math.Exp(-e))
}

// SmoothAbs is a differentiable approximation of |x|.
// eps must be positive; smaller values track |x| more closely near 0.
func SmoothAbs(x, eps float64) float64 {
	if eps <= 0 {
		panic("problem: SmoothAbs eps must be positive")
	}
	return math.Sqrt(x*x + eps)
}

// DoubleSigmoid is a smooth bump that is ~1 between c1 and c2 and ~0 outside,
// with w1 and w2 controlling the steepness of each edge.
func DoubleSigmoid(x, c1, w1, c2, w2 float64) float64 {
	v1 := math.Tanh((x - c1) / w1)
	v2 := math.Tanh((x - c2) / w2)
	return 0.5 * (v1 - v2)
}

// LogCosh returns log(cosh(x)), a smooth loss that grows like |x| for large x.
func LogCosh(x float64) float64 {
	// log(cosh(x)) = |x| + log1p(exp(-2|x|)) - log(2) avoids overflow in cosh
	a := math.Abs(x)
	return a + math.Log1p(math.Exp(-2*a)) - math.Ln2
}

// Knot is a data point for a sigmoid interpolation.
type Knot struct {
	X, Y float64
}

// NewSigmoidInterpolation returns f(x) that steps smoothly between the knots
// using one sigmoid per change in Y. Outside the first and last knot f keeps
// decreasing like -log(cosh(d)) so descent still sees a slope far from the
// data. Knots must be sorted by X in non-decreasing order.
func NewSigmoidInterpolation(knots []Knot) func(x float64) float64 {
	if len(knots) == 0 {
		panic("problem: sigmoid interpolation needs at least one knot")
	}
	pts := append([]Knot(nil), knots...)
	first, last := pts[0], pts[len(pts)-1]

	return func(x float64) float64 {
		result := first.Y
		if x < first.X {
			result -= LogCosh(x - first.X)
		}
		if x > last.X {
			result -= LogCosh(x - last.X)
		}

		for i := 0; i+1 < len(pts); i++ {
			cur, next := pts[i], pts[i+1]
			if cur.Y == next.Y {
				continue
			}
			width := next.X - cur.X
			center := cur.X + width/2
			step := Sigmoid(x, center, width)
			if next.Y-cur.Y >= 0 {
				result += step
			} else {
				result -= step
			}
		}
		return result
	}
}
