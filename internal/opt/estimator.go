package opt

import "math/rand"

// DefaultPerturbation is the symmetric-difference step dx.
const DefaultPerturbation = 1e-3

// Estimator approximates the gradient of a cost function at a point.
// Implementations do not modify x and return a Gradient of len(x).
type Estimator interface {
	Estimate(cost CostFunc, x Point) Gradient
	Strategy() Strategy
}

// partial computes (cost(x+dx*e_i) - cost(x-dx*e_i)) / 2dx. Each evaluation
// sees its own copy of x.
func partial(cost CostFunc, x Point, i int, dx float64) float64 {
	xpos := x.Clone()
	xpos[i] += dx
	xneg := x.Clone()
	xneg[i] -= dx
	return (cost(xpos) - cost(xneg)) / (2 * dx)
}

// batchEstimator computes every partial derivative.
type batchEstimator struct {
	dx float64
}

func (e *batchEstimator) Estimate(cost CostFunc, x Point) Gradient {
	g := make(Gradient, len(x))
	for i := range x {
		g[i] = partial(cost, x, i, e.dx)
	}
	return g
}

func (e *batchEstimator) Strategy() Strategy { return Batch }

// sequentialEstimator computes one partial derivative per call, rotating
// through the coordinates.
type sequentialEstimator struct {
	dx     float64
	cursor int
}

func (e *sequentialEstimator) Estimate(cost CostFunc, x Point) Gradient {
	g := make(Gradient, len(x))
	if len(x) == 0 {
		return g
	}
	i := e.cursor % len(x)
	e.cursor++
	g[i] = partial(cost, x, i, e.dx)
	return g
}

func (e *sequentialEstimator) Strategy() Strategy { return SequentialStochastic }

// randomEstimator computes the partial derivative of one coordinate drawn
// from its own generator.
type randomEstimator struct {
	dx  float64
	rng *rand.Rand
}

func (e *randomEstimator) Estimate(cost CostFunc, x Point) Gradient {
	g := make(Gradient, len(x))
	if len(x) == 0 {
		return g
	}
	i := e.rng.Intn(len(x))
	g[i] = partial(cost, x, i, e.dx)
	return g
}

func (e *randomEstimator) Strategy() Strategy { return RandomStochastic }
