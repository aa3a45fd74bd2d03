package opt

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run executes the optimization from x0 and returns the final point and cost
	Run(cost CostFunc, x0 Point) (*Result, error)
}

// GradientDescent adapts Minimize/Maximize to the Optimizer interface
type GradientDescent struct {
	config   Config
	maximize bool
}

// NewGradientDescent creates a gradient descent optimizer. When maximize is
// true the optimizer climbs the cost function instead of descending it.
func NewGradientDescent(config Config, maximize bool) Optimizer {
	return &GradientDescent{
		config:   config,
		maximize: maximize,
	}
}

// Run executes one descent. Each call selects a fresh estimator, so a
// GradientDescent value can be reused for independent runs.
func (g *GradientDescent) Run(cost CostFunc, x0 Point) (*Result, error) {
	if g.maximize {
		return Maximize(cost, x0, g.config)
	}
	return Minimize(cost, x0, g.config)
}
