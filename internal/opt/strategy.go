package opt

import (
	"math/rand"
	"strings"
	"time"
)

// Strategy selects which coordinates the gradient estimator perturbs.
type Strategy string

const (
	// Batch perturbs every coordinate on every call.
	Batch Strategy = "batch"
	// SequentialStochastic perturbs one coordinate per call, rotating 0, 1, ..., N-1, 0, ...
	SequentialStochastic Strategy = "sequential-stochastic"
	// RandomStochastic perturbs one uniformly drawn coordinate per call.
	RandomStochastic Strategy = "random-stochastic"
)

// Strategies lists every known strategy in a stable order.
func Strategies() []Strategy {
	return []Strategy{Batch, SequentialStochastic, RandomStochastic}
}

func (s Strategy) String() string {
	return string(s)
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case Batch, SequentialStochastic, RandomStochastic:
		return true
	}
	return false
}

// ParseStrategy maps an external token to a Strategy.
// Matching ignores surrounding whitespace and case.
func ParseStrategy(token string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(token)))
	if !s.Valid() {
		return "", &StrategyError{Name: token}
	}
	return s, nil
}

// NewEstimator returns a fresh estimator for the strategy. Every call builds
// new private state, so concurrent runs never share a cursor or a generator.
// seed is only used by RandomStochastic; nil seeds from the clock.
func NewEstimator(s Strategy, seed *int64) (Estimator, error) {
	switch s {
	case Batch:
		return &batchEstimator{dx: DefaultPerturbation}, nil
	case SequentialStochastic:
		return &sequentialEstimator{dx: DefaultPerturbation}, nil
	case RandomStochastic:
		var src int64
		if seed != nil {
			src = *seed
		} else {
			src = time.Now().UnixNano()
		}
		return &randomEstimator{
			dx:  DefaultPerturbation,
			rng: rand.New(rand.NewSource(src)),
		}, nil
	default:
		return nil, &StrategyError{Name: string(s)}
	}
}
