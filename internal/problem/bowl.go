package problem

import (
	"math"

	"github.com/cwbudde/gdprocgen/internal/opt"
)

const (
	BowlName  = "bowl"
	PointName = "point"
)

// Bowl is sum((x_i - c_i)^2) + Offset, minimized at Center.
type Bowl struct {
	Center []float64
	Offset float64
	Start  opt.Point
}

// NewBowl returns the 2-D bowl centered at (-5, 4) with offset 20, started at the origin
func NewBowl() *Bowl {
	return &Bowl{
		Center: []float64{-5, 4},
		Offset: 20,
		Start:  opt.Point{0, 0},
	}
}

func (b *Bowl) Name() string { return BowlName }
func (b *Bowl) Dim() int { return len(b.Center) }
func (b *Bowl) X0() opt.Point { return b.Start.Clone() }

func (b *Bowl) Cost(x opt.Point) float64 {
	sum := b.Offset
	for i, c := range b.Center {
		d := x[i] - c
		sum += d * d
	}
	return sum
}

// PointDemo moves a single 2-D point toward the origin: cost is its
// Euclidean norm.
type PointDemo struct {
	Start opt.Point
}

// NewPointDemo returns the demo started at (2, 5)
func NewPointDemo() *PointDemo {
	return &PointDemo{Start: opt.Point{2, 5}}
}

func (p *PointDemo) Name() string { return PointName }
func (p *PointDemo) Dim() int { return len(p.Start) }
func (p *PointDemo) X0() opt.Point { return p.Start.Clone() }

func (p *PointDemo) Cost(x opt.Point) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum)
}
