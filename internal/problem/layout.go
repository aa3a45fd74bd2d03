package problem

import (
	"math"
	"math/rand"

	"github.com/cwbudde/gdprocgen/internal/opt"
)

const LayoutName = "layout"

// Indices into a layout parameter vector
const (
	LakeX = iota
	LakeY
	LakeRadius
	City1X
	City1Y
	City2X
	City2Y
	City3X
	City3Y

	layoutParams
)

const (
	// NumCities is the number of cities placed around the lake
	NumCities = 3

	// MapWidth and MapHeight span the area the initial layout is drawn from
	MapWidth  = 10.0
	MapHeight = 10.0

	// cityShoreDistance is the preferred distance between a city and the shore
	cityShoreDistance = 0.2

	waterWeight = 1.0
	cityWeight  = 10.0
)

// Lake is a circular body of water
type Lake struct {
	X, Y   float64
	Radius float64
}

// City is a settlement position
type City struct {
	X, Y float64
}

// Scene is the decoded form of a layout vector
type Scene struct {
	Lake   Lake
	Cities [NumCities]City
}

// EncodeScene writes a scene to a flat parameter vector
func EncodeScene(s Scene) opt.Point {
	x := make(opt.Point, layoutParams)
	x[LakeX] = s.Lake.X
	x[LakeY] = s.Lake.Y
	x[LakeRadius] = s.Lake.Radius
	for i, c := range s.Cities {
		x[City1X+2*i] = c.X
		x[City1Y+2*i] = c.Y
	}
	return x
}

// DecodeScene reads a scene from a flat parameter vector
func DecodeScene(x opt.Point) Scene {
	var s Scene
	s.Lake = Lake{X: x[LakeX], Y: x[LakeY], Radius: x[LakeRadius]}
	for i := range s.Cities {
		s.Cities[i] = City{X: x[City1X+2*i], Y: x[City1Y+2*i]}
	}
	return s
}

// ShoreDistance is the signed distance from c to the lake shore;
// negative values are inside the lake.
func (l Lake) ShoreDistance(c City) float64 {
	return math.Hypot(c.X-l.X, c.Y-l.Y) - l.Radius
}

// Layout places a lake and three cities. Lakes prefer a radius between
// about 0.5 and 2, and each city prefers to sit just off the shore.
type Layout struct {
	start opt.Point
}

// NewLayout draws the starting layout uniformly over the map using seed
func NewLayout(seed int64) *Layout {
	rng := rand.New(rand.NewSource(seed))
	spread := math.Max(MapWidth, MapHeight)

	x0 := make(opt.Point, layoutParams)
	for i := range x0 {
		x0[i] = rng.Float64()*spread - spread/2
	}
	x0[LakeRadius] = math.Max(x0[LakeRadius], 0)

	return &Layout{start: x0}
}

func (l *Layout) Name() string { return LayoutName }
func (l *Layout) Dim() int { return layoutParams }
func (l *Layout) X0() opt.Point { return l.start.Clone() }

// Score rates a layout; higher is better
func (l *Layout) Score(x opt.Point) float64 {
	s := DecodeScene(x)

	water := Sigmoid(s.Lake.Radius, 0.5, 0.1) - Sigmoid(s.Lake.Radius, 2, 1)

	var cities float64
	for _, c := range s.Cities {
		cities -= math.Abs(s.Lake.ShoreDistance(c) - cityShoreDistance)
	}

	return waterWeight*water + cityWeight*cities
}

// Cost is the negated score
func (l *Layout) Cost(x opt.Point) float64 {
	return -l.Score(x)
}
