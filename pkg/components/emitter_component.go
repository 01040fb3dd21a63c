package components

import "math/rand"

// Shape selects the spawn area of an emitter.
type Shape int

const (
	ShapePoint Shape = iota
	ShapeCircle
	ShapeRectangle
	ShapeLine
	ShapeCone
	ShapeRing
	ShapeEdge
)

var shapeNames = [...]string{"point", "circle", "rectangle", "line", "cone", "ring", "edge"}

// String returns the lower-case shape name used by effect assets.
func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "point"
	}
	return shapeNames[s]
}

// ParseShape maps an asset shape name to a Shape. Unknown names fall back to ShapePoint.
func ParseShape(name string) (Shape, bool) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), true
		}
	}
	switch name {
	case "box", "rect":
		return ShapeRectangle, true
	case "fan":
		return ShapeCone, true
	}
	return ShapePoint, false
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Fixed returns a degenerate range that always samples v.
func Fixed(v float64) Range {
	return Range{Min: v, Max: v}
}

// Sample draws a uniform value from the range. Inverted ranges return Min.
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Min >= r.Max {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Scaled returns the range with both ends multiplied by k.
func (r Range) Scaled(k float64) Range {
	return Range{Min: r.Min * k, Max: r.Max * k}
}

// Color is an RGBA color with channels in 0-1.
type Color struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
	A float64 `yaml:"a"`
}

// White is the neutral tint.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// EmitterConfig describes how an emitter spawns and initialises particles.
// It is immutable between rebuilds of the owning particle system.
//
// EmissionRate and BurstCount are mutually exclusive: a positive BurstCount
// turns the emitter into a one-shot emitter and EmissionRate is ignored.
type EmitterConfig struct {
	// Emission (发射)
	EmissionRate float64 // Particles per second
	BurstCount   int     // One-shot particle count (0 = continuous)

	// Spawn area (发射区域)
	Shape       Shape
	ShapeRadius float64
	ShapeWidth  float64
	ShapeHeight float64
	ConeAngle   float64 // Degrees

	// Launch (发射参数)
	Direction       float64 // Degrees, 0 = +X
	Spread          float64 // Degrees, full width centred on Direction
	Speed           Range
	AngularVelocity Range // Degrees per second

	// Particle properties (粒子属性)
	Lifetime      Range // Seconds
	StartScale    Range
	StartRotation Range // Degrees
	StartColor    Color
	ColorVariance Color // Per-channel +/- variance

	GravityX float64
	GravityY float64
}

// BurstConfig schedules a repeating burst on the system timeline.
type BurstConfig struct {
	Time     float64 `yaml:"time"`     // Seconds after Play
	Count    int     `yaml:"count"`    // Particles per firing
	Cycles   int     `yaml:"cycles"`   // Number of firings, 0 = unbounded
	Interval float64 `yaml:"interval"` // Seconds between firings
}
