package modules

import (
	"math"

	"github.com/decker502/particlefx/pkg/components"
)

// FieldKind identifies a force field type.
type FieldKind int

const (
	FieldWind FieldKind = iota
	FieldPoint
	FieldVortex
	FieldTurbulence
)

// ParseFieldKind maps an asset keyword to a FieldKind.
func ParseFieldKind(name string) (FieldKind, bool) {
	switch name {
	case "wind", "directional":
		return FieldWind, true
	case "point", "attractor", "repulsor":
		return FieldPoint, true
	case "vortex":
		return FieldVortex, true
	case "turbulence":
		return FieldTurbulence, true
	}
	return FieldWind, false
}

// Falloff shapes a point field's strength over its radius.
type Falloff int

const (
	FalloffNone Falloff = iota
	FalloffLinear
	FalloffQuadratic
)

// ParseFalloff maps an asset keyword to a Falloff.
func ParseFalloff(name string) Falloff {
	switch name {
	case "linear":
		return FalloffLinear
	case "quadratic":
		return FalloffQuadratic
	}
	return FalloffNone
}

// Field is one force contributor. Positions are relative to the emitter
// origin; Direction is in degrees.
type Field struct {
	Kind     FieldKind
	Strength float64 // px/s²; point: positive attracts, negative repels

	Direction float64 // Wind

	X, Y    float64 // Point and vortex centre
	Radius  float64 // Point and vortex reach, 0 = unbounded
	Falloff Falloff // Point

	InwardPull float64 // Vortex centripetal px/s²

	Frequency float64 // Turbulence spatial frequency
}

// ForceField sums the acceleration of every field into particle velocity.
type ForceField struct {
	Base
	Fields []Field

	originX, originY float64
	time             float64
}

// NewForceField creates a module with the given fields.
func NewForceField(fields ...Field) *ForceField {
	return &ForceField{Base: NewBase("forceField"), Fields: fields}
}

// Add appends a field.
func (m *ForceField) Add(f Field) {
	m.Fields = append(m.Fields, f)
}

// BeginStep implements Stepper.
func (m *ForceField) BeginStep(ctx StepContext) {
	m.originX, m.originY = ctx.OriginX, ctx.OriginY
	m.time = ctx.Elapsed
}

// Update implements Module.
func (m *ForceField) Update(p *components.Particle, dt, _ float64) {
	if dt <= 0 || len(m.Fields) == 0 {
		return
	}
	var ax, ay float64
	for i := range m.Fields {
		fx, fy := m.Acceleration(&m.Fields[i], p.X, p.Y)
		ax += fx
		ay += fy
	}
	p.VX += ax * dt
	p.VY += ay * dt
}

// Acceleration evaluates a single field at a world position.
func (m *ForceField) Acceleration(f *Field, x, y float64) (float64, float64) {
	switch f.Kind {
	case FieldWind:
		sin, cos := math.Sincos(f.Direction * math.Pi / 180)
		return cos * f.Strength, sin * f.Strength

	case FieldPoint:
		dx := m.originX + f.X - x
		dy := m.originY + f.Y - y
		dist := math.Hypot(dx, dy)
		if dist < 1e-6 || (f.Radius > 0 && dist > f.Radius) {
			return 0, 0
		}
		k := f.Strength
		if f.Radius > 0 {
			switch f.Falloff {
			case FalloffLinear:
				k *= 1 - dist/f.Radius
			case FalloffQuadratic:
				r := 1 - dist/f.Radius
				k *= r * r
			}
		}
		return dx / dist * k, dy / dist * k

	case FieldVortex:
		dx := x - (m.originX + f.X)
		dy := y - (m.originY + f.Y)
		dist := math.Hypot(dx, dy)
		if dist < 1e-6 || (f.Radius > 0 && dist > f.Radius) {
			return 0, 0
		}
		nx, ny := dx/dist, dy/dist
		// Tangent (-ny, nx) turns clockwise on screen for positive strength.
		return -ny*f.Strength - nx*f.InwardPull, nx*f.Strength - ny*f.InwardPull

	case FieldTurbulence:
		freq := f.Frequency
		if freq == 0 {
			freq = 0.01
		}
		t := m.time
		fx := math.Sin(y*freq+t) * math.Cos(x*freq-t)
		fy := math.Sin(x*freq-t) * math.Cos(y*freq+t)
		return fx * f.Strength, fy * f.Strength
	}
	return 0, 0
}
