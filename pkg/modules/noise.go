package modules

import (
	"math"

	"github.com/decker502/particlefx/pkg/components"
)

// Hash is the lattice hash used by the value noise. It must stay
// bit-identical to the reference presets: 32-bit wrapping arithmetic,
//
//	n = x + 57*y
//	shift = (n << 13) ^ n
//	h = ((shift*(shift*shift*15731+789221))+1376312589) & 0x7fffffff
//
// and the result is h / 0x7fffffff in [0, 1].
func Hash(x, y int32) float64 {
	n := x + 57*y
	shift := (n << 13) ^ n
	h := (shift*(shift*shift*15731+789221) + 1376312589) & 0x7fffffff
	return float64(h) / 0x7fffffff
}

// ValueNoise2D samples bilinearly interpolated lattice noise in [0, 1].
func ValueNoise2D(x, y float64) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)
	xi := int32(fx)
	yi := int32(fy)
	tx := x - fx
	ty := y - fy

	v00 := Hash(xi, yi)
	v10 := Hash(xi+1, yi)
	v01 := Hash(xi, yi+1)
	v11 := Hash(xi+1, yi+1)

	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*ty
}

// Noise perturbs particles with time-scrolled value noise sampled at their
// position. Each amount is applied per second; zero disables that channel.
type Noise struct {
	Base
	Frequency   float64 // Lattice cells per pixel
	ScrollSpeed float64 // Lattice cells per second along X

	Position float64 // Pixels per second
	Velocity float64 // Pixels per second squared
	Rotation float64 // Degrees per second
	Scale    float64 // Uniform scale change per second

	time float64
}

// NewNoise creates a noise module perturbing velocity only.
func NewNoise(frequency, velocity float64) *Noise {
	return &Noise{
		Base:        NewBase("noise"),
		Frequency:   frequency,
		ScrollSpeed: 1,
		Velocity:    velocity,
	}
}

// BeginStep implements Stepper.
func (m *Noise) BeginStep(ctx StepContext) {
	m.time = ctx.Elapsed
}

// Sample returns the signed noise pair in [-1, 1] at a world position.
func (m *Noise) Sample(x, y float64) (nx, ny float64) {
	sx := x*m.Frequency + m.time*m.ScrollSpeed
	sy := y * m.Frequency
	nx = ValueNoise2D(sx, sy)*2 - 1
	// Second channel reads a decorrelated region of the lattice.
	ny = ValueNoise2D(sx+31.416, sy+47.853)*2 - 1
	return nx, ny
}

// Update implements Module.
func (m *Noise) Update(p *components.Particle, dt, _ float64) {
	if dt <= 0 {
		return
	}
	nx, ny := m.Sample(p.X, p.Y)
	if m.Position != 0 {
		p.X += nx * m.Position * dt
		p.Y += ny * m.Position * dt
	}
	if m.Velocity != 0 {
		p.VX += nx * m.Velocity * dt
		p.VY += ny * m.Velocity * dt
	}
	if m.Rotation != 0 {
		p.Rotation += nx * m.Rotation * dt
	}
	if m.Scale != 0 {
		d := nx * m.Scale * dt
		p.ScaleX = math.Max(0, p.ScaleX+d)
		p.ScaleY = math.Max(0, p.ScaleY+d)
	}
}
