package modules

import (
	"math"

	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/curve"
)

// VelocityOverLifetime drives velocity from a baseline captured the first
// time the module sees a particle.
//
// Per step, in this order:
//  1. velocity = baseline * Speed(normalizedAge)
//  2. linear drag: velocity and baseline both scale by (1-Drag)^dt
//  3. orbital (degrees/second around the emission origin) and radial
//     (pixels/second away from the origin) displacement
//  4. constant additional velocity
type VelocityOverLifetime struct {
	Base
	Speed curve.Curve // Multiplier on the baseline

	Drag    float64 // Fraction of velocity lost per second, 0-1
	Orbital float64 // Degrees per second, positive = clockwise on screen
	Radial  float64 // Pixels per second, positive = outward

	AddX, AddY float64 // Constant additional velocity
}

// NewVelocityOverLifetime creates the module with a multiplier ramp.
func NewVelocityOverLifetime(start, end float64) *VelocityOverLifetime {
	return &VelocityOverLifetime{
		Base:  NewBase("velocityOverLifetime"),
		Speed: curve.Ramp(start, end, curve.EaseLinear),
	}
}

// Update implements Module.
func (m *VelocityOverLifetime) Update(p *components.Particle, dt, t float64) {
	if p.Flags&components.FlagVelocityBase == 0 {
		p.BaseVX, p.BaseVY = p.VX, p.VY
		p.Flags |= components.FlagVelocityBase
	}

	k := m.Speed.Value(t)
	p.VX = p.BaseVX * k
	p.VY = p.BaseVY * k

	if m.Drag > 0 && dt > 0 {
		drag := math.Min(m.Drag, 1)
		f := math.Pow(1-drag, dt)
		p.VX *= f
		p.VY *= f
		p.BaseVX *= f
		p.BaseVY *= f
	}

	if m.Orbital != 0 || m.Radial != 0 {
		dx := p.X - p.OriginX
		dy := p.Y - p.OriginY
		if m.Orbital != 0 {
			rad := m.Orbital * dt * math.Pi / 180
			sin, cos := math.Sincos(rad)
			dx, dy = dx*cos-dy*sin, dx*sin+dy*cos
		}
		if m.Radial != 0 {
			if dist := math.Hypot(dx, dy); dist > 1e-9 {
				step := m.Radial * dt
				// Inward motion stops at the origin instead of overshooting.
				if dist+step < 0 {
					step = -dist
				}
				dx += dx / dist * step
				dy += dy / dist * step
			}
		}
		p.X = p.OriginX + dx
		p.Y = p.OriginY + dy
	}

	p.VX += m.AddX
	p.VY += m.AddY
}
