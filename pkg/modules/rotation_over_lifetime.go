package modules

import (
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/curve"
)

// RotationOverLifetime scales the spawn angular velocity from
// StartMultiplier to EndMultiplier over the particle's life and adds a
// constant rotation rate on top.
type RotationOverLifetime struct {
	Base
	StartMultiplier float64
	EndMultiplier   float64
	Ease            curve.Ease
	Additional      float64 // Degrees per second
}

// NewRotationOverLifetime creates the module.
func NewRotationOverLifetime(start, end, additional float64) *RotationOverLifetime {
	return &RotationOverLifetime{
		Base:            NewBase("rotationOverLifetime"),
		StartMultiplier: start,
		EndMultiplier:   end,
		Additional:      additional,
	}
}

// Update implements Module.
func (m *RotationOverLifetime) Update(p *components.Particle, _, t float64) {
	if p.Flags&components.FlagSpinBase == 0 {
		p.BaseAngularVelocity = p.AngularVelocity
		p.Flags |= components.FlagSpinBase
	}
	k := curve.Lerp(m.StartMultiplier, m.EndMultiplier, m.Ease.Apply(t))
	p.AngularVelocity = p.BaseAngularVelocity*k + m.Additional
}
