package modules

import (
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/curve"
)

// SizeMode selects how SizeOverLifetime shapes its multiplier.
type SizeMode int

const (
	SizeLinear SizeMode = iota
	SizeEaseIn
	SizeEaseOut
	SizeEaseInOut
	SizeCustom
)

// ParseSizeMode maps an asset keyword to a SizeMode.
func ParseSizeMode(name string) SizeMode {
	switch name {
	case "easeIn", "EaseIn":
		return SizeEaseIn
	case "easeOut", "EaseOut":
		return SizeEaseOut
	case "easeInOut", "EaseInOut":
		return SizeEaseInOut
	case "custom", "Custom", "keys":
		return SizeCustom
	}
	return SizeLinear
}

func (m SizeMode) ease() curve.Ease {
	switch m {
	case SizeEaseIn:
		return curve.EaseIn
	case SizeEaseOut:
		return curve.EaseOut
	case SizeEaseInOut:
		return curve.EaseInOut
	}
	return curve.EaseLinear
}

// SizeOverLifetime scales the particle's recorded start scale by a
// multiplier curve. The result never accumulates across steps.
type SizeOverLifetime struct {
	Base
	Mode SizeMode

	Start, End float64 // Uniform multiplier endpoints
	Keys       []curve.Keyframe

	// SeparateAxes switches to independent X/Y curves.
	SeparateAxes bool
	StartY, EndY float64
	KeysY        []curve.Keyframe
}

// NewSizeOverLifetime creates a uniform ramp from start to end.
func NewSizeOverLifetime(mode SizeMode, start, end float64) *SizeOverLifetime {
	return &SizeOverLifetime{Base: NewBase("sizeOverLifetime"), Mode: mode, Start: start, End: end}
}

// NewSizeKeys creates a custom keyframe size curve.
func NewSizeKeys(keys ...curve.Keyframe) *SizeOverLifetime {
	return &SizeOverLifetime{Base: NewBase("sizeOverLifetime"), Mode: SizeCustom, Start: 1, End: 1, Keys: keys}
}

// Multipliers returns the X and Y scale multipliers at t.
func (m *SizeOverLifetime) Multipliers(t float64) (mx, my float64) {
	mx = m.multiplier(t, m.Start, m.End, m.Keys)
	if !m.SeparateAxes {
		return mx, mx
	}
	return mx, m.multiplier(t, m.StartY, m.EndY, m.KeysY)
}

func (m *SizeOverLifetime) multiplier(t, start, end float64, keys []curve.Keyframe) float64 {
	if m.Mode == SizeCustom {
		return curve.Evaluate(keys, t, curve.EaseLinear, 1)
	}
	return curve.Lerp(start, end, m.Mode.ease().Apply(t))
}

// Update implements Module.
func (m *SizeOverLifetime) Update(p *components.Particle, _, t float64) {
	mx, my := m.Multipliers(t)
	p.ScaleX = p.StartScaleX * mx
	p.ScaleY = p.StartScaleY * my
}
