package modules

import (
	"sort"

	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/curve"
)

// ColorKey is one point of a color gradient.
type ColorKey struct {
	Time float64 `yaml:"time"`
	R    float64 `yaml:"r"`
	G    float64 `yaml:"g"`
	B    float64 `yaml:"b"`
	A    float64 `yaml:"a"`
}

// ColorOverLifetime multiplies the particle's start color by a piecewise
// linear gradient sampled at normalized age.
type ColorOverLifetime struct {
	Base
	Keys []ColorKey // Sorted by Time
}

// NewColorOverLifetime creates the module; keys are sorted by time.
func NewColorOverLifetime(keys ...ColorKey) *ColorOverLifetime {
	sorted := append([]ColorKey(nil), keys...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &ColorOverLifetime{Base: NewBase("colorOverLifetime"), Keys: sorted}
}

// FadeOut is a convenience gradient that keeps the color and ramps alpha
// from 1 to endAlpha.
func FadeOut(endAlpha float64) *ColorOverLifetime {
	return NewColorOverLifetime(
		ColorKey{Time: 0, R: 1, G: 1, B: 1, A: 1},
		ColorKey{Time: 1, R: 1, G: 1, B: 1, A: endAlpha},
	)
}

// Sample returns the gradient value at t.
func (m *ColorOverLifetime) Sample(t float64) (r, g, b, a float64) {
	keys := m.Keys
	switch {
	case len(keys) == 0:
		return 1, 1, 1, 1
	case t <= keys[0].Time:
		k := keys[0]
		return k.R, k.G, k.B, k.A
	}
	for i := 0; i < len(keys)-1; i++ {
		k0, k1 := keys[i], keys[i+1]
		if t > k1.Time {
			continue
		}
		span := k1.Time - k0.Time
		if span <= 0 {
			return k1.R, k1.G, k1.B, k1.A
		}
		f := (t - k0.Time) / span
		return curve.Lerp(k0.R, k1.R, f), curve.Lerp(k0.G, k1.G, f),
			curve.Lerp(k0.B, k1.B, f), curve.Lerp(k0.A, k1.A, f)
	}
	k := keys[len(keys)-1]
	return k.R, k.G, k.B, k.A
}

// Update implements Module.
func (m *ColorOverLifetime) Update(p *components.Particle, _, t float64) {
	if len(m.Keys) == 0 {
		return
	}
	r, g, b, a := m.Sample(t)
	p.R = p.StartR * r
	p.G = p.StartG * g
	p.B = p.StartB * b
	p.A = p.StartA * a
}
