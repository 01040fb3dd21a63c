// Package particle provides the effect asset record and its YAML loader.
//
// An effect asset describes one particle system: pool size, emitter
// settings, render metadata, bursts and an optional list of module blocks.
// Numeric fields use the value-string format handled by ParseValue.
package particle

import (
	"fmt"

	"github.com/decker502/particlefx/pkg/components"
)

// BlendMode selects how the host composites particles.
type BlendMode int

const (
	BlendAlpha BlendMode = iota
	BlendAdditive
)

// ParseBlendMode maps an asset keyword to a BlendMode.
func ParseBlendMode(name string) (BlendMode, bool) {
	switch name {
	case "", "alpha", "normal":
		return BlendAlpha, true
	case "additive", "add":
		return BlendAdditive, true
	}
	return BlendAlpha, false
}

// String returns the asset keyword.
func (b BlendMode) String() string {
	if b == BlendAdditive {
		return "additive"
	}
	return "alpha"
}

// EffectAsset is the parsed record of one effect file.
type EffectAsset struct {
	Name string `yaml:"name"`

	// System (系统设置)
	MaxParticles  int     `yaml:"maxParticles"`
	Duration      float64 `yaml:"duration"` // Seconds of emission, 0 = infinite
	Looping       *bool   `yaml:"looping,omitempty"`
	PlaybackSpeed float64 `yaml:"playbackSpeed"`
	LocalSpace    bool    `yaml:"localSpace"` // Particles follow the emitter
	Seed          int64   `yaml:"seed"`       // 0 = random

	// Emission (发射)
	EmissionRate float64                  `yaml:"emissionRate"`
	BurstCount   int                      `yaml:"burstCount"`
	Bursts       []components.BurstConfig `yaml:"bursts,omitempty"`

	// Spawn area (发射区域)
	Shape       string  `yaml:"shape"`
	ShapeRadius float64 `yaml:"shapeRadius"`
	ShapeWidth  float64 `yaml:"shapeWidth"`
	ShapeHeight float64 `yaml:"shapeHeight"`
	ConeAngle   float64 `yaml:"coneAngle"`

	// Launch (发射参数)
	Direction       float64 `yaml:"direction"`
	Spread          float64 `yaml:"spread"`
	Speed           Value   `yaml:"speed"`
	AngularVelocity Value   `yaml:"angularVelocity"`

	// Particle (粒子属性)
	Lifetime      Value             `yaml:"lifetime"`
	StartScale    Value             `yaml:"startScale"`
	StartRotation Value             `yaml:"startRotation"`
	StartColor    *components.Color `yaml:"startColor,omitempty"`
	ColorVariance components.Color  `yaml:"colorVariance"`
	StartAlpha    *float64          `yaml:"startAlpha,omitempty"`
	EndAlpha      *float64          `yaml:"endAlpha,omitempty"`
	EndScale      *float64          `yaml:"endScale,omitempty"`
	GravityX      float64           `yaml:"gravityX"`
	GravityY      float64           `yaml:"gravityY"`

	// Rendering (渲染)
	Texture      string  `yaml:"texture"`
	SheetColumns int     `yaml:"sheetColumns"`
	SheetRows    int     `yaml:"sheetRows"`
	ParticleSize float64 `yaml:"particleSize"`
	BlendMode    string  `yaml:"blendMode"`
	SortLayer    int     `yaml:"sortLayer"`
	OrderInLayer int     `yaml:"orderInLayer"`

	Modules []ModuleBlock `yaml:"modules,omitempty"`
}

// Default returns the fallback asset used when no asset is available:
// a small pool and a point emitter.
func Default() *EffectAsset {
	a := &EffectAsset{
		Name:         "default",
		MaxParticles: 32,
		EmissionRate: 10,
	}
	a.ApplyDefaults()
	return a
}

// ApplyDefaults fills every missing field with its default.
func (a *EffectAsset) ApplyDefaults() {
	if a.MaxParticles <= 0 {
		a.MaxParticles = 100
	}
	if a.PlaybackSpeed <= 0 {
		a.PlaybackSpeed = 1
	}
	if a.Looping == nil {
		loop := true
		a.Looping = &loop
	}
	if a.Shape == "" {
		a.Shape = components.ShapePoint.String()
	}
	if !a.Lifetime.IsSet() {
		a.Lifetime = FixedValue(1)
	}
	if !a.Speed.IsSet() {
		a.Speed = RangeValue(40, 60)
	}
	if !a.StartScale.IsSet() {
		a.StartScale = FixedValue(1)
	}
	if a.StartColor == nil {
		c := components.White
		a.StartColor = &c
	}
	if a.SheetColumns <= 0 {
		a.SheetColumns = 1
	}
	if a.SheetRows <= 0 {
		a.SheetRows = 1
	}
	if a.ParticleSize <= 0 {
		a.ParticleSize = 1
	}
	if a.BlendMode == "" {
		a.BlendMode = BlendAlpha.String()
	}
}

// Validate reports values a loader should reject.
func (a *EffectAsset) Validate() error {
	if a.MaxParticles <= 0 {
		return fmt.Errorf("maxParticles must be positive, got %d", a.MaxParticles)
	}
	if a.EmissionRate < 0 {
		return fmt.Errorf("emissionRate must not be negative, got %v", a.EmissionRate)
	}
	if a.BurstCount < 0 {
		return fmt.Errorf("burstCount must not be negative, got %d", a.BurstCount)
	}
	if a.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", a.Duration)
	}
	if _, ok := components.ParseShape(a.Shape); !ok {
		return fmt.Errorf("unknown shape %q", a.Shape)
	}
	if _, ok := ParseBlendMode(a.BlendMode); !ok {
		return fmt.Errorf("unknown blendMode %q", a.BlendMode)
	}
	for i, b := range a.Bursts {
		if b.Count < 0 || b.Cycles < 0 || b.Time < 0 {
			return fmt.Errorf("burst %d: negative time, count or cycles", i)
		}
	}
	for i, m := range a.Modules {
		if m.Type == "" {
			return fmt.Errorf("module %d: missing type", i)
		}
	}
	return nil
}

// IsLooping reports the looping flag, true when unset.
func (a *EffectAsset) IsLooping() bool {
	return a.Looping == nil || *a.Looping
}

// Color returns the start color with StartAlpha folded in.
func (a *EffectAsset) Color() components.Color {
	c := components.White
	if a.StartColor != nil {
		c = *a.StartColor
	}
	if a.StartAlpha != nil {
		c.A *= *a.StartAlpha
	}
	return c
}

// Blend returns the parsed blend mode.
func (a *EffectAsset) Blend() BlendMode {
	b, _ := ParseBlendMode(a.BlendMode)
	return b
}

// EmitterConfig converts the record into an emitter configuration.
func (a *EffectAsset) EmitterConfig() components.EmitterConfig {
	shape, _ := components.ParseShape(a.Shape)
	return components.EmitterConfig{
		EmissionRate:    a.EmissionRate,
		BurstCount:      a.BurstCount,
		Shape:           shape,
		ShapeRadius:     a.ShapeRadius,
		ShapeWidth:      a.ShapeWidth,
		ShapeHeight:     a.ShapeHeight,
		ConeAngle:       a.ConeAngle,
		Direction:       a.Direction,
		Spread:          a.Spread,
		Speed:           a.Speed.Range(),
		AngularVelocity: a.AngularVelocity.Range(),
		Lifetime:        a.Lifetime.Range(),
		StartScale:      a.StartScale.Range(),
		StartRotation:   a.StartRotation.Range(),
		StartColor:      a.Color(),
		ColorVariance:   a.ColorVariance,
		GravityX:        a.GravityX,
		GravityY:        a.GravityY,
	}
}

// Clone returns a deep copy so callers can keep an immutable base record.
func (a *EffectAsset) Clone() *EffectAsset {
	c := *a
	c.Bursts = append([]components.BurstConfig(nil), a.Bursts...)
	c.Modules = append([]ModuleBlock(nil), a.Modules...)
	if a.Looping != nil {
		v := *a.Looping
		c.Looping = &v
	}
	if a.StartColor != nil {
		v := *a.StartColor
		c.StartColor = &v
	}
	c.StartAlpha = cloneFloat(a.StartAlpha)
	c.EndAlpha = cloneFloat(a.EndAlpha)
	c.EndScale = cloneFloat(a.EndScale)
	return &c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
