package components

import "math"

// Particle module flags (scratch bookkeeping owned by pipeline modules).
const (
	// FlagVelocityBase marks that BaseVX/BaseVY hold a velocity-curve baseline.
	FlagVelocityBase uint8 = 1 << iota
	// FlagSpinBase marks that BaseAngularVelocity holds a rotation-curve baseline.
	FlagSpinBase
)

// Particle represents a single pooled particle record.
//
// Records are allocated once by the pool and reused forever: the emitter
// initialises them on spawn, pipeline modules mutate them every step, and
// Reset restores the blank state on recycle.
//
// This is a pure data component - the only methods are trivial accessors.
type Particle struct {
	Alive bool

	// Kinematics (运动学, 像素 / 像素每秒)
	X, Y   float64
	VX, VY float64
	AX, AY float64 // Extra acceleration; gravity is added by the owning system

	// Rotation (旋转, 角度)
	Rotation        float64 // Degrees
	AngularVelocity float64 // Degrees per second

	// Scale (缩放倍数)
	ScaleX, ScaleY           float64
	StartScaleX, StartScaleY float64

	// Color channels (颜色通道, 0-1)
	R, G, B, A                     float64
	StartR, StartG, StartB, StartA float64

	// Lifecycle (生命周期, 秒)
	Age      float64
	Lifetime float64

	// OriginX/OriginY record the emitter world position at spawn time.
	// Orbital/radial motion and local-space follow are measured from here.
	OriginX, OriginY float64

	// Module scratch (模块私有字段)
	Flags               uint8
	BaseVX, BaseVY      float64
	BaseAngularVelocity float64
	Frame               int // Texture-sheet frame selected this step
	UserData            any

	slot int // Index in the owning pool, survives Reset
}

// Slot returns the record's index inside its pool.
func (p *Particle) Slot() int {
	return p.slot
}

// SetSlot is called once by the pool when the record is allocated.
func (p *Particle) SetSlot(slot int) {
	p.slot = slot
}

// Reset restores the canonical blank state, keeping only the slot index.
func (p *Particle) Reset() {
	slot := p.slot
	*p = Particle{slot: slot}
}

// NormalizedAge returns Age/Lifetime clamped to [0, 1].
func (p *Particle) NormalizedAge() float64 {
	if p.Lifetime <= 0 {
		return 0
	}
	t := p.Age / p.Lifetime
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Speed returns the magnitude of the current velocity.
func (p *Particle) Speed() float64 {
	return math.Hypot(p.VX, p.VY)
}

// Expired reports whether the particle outlived its lifetime.
// A particle whose age equals its lifetime is still alive.
func (p *Particle) Expired() bool {
	return p.Age > p.Lifetime
}

// Transform is the world transform the host supplies for an emitter each frame.
// Rotation is in degrees.
type Transform struct {
	X, Y           float64
	Rotation       float64
	ScaleX, ScaleY float64
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// At returns a unit-scale, unrotated transform positioned at (x, y).
func At(x, y float64) Transform {
	return Transform{X: x, Y: y, ScaleX: 1, ScaleY: 1}
}
