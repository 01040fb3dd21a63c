package modules

import (
	"math"

	"github.com/decker502/particlefx/pkg/components"
)

// FrameMode selects how TextureSheet derives the raw frame counter.
type FrameMode int

const (
	FrameByLifetime FrameMode = iota // frame = f(normalizedAge)
	FrameByFPS                       // frame = f(age * FPS)
	FrameRandom                      // stable per particle, seeded from its start color
	FrameBySpeed                     // proportional to speed, capped at MaxSpeed
)

// LoopMode post-processes the raw frame counter.
type LoopMode int

const (
	LoopOnce LoopMode = iota
	LoopRepeat
	LoopPingPong
)

// ParseFrameMode maps an asset keyword to a FrameMode.
func ParseFrameMode(name string) FrameMode {
	switch name {
	case "fps", "FPS":
		return FrameByFPS
	case "random", "Random":
		return FrameRandom
	case "speed", "Speed":
		return FrameBySpeed
	}
	return FrameByLifetime
}

// ParseLoopMode maps an asset keyword to a LoopMode.
func ParseLoopMode(name string) LoopMode {
	switch name {
	case "loop", "Loop", "repeat":
		return LoopRepeat
	case "pingpong", "pingPong", "PingPong":
		return LoopPingPong
	}
	return LoopOnce
}

// TextureSheet selects a sprite-sheet frame for each particle.
// The chosen frame is stored in Particle.Frame.
type TextureSheet struct {
	Base
	Frames int // Total frames in the sheet

	Mode     FrameMode
	Cycles   float64 // FrameByLifetime: passes over the sheet per lifetime
	FPS      float64 // FrameByFPS
	MaxSpeed float64 // FrameBySpeed: speed mapped to the last frame

	Loop      LoopMode
	MaxCycles int // Freeze on the last frame after this many passes, 0 = never
}

// NewTextureSheet creates a lifetime-driven, play-once animation.
func NewTextureSheet(frames int) *TextureSheet {
	return &TextureSheet{Base: NewBase("textureSheet"), Frames: frames, Cycles: 1}
}

// rawFrame returns the unbounded frame counter for the configured mode.
func (m *TextureSheet) rawFrame(p *components.Particle, t float64) int {
	n := m.Frames
	switch m.Mode {
	case FrameByFPS:
		if m.FPS <= 0 {
			return 0
		}
		return int(math.Floor(p.Age * m.FPS))
	case FrameRandom:
		return int(colorSeed(p) % uint32(n))
	case FrameBySpeed:
		if m.MaxSpeed <= 0 {
			return 0
		}
		ratio := math.Min(p.Speed()/m.MaxSpeed, 1)
		return int(math.Floor(ratio * float64(n-1)))
	default:
		cycles := m.Cycles
		if cycles <= 0 {
			cycles = 1
		}
		f := int(math.Floor(t * cycles * float64(n)))
		// The final instant of a single pass shows the last frame, not frame 0 of the next.
		if t >= 1 && f > 0 {
			f--
		}
		return f
	}
}

// Frame maps a raw counter onto the sheet using the loop mode.
func (m *TextureSheet) Frame(raw int) int {
	n := m.Frames
	if n <= 1 || raw <= 0 {
		return 0
	}

	period := n
	if m.Loop == LoopPingPong {
		period = 2 * (n - 1)
	}
	if m.MaxCycles > 0 && raw/period >= m.MaxCycles {
		return n - 1
	}

	switch m.Loop {
	case LoopRepeat:
		return raw % n
	case LoopPingPong:
		f := raw % period
		if f >= n {
			f = period - f
		}
		return f
	default:
		if raw >= n {
			return n - 1
		}
		return raw
	}
}

// Update implements Module.
func (m *TextureSheet) Update(p *components.Particle, _, t float64) {
	if m.Frames <= 1 {
		p.Frame = 0
		return
	}
	p.Frame = m.Frame(m.rawFrame(p, t))
}

// colorSeed derives a stable per-particle seed from the start color so the
// random frame never changes during the particle's life.
func colorSeed(p *components.Particle) uint32 {
	r := uint32(math.Round(p.StartR * 255))
	g := uint32(math.Round(p.StartG * 255))
	b := uint32(math.Round(p.StartB * 255))
	a := uint32(math.Round(p.StartA * 255))
	h := r*73856093 ^ g*19349663 ^ b*83492791 ^ a*2654435761
	h ^= h >> 16
	h *= 0x45d9f3b
	h ^= h >> 16
	return h
}
