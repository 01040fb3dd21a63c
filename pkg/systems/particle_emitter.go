package systems

import (
	"math"
	"math/rand"

	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/pool"
)

const degToRad = math.Pi / 180

// Emitter converts elapsed time into newly spawned particles.
//
// Continuous emission uses a fractional accumulator: rate*dt is added every
// step, one particle is spawned per whole unit and the remainder carries
// over, so the long-run rate does not depend on frame timing. A positive
// BurstCount makes the emitter one-shot instead: the first Emit spawns the
// whole burst and disables continuous emission until Reset.
type Emitter struct {
	config components.EmitterConfig
	rng    *rand.Rand

	accumulator float64
	continuous  bool
}

// NewEmitter creates an emitter. rng must not be shared with another goroutine.
func NewEmitter(config components.EmitterConfig, rng *rand.Rand) *Emitter {
	return &Emitter{config: config, rng: rng, continuous: true}
}

// Config returns the active configuration.
func (e *Emitter) Config() components.EmitterConfig {
	return e.config
}

// SetConfig swaps the configuration, keeping accumulator and one-shot state.
func (e *Emitter) SetConfig(config components.EmitterConfig) {
	e.config = config
}

// ContinuousEnabled reports whether Emit may still spawn particles.
func (e *Emitter) ContinuousEnabled() bool {
	return e.continuous
}

// Reset clears the accumulator and re-enables continuous emission.
func (e *Emitter) Reset() {
	e.accumulator = 0
	e.continuous = true
}

// Emit advances the emitter by dt and returns the number of particles spawned.
func (e *Emitter) Emit(p *pool.Pool, dt float64, xf components.Transform) int {
	if !e.continuous {
		return 0
	}
	if e.config.BurstCount > 0 {
		e.continuous = false
		return e.Burst(p, e.config.BurstCount, xf)
	}

	rate := e.config.EmissionRate
	if rate <= 0 || dt <= 0 {
		return 0
	}
	e.accumulator += rate * dt
	whole := math.Floor(e.accumulator)
	e.accumulator -= whole

	// Units consumed while the pool is full are dropped, not carried.
	return e.Burst(p, int(whole), xf)
}

// Burst spawns count particles immediately regardless of emission state.
// Spawning stops early when the pool is full.
func (e *Emitter) Burst(p *pool.Pool, count int, xf components.Transform) int {
	spawned := 0
	for i := 0; i < count; i++ {
		pt := p.Spawn()
		if pt == nil {
			break
		}
		e.initParticle(pt, xf)
		spawned++
	}
	return spawned
}

// initParticle samples every configured range into a freshly spawned record.
func (e *Emitter) initParticle(pt *components.Particle, xf components.Transform) {
	cfg := &e.config

	ox, oy, dir := e.sampleShape()

	// Scale before rotation.
	ox *= xf.ScaleX
	oy *= xf.ScaleY
	sin, cos := math.Sincos(xf.Rotation * degToRad)
	pt.X = xf.X + ox*cos - oy*sin
	pt.Y = xf.Y + ox*sin + oy*cos
	pt.OriginX, pt.OriginY = xf.X, xf.Y

	lifetime := cfg.Lifetime.Sample(e.rng)
	if lifetime <= 0 {
		lifetime = 1
	}
	pt.Lifetime = lifetime
	pt.Age = 0

	speed := cfg.Speed.Sample(e.rng) * (xf.ScaleX + xf.ScaleY) / 2
	dsin, dcos := math.Sincos((dir + xf.Rotation) * degToRad)
	pt.VX = dcos * speed
	pt.VY = dsin * speed

	pt.Rotation = cfg.StartRotation.Sample(e.rng)
	pt.AngularVelocity = cfg.AngularVelocity.Sample(e.rng)

	scale := cfg.StartScale.Sample(e.rng)
	pt.ScaleX, pt.ScaleY = scale, scale
	pt.StartScaleX, pt.StartScaleY = scale, scale

	pt.R = e.vary(cfg.StartColor.R, cfg.ColorVariance.R)
	pt.G = e.vary(cfg.StartColor.G, cfg.ColorVariance.G)
	pt.B = e.vary(cfg.StartColor.B, cfg.ColorVariance.B)
	pt.A = e.vary(cfg.StartColor.A, cfg.ColorVariance.A)
	pt.StartR, pt.StartG, pt.StartB, pt.StartA = pt.R, pt.G, pt.B, pt.A
}

// sampleShape returns a local spawn offset and the launch direction in degrees.
func (e *Emitter) sampleShape() (x, y, dir float64) {
	cfg := &e.config
	dir = cfg.Direction + e.uniform(-cfg.Spread/2, cfg.Spread/2)

	switch cfg.Shape {
	case components.ShapeCircle:
		// Radius is drawn uniformly, which biases samples towards the centre.
		a := e.uniform(0, 2*math.Pi)
		r := e.uniform(0, cfg.ShapeRadius)
		return math.Cos(a) * r, math.Sin(a) * r, dir

	case components.ShapeRing:
		a := e.uniform(0, 2*math.Pi)
		return math.Cos(a) * cfg.ShapeRadius, math.Sin(a) * cfg.ShapeRadius, dir

	case components.ShapeRectangle:
		w, h := cfg.ShapeWidth, cfg.ShapeHeight
		return e.uniform(-w/2, w/2), e.uniform(-h/2, h/2), dir

	case components.ShapeEdge:
		x, y = e.sampleEdge(cfg.ShapeWidth, cfg.ShapeHeight)
		return x, y, dir

	case components.ShapeLine:
		sin, cos := math.Sincos((cfg.Direction + 90) * degToRad)
		t := e.uniform(-cfg.ShapeWidth/2, cfg.ShapeWidth/2)
		return cos * t, sin * t, dir

	case components.ShapeCone:
		a := cfg.Direction + e.uniform(-cfg.ConeAngle/2, cfg.ConeAngle/2)
		r := e.uniform(0, cfg.ShapeRadius)
		sin, cos := math.Sincos(a * degToRad)
		return cos * r, sin * r, a
	}
	return 0, 0, dir
}

// sampleEdge walks the rectangle perimeter clockwise from the top-left
// corner and returns the point at a uniformly drawn arc length.
func (e *Emitter) sampleEdge(w, h float64) (float64, float64) {
	perimeter := 2 * (w + h)
	if perimeter <= 0 {
		return 0, 0
	}
	d := e.uniform(0, perimeter)
	left, top := -w/2, -h/2
	switch {
	case d < w:
		return left + d, top
	case d < w+h:
		return w / 2, top + (d - w)
	case d < 2*w+h:
		return w/2 - (d - w - h), h / 2
	default:
		return left, h/2 - (d - 2*w - h)
	}
}

func (e *Emitter) uniform(lo, hi float64) float64 {
	if lo >= hi {
		return lo
	}
	return lo + e.rng.Float64()*(hi-lo)
}

func (e *Emitter) vary(base, variance float64) float64 {
	if variance != 0 {
		base += e.uniform(-variance, variance)
	}
	return math.Max(0, math.Min(1, base))
}
