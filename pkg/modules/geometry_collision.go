package modules

import (
	"math"

	"github.com/decker502/particlefx/pkg/components"
)

// ColliderHandle identifies a collider inside the host's geometry store.
type ColliderHandle uint64

// OverlapResult lists what a circle overlap touched. Both slices have the
// same length.
type OverlapResult struct {
	EntityIDs []uint64
	Colliders []ColliderHandle
}

// Hit reports whether anything overlapped.
func (r OverlapResult) Hit() bool {
	return len(r.Colliders) > 0
}

// RaycastHit is the closest surface hit by a ray.
type RaycastHit struct {
	X, Y             float64
	NormalX, NormalY float64 // Unit surface normal facing the ray origin
	EntityID         uint64
	Collider         ColliderHandle
}

// GeometryQuery is the hit-testing capability supplied by the host scene.
// mask selects collider layers; 0 matches every layer.
type GeometryQuery interface {
	OverlapCircle(x, y, radius float64, mask uint32) OverlapResult
	Raycast(ox, oy, dx, dy, maxDist float64, mask uint32) (RaycastHit, bool)
}

// CollisionMode selects which GeometryQuery call is used.
type CollisionMode int

const (
	CollisionOverlap CollisionMode = iota
	CollisionRaycast
)

// CollisionEvent is passed to the OnCollide callback.
type CollisionEvent struct {
	Particle *components.Particle
	EntityID uint64
	Collider ColliderHandle
	X, Y     float64
	Behavior Behavior
}

// GeometryCollision tests particles against external scene geometry.
//
// Raycast mode casts along the particle's velocity for the distance it will
// travel this step and reflects about the hit normal. Overlap mode has no
// normal, so bounce reverses the velocity.
type GeometryCollision struct {
	Base
	Query GeometryQuery // nil disables the module
	Mode  CollisionMode
	Mask  uint32
	// Radius is the particle's collision radius in pixels.
	Radius float64

	Behavior     Behavior
	BounceFactor float64
	MinKillSpeed float64
	LifetimeLoss float64

	// Interval runs detection only every Nth step. 0 or 1 means every step.
	Interval int
	// OnCollide is called once per hit, after the response has been applied.
	OnCollide func(CollisionEvent)

	active bool
	dt     float64
	kills  KillSet
}

// NewGeometryCollision creates an overlap-mode kill module.
func NewGeometryCollision(query GeometryQuery, radius float64) *GeometryCollision {
	return &GeometryCollision{
		Base:         NewBase("geometryCollision"),
		Query:        query,
		Radius:       radius,
		BounceFactor: 1,
	}
}

// BeginStep implements Stepper.
func (m *GeometryCollision) BeginStep(ctx StepContext) {
	m.dt = ctx.Dt
	m.active = m.Interval <= 1 || ctx.Step%uint64(m.Interval) == 0
}

// DrainKills implements Killer.
func (m *GeometryCollision) DrainKills(recycle func(*components.Particle)) {
	m.kills.Drain(recycle)
}

// Update implements Module.
func (m *GeometryCollision) Update(p *components.Particle, _, _ float64) {
	if m.Query == nil || !m.active {
		return
	}
	switch m.Mode {
	case CollisionRaycast:
		m.raycast(p)
	default:
		m.overlap(p)
	}
}

func (m *GeometryCollision) overlap(p *components.Particle) {
	res := m.Query.OverlapCircle(p.X, p.Y, math.Max(m.Radius, 0), m.Mask)
	if !res.Hit() {
		return
	}
	switch m.Behavior {
	case BehaviorBounce:
		p.VX = -p.VX * m.BounceFactor
		p.VY = -p.VY * m.BounceFactor
		m.afterBounce(p)
	case BehaviorStop:
		p.VX, p.VY = 0, 0
	default:
		m.kills.Add(p)
	}
	ev := CollisionEvent{Particle: p, X: p.X, Y: p.Y, Behavior: m.Behavior}
	if len(res.Colliders) > 0 {
		ev.Collider = res.Colliders[0]
	}
	if len(res.EntityIDs) > 0 {
		ev.EntityID = res.EntityIDs[0]
	}
	m.notify(ev)
}

func (m *GeometryCollision) raycast(p *components.Particle) {
	speed := p.Speed()
	if speed == 0 {
		return
	}
	dx, dy := p.VX/speed, p.VY/speed
	dist := speed*m.dt + math.Max(m.Radius, 0)
	hit, ok := m.Query.Raycast(p.X, p.Y, dx, dy, dist, m.Mask)
	if !ok {
		return
	}
	switch m.Behavior {
	case BehaviorBounce:
		p.X, p.Y = hit.X+hit.NormalX*m.Radius, hit.Y+hit.NormalY*m.Radius
		p.VX, p.VY = reflect(p.VX, p.VY, hit.NormalX, hit.NormalY, m.BounceFactor)
		m.afterBounce(p)
	case BehaviorStop:
		p.X, p.Y = hit.X+hit.NormalX*m.Radius, hit.Y+hit.NormalY*m.Radius
		p.VX, p.VY = 0, 0
	default:
		m.kills.Add(p)
	}
	m.notify(CollisionEvent{
		Particle: p,
		EntityID: hit.EntityID,
		Collider: hit.Collider,
		X:        hit.X,
		Y:        hit.Y,
		Behavior: m.Behavior,
	})
}

func (m *GeometryCollision) afterBounce(p *components.Particle) {
	applyLifetimeLoss(p, m.LifetimeLoss)
	if m.MinKillSpeed > 0 && p.Speed() < m.MinKillSpeed {
		m.kills.Add(p)
	}
}

func (m *GeometryCollision) notify(ev CollisionEvent) {
	if m.OnCollide != nil {
		m.OnCollide(ev)
	}
}
