package modules

import (
	"math"

	"github.com/decker502/particlefx/pkg/components"
)

// BoundaryShape is the shape of a BoundaryCollision region.
type BoundaryShape int

const (
	BoundaryRect BoundaryShape = iota
	BoundaryCircle
)

// Behavior is the response to a collision.
type Behavior int

const (
	BehaviorKill Behavior = iota
	BehaviorBounce
	BehaviorWrap // Boundary only
	BehaviorStop // Geometry only
)

// ParseBehavior maps an asset keyword to a Behavior.
func ParseBehavior(name string) Behavior {
	switch name {
	case "bounce", "Bounce", "reflect":
		return BehaviorBounce
	case "wrap", "Wrap":
		return BehaviorWrap
	case "stop", "Stop":
		return BehaviorStop
	}
	return BehaviorKill
}

// BoundaryCollision keeps particles inside a rectangle or circle centred on
// the emitter origin.
//
// Kills are buffered in a pending set and drained by the owning system
// after the module pass.
type BoundaryCollision struct {
	Base
	Shape  BoundaryShape
	Width  float64 // BoundaryRect
	Height float64
	Radius float64 // BoundaryCircle

	Behavior     Behavior
	BounceFactor float64 // Fraction of the normal velocity kept after a bounce
	MinKillSpeed float64 // Bounced particles slower than this are killed
	LifetimeLoss float64 // Fraction of total lifetime consumed per bounce

	originX, originY float64
	kills            KillSet
}

// NewBoundaryRect creates a rectangular boundary of the given size.
func NewBoundaryRect(width, height float64, behavior Behavior) *BoundaryCollision {
	return &BoundaryCollision{
		Base:         NewBase("boundaryCollision"),
		Shape:        BoundaryRect,
		Width:        width,
		Height:       height,
		Behavior:     behavior,
		BounceFactor: 1,
	}
}

// NewBoundaryCircle creates a circular boundary.
func NewBoundaryCircle(radius float64, behavior Behavior) *BoundaryCollision {
	return &BoundaryCollision{
		Base:         NewBase("boundaryCollision"),
		Shape:        BoundaryCircle,
		Radius:       radius,
		Behavior:     behavior,
		BounceFactor: 1,
	}
}

// BeginStep implements Stepper.
func (m *BoundaryCollision) BeginStep(ctx StepContext) {
	m.originX, m.originY = ctx.OriginX, ctx.OriginY
}

// SetOrigin moves the boundary centre without a step context.
func (m *BoundaryCollision) SetOrigin(x, y float64) {
	m.originX, m.originY = x, y
}

// DrainKills implements Killer.
func (m *BoundaryCollision) DrainKills(recycle func(*components.Particle)) {
	m.kills.Drain(recycle)
}

// Pending returns the number of buffered kills.
func (m *BoundaryCollision) Pending() int {
	return m.kills.Len()
}

// Update implements Module.
func (m *BoundaryCollision) Update(p *components.Particle, _, _ float64) {
	switch m.Shape {
	case BoundaryCircle:
		m.updateCircle(p)
	default:
		m.updateRect(p)
	}
}

func (m *BoundaryCollision) updateRect(p *components.Particle) {
	if m.Width <= 0 || m.Height <= 0 {
		return
	}
	left, right := m.originX-m.Width/2, m.originX+m.Width/2
	top, bottom := m.originY-m.Height/2, m.originY+m.Height/2

	switch m.Behavior {
	case BehaviorWrap:
		if p.X >= right {
			p.X = left
		} else if p.X <= left {
			p.X = right
		}
		if p.Y >= bottom {
			p.Y = top
		} else if p.Y <= top {
			p.Y = bottom
		}

	case BehaviorBounce:
		bounced := false
		if p.X >= right && p.VX > 0 {
			p.X = right
			p.VX = -p.VX * m.BounceFactor
			bounced = true
		} else if p.X <= left && p.VX < 0 {
			p.X = left
			p.VX = -p.VX * m.BounceFactor
			bounced = true
		}
		if p.Y >= bottom && p.VY > 0 {
			p.Y = bottom
			p.VY = -p.VY * m.BounceFactor
			bounced = true
		} else if p.Y <= top && p.VY < 0 {
			p.Y = top
			p.VY = -p.VY * m.BounceFactor
			bounced = true
		}
		if bounced {
			m.afterBounce(p)
		}

	default:
		if p.X > right || p.X < left || p.Y > bottom || p.Y < top {
			m.kills.Add(p)
		}
	}
}

// wrapInset is the fraction of the radius a wrapped particle lands inside the circle.
const wrapInset = 1e-6

func (m *BoundaryCollision) updateCircle(p *components.Particle) {
	if m.Radius <= 0 {
		return
	}
	dx := p.X - m.originX
	dy := p.Y - m.originY
	dist := math.Hypot(dx, dy)
	if dist < m.Radius || dist == 0 {
		return
	}
	nx, ny := dx/dist, dy/dist

	switch m.Behavior {
	case BehaviorWrap:
		// Particles heading back inside are left alone; the landing point
		// sits just inside the rim so the next step does not wrap again.
		if p.VX*nx+p.VY*ny < 0 {
			return
		}
		r := m.Radius * (1 - wrapInset)
		p.X = m.originX - nx*r
		p.Y = m.originY - ny*r

	case BehaviorBounce:
		vn := p.VX*nx + p.VY*ny
		if vn <= 0 {
			return
		}
		p.X = m.originX + nx*m.Radius
		p.Y = m.originY + ny*m.Radius
		p.VX, p.VY = reflect(p.VX, p.VY, nx, ny, m.BounceFactor)
		m.afterBounce(p)

	default:
		if dist > m.Radius {
			m.kills.Add(p)
		}
	}
}

func (m *BoundaryCollision) afterBounce(p *components.Particle) {
	applyLifetimeLoss(p, m.LifetimeLoss)
	if m.MinKillSpeed > 0 && p.Speed() < m.MinKillSpeed {
		m.kills.Add(p)
	}
}

// reflect mirrors (vx, vy) about the surface with unit normal (nx, ny):
// the tangential component is kept and the normal component is reversed
// and scaled by factor.
func reflect(vx, vy, nx, ny, factor float64) (float64, float64) {
	vn := vx*nx + vy*ny
	tx := vx - vn*nx
	ty := vy - vn*ny
	return tx - factor*vn*nx, ty - factor*vn*ny
}

// applyLifetimeLoss ages p by a fraction of its total lifetime.
func applyLifetimeLoss(p *components.Particle, loss float64) {
	if loss <= 0 {
		return
	}
	p.Age = math.Min(p.Age+p.Lifetime*math.Min(loss, 1), p.Lifetime)
}
