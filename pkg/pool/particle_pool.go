// Package pool provides fixed-capacity storage for particle records.
package pool

import "github.com/decker502/particlefx/pkg/components"

// Pool stores particle records in a single contiguous slice.
//
// Records are allocated up front and reused; Spawn never allocates. A full
// pool makes Spawn return nil, which callers treat as back-pressure.
type Pool struct {
	particles []components.Particle
	active    int
	// freeHint is a lower bound on the index of the first inactive slot.
	freeHint int
}

// New creates a pool holding capacity blank records.
func New(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool{particles: make([]components.Particle, capacity)}
	for i := range p.particles {
		p.particles[i].SetSlot(i)
	}
	return p
}

// Capacity returns the number of records in the pool.
func (p *Pool) Capacity() int {
	return len(p.particles)
}

// ActiveCount returns the number of alive records.
func (p *Pool) ActiveCount() int {
	return p.active
}

// Full reports whether every slot is in use.
func (p *Pool) Full() bool {
	return p.active >= len(p.particles)
}

// At returns the record stored at index i.
func (p *Pool) At(i int) *components.Particle {
	return &p.particles[i]
}

// Spawn claims the first inactive slot, marks it alive and returns it.
// Returns nil when every slot is active.
func (p *Pool) Spawn() *components.Particle {
	if p.active >= len(p.particles) {
		return nil
	}
	for i := p.freeHint; i < len(p.particles); i++ {
		pt := &p.particles[i]
		if pt.Alive {
			continue
		}
		pt.Alive = true
		p.active++
		p.freeHint = i + 1
		return pt
	}
	return nil
}

// Recycle returns a record to the pool. Recycling an inactive record is a no-op.
func (p *Pool) Recycle(pt *components.Particle) {
	if pt == nil || !pt.Alive {
		return
	}
	slot := pt.Slot()
	if slot < 0 || slot >= len(p.particles) || &p.particles[slot] != pt {
		return
	}
	pt.Reset()
	p.active--
	if slot < p.freeHint {
		p.freeHint = slot
	}
}

// RecycleAll resets every record.
func (p *Pool) RecycleAll() {
	for i := range p.particles {
		p.particles[i].Reset()
	}
	p.active = 0
	p.freeHint = 0
}

// ForEachActive calls fn for every alive record in storage order.
// fn may recycle the record it receives.
func (p *Pool) ForEachActive(fn func(*components.Particle)) {
	if p.active == 0 {
		return
	}
	for i := range p.particles {
		if p.particles[i].Alive {
			fn(&p.particles[i])
		}
	}
}

// Resize changes the capacity. Growing appends blank records; shrinking
// drops every record past the new bound, alive or not.
//
// Growing may move the backing array, so pointers obtained before Resize
// must not be used afterwards.
func (p *Pool) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	old := len(p.particles)
	switch {
	case capacity == old:
		return
	case capacity < old:
		for i := capacity; i < old; i++ {
			if p.particles[i].Alive {
				p.particles[i].Reset()
				p.active--
			}
		}
		p.particles = p.particles[:capacity:capacity]
		if p.freeHint > capacity {
			p.freeHint = capacity
		}
	default:
		grown := make([]components.Particle, capacity)
		copy(grown, p.particles)
		for i := old; i < capacity; i++ {
			grown[i].SetSlot(i)
		}
		p.particles = grown
	}
}
