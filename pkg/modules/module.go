// Package modules provides the per-particle mutators that make up a particle
// system's processing pipeline.
//
// Every module implements Module. The owning system calls Update once per
// active particle per step, in the order the modules were registered. Modules
// that need per-step context implement Stepper; modules that decide to kill
// particles implement Killer and buffer their decisions until the system
// drains them after the full pass.
package modules

import "github.com/decker502/particlefx/pkg/components"

// Module is a single pipeline stage.
type Module interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	// Update mutates p. normalizedAge is Age/Lifetime clamped to [0, 1].
	Update(p *components.Particle, dt, normalizedAge float64)
}

// StepContext carries the per-step values shared by every particle.
type StepContext struct {
	Dt      float64 // Scaled delta time of this step
	Elapsed float64 // System time since Play, after this step's advance
	OriginX float64 // Emitter world position this step
	OriginY float64
	Step    uint64 // Monotonic step counter, starts at 1
}

// Stepper is implemented by modules that need the step context before the
// particle pass begins.
type Stepper interface {
	BeginStep(ctx StepContext)
}

// Killer is implemented by modules that buffer kill decisions.
// DrainKills hands every pending particle to recycle and empties the set.
type Killer interface {
	DrainKills(recycle func(*components.Particle))
}

// Base holds the name and enabled flag shared by all modules.
type Base struct {
	name     string
	disabled bool
}

// NewBase returns an enabled Base with the given name.
func NewBase(name string) Base {
	return Base{name: name}
}

// Name returns the module name used for lookups.
func (b *Base) Name() string { return b.name }

// SetName renames the module.
func (b *Base) SetName(name string) { b.name = name }

// Enabled reports whether the module runs this step.
func (b *Base) Enabled() bool { return !b.disabled }

// SetEnabled toggles the module.
func (b *Base) SetEnabled(enabled bool) { b.disabled = !enabled }

// KillSet buffers particles scheduled for removal. A particle is stored once
// even if several checks mark it during the same pass.
type KillSet struct {
	pending []*components.Particle
	seen    map[*components.Particle]struct{}
}

// Add schedules p for removal.
func (k *KillSet) Add(p *components.Particle) {
	if k.seen == nil {
		k.seen = make(map[*components.Particle]struct{})
	}
	if _, dup := k.seen[p]; dup {
		return
	}
	k.seen[p] = struct{}{}
	k.pending = append(k.pending, p)
}

// Len returns the number of pending particles.
func (k *KillSet) Len() int {
	return len(k.pending)
}

// Contains reports whether p is pending.
func (k *KillSet) Contains(p *components.Particle) bool {
	_, ok := k.seen[p]
	return ok
}

// Drain passes every pending particle to recycle and clears the set.
func (k *KillSet) Drain(recycle func(*components.Particle)) {
	for _, p := range k.pending {
		recycle(p)
	}
	clear(k.pending)
	k.pending = k.pending[:0]
	clear(k.seen)
}
