// Package scene hosts particle systems as donburi entities.
//
// Each entity carries a Transform and an Effect. Step advances every effect
// with its entity's transform, removes finished one-shot effects and marks
// the shared RenderDataProvider dirty once per frame.
package scene

import (
	"log"

	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/systems"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// EffectData attaches a particle system to an entity.
type EffectData struct {
	System *systems.ParticleSystem
	Handle systems.Handle
	// AutoRemove destroys the entity once the system has stopped and has no
	// live particles.
	AutoRemove bool
}

var (
	Transform = donburi.NewComponentType[components.Transform]()
	Effect    = donburi.NewComponentType[EffectData]()
)

// Scene owns the ECS world and the provider every effect is registered with.
type Scene struct {
	ECS      *ecs.ECS
	Provider *systems.RenderDataProvider

	dt      float64 // Delta of the step in progress
	removed int     // Entities auto-removed so far
}

// New creates an empty scene. A nil provider gets a fresh one.
func New(provider *systems.RenderDataProvider) *Scene {
	if provider == nil {
		provider = systems.NewRenderDataProvider()
	}
	s := &Scene{
		ECS:      ecs.NewECS(donburi.NewWorld()),
		Provider: provider,
	}
	s.ECS.AddSystem(s.updateEffects)
	s.ECS.AddSystem(s.removeFinished)
	s.ECS.AddSystem(s.invalidate)
	return s
}

// Spawn adds an entity for ps at xf, registers it for rendering and starts it.
func (s *Scene) Spawn(ps *systems.ParticleSystem, xf components.Transform, autoRemove bool) donburi.Entity {
	world := s.ECS.World
	entity := world.Create(Transform, Effect)
	entry := world.Entry(entity)
	*Transform.Get(entry) = xf
	*Effect.Get(entry) = EffectData{
		System:     ps,
		Handle:     s.Provider.Register(ps),
		AutoRemove: autoRemove,
	}
	ps.Play()
	return entity
}

// Despawn removes an entity and unregisters its system.
func (s *Scene) Despawn(entity donburi.Entity) bool {
	world := s.ECS.World
	if !world.Valid(entity) {
		return false
	}
	entry := world.Entry(entity)
	if entry.HasComponent(Effect) {
		s.Provider.Unregister(Effect.Get(entry).Handle)
	}
	world.Remove(entity)
	return true
}

// SetTransform moves an entity's emitter.
func (s *Scene) SetTransform(entity donburi.Entity, xf components.Transform) bool {
	if !s.ECS.World.Valid(entity) {
		return false
	}
	*Transform.Get(s.ECS.World.Entry(entity)) = xf
	return true
}

// System returns the particle system attached to entity.
func (s *Scene) System(entity donburi.Entity) (*systems.ParticleSystem, bool) {
	if !s.ECS.World.Valid(entity) {
		return nil, false
	}
	return Effect.Get(s.ECS.World.Entry(entity)).System, true
}

// Len returns the number of live effect entities.
func (s *Scene) Len() int {
	n := 0
	Effect.Each(s.ECS.World, func(*donburi.Entry) { n++ })
	return n
}

// Removed returns how many finished effects were removed automatically.
func (s *Scene) Removed() int {
	return s.removed
}

// Step advances every effect by dt seconds.
func (s *Scene) Step(dt float64) {
	s.dt = dt
	s.ECS.Update()
}

func (s *Scene) updateEffects(e *ecs.ECS) {
	Effect.Each(e.World, func(entry *donburi.Entry) {
		fx := Effect.Get(entry)
		xf := components.IdentityTransform()
		if entry.HasComponent(Transform) {
			xf = *Transform.Get(entry)
		}
		fx.System.Update(s.dt, xf)
	})
}

func (s *Scene) removeFinished(e *ecs.ECS) {
	type done struct {
		entity donburi.Entity
		fx     EffectData
	}
	var finished []done
	Effect.Each(e.World, func(entry *donburi.Entry) {
		fx := Effect.Get(entry)
		if fx.AutoRemove && fx.System.State() == systems.Stopped && fx.System.ActiveCount() == 0 {
			finished = append(finished, done{entry.Entity(), *fx})
		}
	})
	for _, d := range finished {
		log.Printf("[Scene] removing finished effect %q", d.fx.System.Name())
		s.Provider.Unregister(d.fx.Handle)
		e.World.Remove(d.entity)
		s.removed++
	}
}

func (s *Scene) invalidate(*ecs.ECS) {
	s.Provider.Invalidate()
}
