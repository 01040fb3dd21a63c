package scene

import (
	"testing"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/systems"
)

func steadyAsset(name string, layer int) *particle.EffectAsset {
	return &particle.EffectAsset{
		Name:         name,
		MaxParticles: 50,
		EmissionRate: 10,
		Lifetime:     particle.FixedValue(5),
		SortLayer:    layer,
	}
}

func oneShotAsset() *particle.EffectAsset {
	looping := false
	return &particle.EffectAsset{
		Name:         "pop",
		MaxParticles: 10,
		BurstCount:   3,
		Duration:     0.2,
		Looping:      &looping,
		Lifetime:     particle.FixedValue(0.1),
	}
}

// TestScene_StepUpdatesEveryEffect tests that each entity's system advances and renders
func TestScene_StepUpdatesEveryEffect(t *testing.T) {
	s := New(nil)
	a := systems.NewParticleSystem(steadyAsset("a", 0), systems.WithSeed(1))
	b := systems.NewParticleSystem(steadyAsset("b", 1), systems.WithSeed(2))
	s.Spawn(a, components.At(10, 10), false)
	s.Spawn(b, components.At(50, 50), false)

	for i := 0; i < 10; i++ {
		s.Step(0.1)
	}
	if a.ActiveCount() != 10 || b.ActiveCount() != 10 {
		t.Fatalf("counts = %d, %d, want 10 each", a.ActiveCount(), b.ActiveCount())
	}

	batches := s.Provider.RenderData()
	if len(batches) != 2 {
		t.Fatalf("len(batches) = %d, want 2", len(batches))
	}
	if batches[0].Layer != 0 || batches[0].Count != 10 || batches[1].Layer != 1 {
		t.Errorf("batches = %+v", batches)
	}

	s.Step(0.1)
	if got := s.Provider.RenderData()[0].Count; got != 11 {
		t.Errorf("provider not invalidated by Step: count %d, want 11", got)
	}
}

// TestScene_TransformFollows tests that particles spawn at the entity transform
func TestScene_TransformFollows(t *testing.T) {
	s := New(nil)
	asset := steadyAsset("a", 0)
	asset.Speed = particle.FixedValue(0)
	ps := systems.NewParticleSystem(asset, systems.WithSeed(1))
	e := s.Spawn(ps, components.At(10, 20), false)

	s.Step(0.1)
	if !s.SetTransform(e, components.At(300, 400)) {
		t.Fatal("SetTransform returned false")
	}
	s.Step(0.1)

	var xs []float64
	ps.ForEachParticle(func(p *components.Particle) { xs = append(xs, p.X) })
	if len(xs) != 2 || xs[0] != 10 || xs[1] != 300 {
		t.Errorf("spawn x positions = %v, want [10 300]", xs)
	}
}

// TestScene_AutoRemove tests that finished one-shot effects are cleaned up
func TestScene_AutoRemove(t *testing.T) {
	s := New(nil)
	keep := systems.NewParticleSystem(steadyAsset("keep", 0), systems.WithSeed(1))
	s.Spawn(keep, components.IdentityTransform(), true)
	pop := systems.NewParticleSystem(oneShotAsset(), systems.WithSeed(2))
	e := s.Spawn(pop, components.IdentityTransform(), true)

	for i := 0; i < 10; i++ {
		s.Step(0.1)
	}
	if s.Len() != 1 || s.Removed() != 1 {
		t.Fatalf("Len() = %d, Removed() = %d, want 1 and 1", s.Len(), s.Removed())
	}
	if _, ok := s.System(e); ok {
		t.Error("removed entity still resolves")
	}
	if s.Provider.Len() != 1 {
		t.Errorf("provider registrations = %d, want 1", s.Provider.Len())
	}
}

// TestScene_Despawn tests manual removal
func TestScene_Despawn(t *testing.T) {
	s := New(nil)
	ps := systems.NewParticleSystem(steadyAsset("a", 0), systems.WithSeed(1))
	e := s.Spawn(ps, components.IdentityTransform(), false)

	if got, ok := s.System(e); !ok || got != ps {
		t.Fatal("System() did not return the spawned system")
	}
	if !s.Despawn(e) || s.Despawn(e) {
		t.Error("Despawn should succeed exactly once")
	}
	if s.Len() != 0 || s.Provider.Len() != 0 {
		t.Errorf("Len() = %d, provider Len() = %d, want 0", s.Len(), s.Provider.Len())
	}
	if s.SetTransform(e, components.At(1, 1)) {
		t.Error("SetTransform on a removed entity should fail")
	}
}
