package systems

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/modules"
)

// recordModule appends its name to a shared log for every particle it visits.
type recordModule struct {
	modules.Base
	log *[]string
}

func newRecordModule(name string, log *[]string) *recordModule {
	return &recordModule{Base: modules.NewBase(name), log: log}
}

func (m *recordModule) Update(_ *components.Particle, _, _ float64) {
	*m.log = append(*m.log, m.Name())
}

type failingSource struct{}

func (failingSource) Load(id string) (*particle.EffectAsset, error) {
	return nil, errors.New("not found")
}

func testAsset() *particle.EffectAsset {
	return &particle.EffectAsset{
		Name:         "test",
		MaxParticles: 100,
		EmissionRate: 10,
		Lifetime:     particle.FixedValue(1),
	}
}

func runSteps(ps *ParticleSystem, n int, dt float64) {
	for i := 0; i < n; i++ {
		ps.Update(dt, components.IdentityTransform())
	}
}

// TestParticleSystem_EndToEnd tests one second of steady emission at a fixed step
func TestParticleSystem_EndToEnd(t *testing.T) {
	ps := NewParticleSystem(testAsset(), WithSeed(1))
	ps.Play()
	runSteps(ps, 10, 0.1)

	if got := ps.ActiveCount(); got != 10 {
		t.Fatalf("ActiveCount() = %d, want 10", got)
	}
	ps.ForEachParticle(func(p *components.Particle) {
		if p.Expired() {
			t.Errorf("particle with age %v expired", p.Age)
		}
	})
}

// TestParticleSystem_NilAsset tests the fallback asset
func TestParticleSystem_NilAsset(t *testing.T) {
	ps := NewParticleSystem(nil, WithSeed(1))
	if ps.Name() != "default" {
		t.Errorf("Name() = %q, want default", ps.Name())
	}
	if ps.Capacity() != 32 {
		t.Errorf("Capacity() = %d, want 32", ps.Capacity())
	}
	if !ps.Looping() {
		t.Error("default asset should loop")
	}
}

// TestParticleSystem_StateMachine tests play, pause and stop transitions
func TestParticleSystem_StateMachine(t *testing.T) {
	ps := NewParticleSystem(testAsset(), WithSeed(1))
	if ps.State() != Stopped {
		t.Fatalf("initial state = %v, want stopped", ps.State())
	}
	runSteps(ps, 5, 0.1)
	if ps.ActiveCount() != 0 {
		t.Fatalf("stopped system emitted %d particles", ps.ActiveCount())
	}

	ps.Play()
	runSteps(ps, 5, 0.1)
	if ps.State() != Playing || ps.ActiveCount() != 5 {
		t.Fatalf("after play: state %v count %d, want playing 5", ps.State(), ps.ActiveCount())
	}

	ps.Pause()
	elapsed := ps.Elapsed()
	runSteps(ps, 5, 0.1)
	if ps.State() != Paused || ps.ActiveCount() != 5 || ps.Elapsed() != elapsed {
		t.Errorf("paused system advanced: state %v count %d", ps.State(), ps.ActiveCount())
	}

	ps.Play()
	runSteps(ps, 1, 0.1)
	if ps.ActiveCount() != 6 {
		t.Errorf("resume: count %d, want 6", ps.ActiveCount())
	}

	ps.Stop(false)
	if ps.State() != Stopped || ps.Elapsed() != 0 {
		t.Errorf("Stop(false): state %v elapsed %v", ps.State(), ps.Elapsed())
	}
	if ps.ActiveCount() != 6 {
		t.Errorf("Stop(false) should keep particles, got %d", ps.ActiveCount())
	}

	ps.Stop(true)
	if ps.ActiveCount() != 0 {
		t.Errorf("Stop(true) should clear, got %d", ps.ActiveCount())
	}
}

// TestParticleSystem_EmitWhileStopped tests manual emission in any state
func TestParticleSystem_EmitWhileStopped(t *testing.T) {
	ps := NewParticleSystem(testAsset(), WithSeed(1))
	if n := ps.Emit(7); n != 7 {
		t.Errorf("Emit(7) = %d", n)
	}
	ps.Clear()
	if ps.ActiveCount() != 0 || ps.State() != Stopped {
		t.Errorf("Clear: count %d state %v", ps.ActiveCount(), ps.State())
	}
}

// TestParticleSystem_OverridesRoundTrip tests that clearing overrides restores asset values
func TestParticleSystem_OverridesRoundTrip(t *testing.T) {
	asset := testAsset()
	asset.GravityY = 100
	asset.PlaybackSpeed = 2
	ps := NewParticleSystem(asset, WithSeed(1))

	type snapshot struct {
		rate, speed, gx, gy, scale, speedMul float64

		looping bool
		color   components.Color
	}
	take := func() snapshot {
		return snapshot{ps.EmissionRate(), ps.PlaybackSpeed(), ps.GravityX(), ps.GravityY(),
			ps.ScaleMultiplier(), ps.SpeedMultiplier(), ps.Looping(), ps.StartColor()}
	}
	before := take()

	ps.SetOverrides(Overrides{
		EmissionRate:    ptr(50.0),
		PlaybackSpeed:   ptr(0.5),
		Looping:         ptr(false),
		GravityX:        ptr(3.0),
		GravityY:        ptr(-9.0),
		StartColor:      &components.Color{R: 1, A: 0.5},
		ScaleMultiplier: ptr(2.0),
		SpeedMultiplier: ptr(3.0),
	})
	during := take()
	want := snapshot{50, 0.5, 3, -9, 2, 3, false, components.Color{R: 1, A: 0.5}}
	if during != want {
		t.Errorf("overridden getters = %+v, want %+v", during, want)
	}

	ps.ClearOverrides()
	if after := take(); after != before {
		t.Errorf("after ClearOverrides got %+v, want %+v", after, before)
	}
	if !ps.Overrides().IsZero() {
		t.Error("Overrides() should be empty")
	}
}

// TestParticleSystem_SetOverride tests keyed overrides and their errors
func TestParticleSystem_SetOverride(t *testing.T) {
	ps := NewParticleSystem(testAsset(), WithSeed(1))

	tests := []struct {
		name    string
		key     string
		value   any
		wantErr bool
	}{
		{"int rate", OverrideEmissionRate, 20, false},
		{"float speed", OverridePlaybackSpeed, float32(1.5), false},
		{"bool looping", OverrideLooping, false, false},
		{"color", OverrideStartColor, components.Color{G: 1, A: 1}, false},
		{"color array", OverrideStartColor, [4]float64{0, 0, 1, 1}, false},
		{"unknown key", "wobble", 1.0, true},
		{"string rate", OverrideEmissionRate, "fast", true},
		{"number looping", OverrideLooping, 1, true},
		{"bad color", OverrideStartColor, "red", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.SetOverride(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetOverride(%s, %v) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}

	if err := ps.SetOverride("wobble", 1.0); !errors.Is(err, ErrUnknownOverride) {
		t.Errorf("unknown key error = %v, want ErrUnknownOverride", err)
	}
	if got := ps.StartColor(); got != (components.Color{B: 1, A: 1}) {
		t.Errorf("StartColor() = %+v, want last set color", got)
	}
	if err := ps.ClearOverride(OverrideEmissionRate); err != nil {
		t.Fatalf("ClearOverride: %v", err)
	}
	if ps.EmissionRate() != 10 {
		t.Errorf("EmissionRate() after clear = %v, want 10", ps.EmissionRate())
	}
	if err := ps.ClearOverride("wobble"); !errors.Is(err, ErrUnknownOverride) {
		t.Errorf("ClearOverride unknown = %v", err)
	}
}

// TestParticleSystem_OverridesReachEmitter tests override propagation into the emitter
func TestParticleSystem_OverridesReachEmitter(t *testing.T) {
	asset := testAsset()
	asset.Speed = particle.RangeValue(10, 20)
	ps := NewParticleSystem(asset, WithSeed(1))
	_ = ps.SetOverride(OverrideEmissionRate, 0)
	_ = ps.SetOverride(OverrideSpeedMultiplier, 2)
	ps.EnsureBuilt()

	cfg := ps.Emitter().Config()
	if cfg.EmissionRate != 0 {
		t.Errorf("emitter rate = %v, want 0", cfg.EmissionRate)
	}
	if cfg.Speed.Min != 20 || cfg.Speed.Max != 40 {
		t.Errorf("emitter speed = %+v, want [20 40]", cfg.Speed)
	}

	ps.Play()
	runSteps(ps, 10, 0.1)
	if ps.ActiveCount() != 0 {
		t.Errorf("rate override 0 still emitted %d", ps.ActiveCount())
	}
}

// TestParticleSystem_OneShotBurst tests burstCount semantics across Stop and Play
func TestParticleSystem_OneShotBurst(t *testing.T) {
	asset := testAsset()
	asset.BurstCount = 5
	asset.Lifetime = particle.FixedValue(10)
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()
	runSteps(ps, 10, 0.1)
	if ps.ActiveCount() != 5 {
		t.Fatalf("after burst: %d, want 5", ps.ActiveCount())
	}

	ps.Stop(false)
	ps.Play()
	runSteps(ps, 1, 0.1)
	if ps.ActiveCount() != 10 {
		t.Errorf("after replay: %d, want 10", ps.ActiveCount())
	}
}

// TestParticleSystem_BurstSchedule tests timed bursts with an interval and cycle cap
func TestParticleSystem_BurstSchedule(t *testing.T) {
	asset := testAsset()
	asset.EmissionRate = 0
	asset.Lifetime = particle.FixedValue(10)
	asset.Bursts = []components.BurstConfig{{Time: 0.25, Count: 3, Cycles: 2, Interval: 0.5}}
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()

	tests := []struct {
		steps int
		want  int
	}{
		{2, 0},  // 0.2
		{1, 3},  // 0.3
		{4, 3},  // 0.7
		{1, 6},  // 0.8
		{10, 6}, // cycles exhausted
	}
	for _, tt := range tests {
		runSteps(ps, tt.steps, 0.1)
		if got := ps.ActiveCount(); got != tt.want {
			t.Errorf("at %.1fs: count %d, want %d", ps.Elapsed(), got, tt.want)
		}
	}
}

// TestParticleSystem_BurstPauseResume tests that resuming from pause keeps burst progress
func TestParticleSystem_BurstPauseResume(t *testing.T) {
	asset := testAsset()
	asset.EmissionRate = 0
	asset.Lifetime = particle.FixedValue(10)
	asset.Bursts = []components.BurstConfig{{Time: 0.1, Count: 5, Cycles: 1}}
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()
	runSteps(ps, 3, 0.1)
	if got := ps.ActiveCount(); got != 5 {
		t.Fatalf("before pause: count %d, want 5", got)
	}

	ps.Pause()
	ps.Play()
	runSteps(ps, 1, 0.1)
	if got := ps.ActiveCount(); got != 5 {
		t.Errorf("after resume: count %d, want 5", got)
	}

	ps.Stop(true)
	ps.Play()
	runSteps(ps, 1, 0.1)
	if got := ps.ActiveCount(); got != 5 {
		t.Errorf("after replay: count %d, want 5", got)
	}
}

// TestParticleSystem_LoopWrap tests that bursts restart on each loop
func TestParticleSystem_LoopWrap(t *testing.T) {
	asset := testAsset()
	asset.EmissionRate = 0
	asset.Duration = 1
	asset.Lifetime = particle.FixedValue(10)
	asset.Bursts = []components.BurstConfig{{Time: 0, Count: 2}}
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()
	runSteps(ps, 8, 0.25)

	if got := ps.ActiveCount(); got != 6 {
		t.Errorf("ActiveCount() = %d, want 6", got)
	}
	if ps.Elapsed() != 0 {
		t.Errorf("Elapsed() = %v, want 0 after wrap", ps.Elapsed())
	}
}

// TestParticleSystem_AutoStop tests that a finished one-shot system stops itself
func TestParticleSystem_AutoStop(t *testing.T) {
	asset := testAsset()
	asset.Duration = 0.5
	asset.Looping = ptr(false)
	asset.Lifetime = particle.FixedValue(0.2)
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()

	runSteps(ps, 3, 0.1)
	if ps.State() != Playing {
		t.Fatalf("state %v before duration, want playing", ps.State())
	}
	runSteps(ps, 20, 0.1)
	if ps.State() != Stopped {
		t.Errorf("state %v, want stopped", ps.State())
	}
	if ps.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d, want 0", ps.ActiveCount())
	}
}

// TestParticleSystem_LocalSpace tests that live particles follow the emitter
func TestParticleSystem_LocalSpace(t *testing.T) {
	tests := []struct {
		name  string
		local bool
		wantX float64
		wantY float64
	}{
		{"world space", false, 0, 0},
		{"local space", true, 10, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := testAsset()
			asset.EmissionRate = 0
			asset.Speed = particle.FixedValue(0)
			asset.LocalSpace = tt.local
			ps := NewParticleSystem(asset, WithSeed(1))
			ps.Play()
			ps.Update(0.1, components.At(0, 0))
			ps.Emit(1)
			ps.Update(0.1, components.At(10, 5))

			ps.ForEachParticle(func(p *components.Particle) {
				if p.X != tt.wantX || p.Y != tt.wantY {
					t.Errorf("position (%v,%v), want (%v,%v)", p.X, p.Y, tt.wantX, tt.wantY)
				}
			})
		})
	}
}

// TestParticleSystem_LocalSpaceMovingEmitter tests that particles spawned by a
// moving local-space emitter start at its current position
func TestParticleSystem_LocalSpaceMovingEmitter(t *testing.T) {
	asset := testAsset()
	asset.Speed = particle.FixedValue(0)
	asset.LocalSpace = true
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()
	for _, x := range []float64{10, 20, 30} {
		ps.Update(0.1, components.At(x, 0))
	}

	if got := ps.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount() = %d, want 3", got)
	}
	ps.ForEachParticle(func(p *components.Particle) {
		if p.X != 30 || p.Y != 0 {
			t.Errorf("position (%v,%v), want (30,0)", p.X, p.Y)
		}
	})
}

// TestParticleSystem_LocalSpaceReplay tests that a replay does not carry the
// previous emitter position into the first step
func TestParticleSystem_LocalSpaceReplay(t *testing.T) {
	asset := testAsset()
	asset.Speed = particle.FixedValue(0)
	asset.LocalSpace = true
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.Play()
	ps.Update(0.1, components.At(100, 0))

	ps.Stop(true)
	ps.Play()
	ps.Update(0.1, components.At(0, 0))

	if got := ps.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", got)
	}
	ps.ForEachParticle(func(p *components.Particle) {
		if p.X != 0 {
			t.Errorf("x = %v, want 0", p.X)
		}
	})
}

// TestParticleSystem_ModuleOrder tests pipeline ordering and the module API
func TestParticleSystem_ModuleOrder(t *testing.T) {
	asset := testAsset()
	asset.EmissionRate = 0
	ps := NewParticleSystem(asset, WithSeed(1))
	var calls []string
	ps.AddModule(newRecordModule("b", &calls))
	ps.AddModule(newRecordModule("c", &calls))
	ps.InsertModule(0, newRecordModule("a", &calls))
	disabled := newRecordModule("off", &calls)
	disabled.SetEnabled(false)
	ps.AddModule(disabled)

	ps.Play()
	ps.Emit(1)
	runSteps(ps, 1, 0.1)

	want := []string{"a", "b", "c"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}

	if ps.Module("b") == nil {
		t.Error("Module(b) = nil")
	}
	if !ps.RemoveModule("b") || ps.RemoveModule("b") {
		t.Error("RemoveModule(b) should succeed exactly once")
	}
	if len(ps.Modules()) != 3 {
		t.Errorf("len(Modules()) = %d, want 3", len(ps.Modules()))
	}
	if _, ok := FindModule[*modules.BoundaryCollision](ps); ok {
		t.Error("FindModule found a module that was never added")
	}
	if m, ok := FindModule[*recordModule](ps); !ok || m.Name() != "a" {
		t.Errorf("FindModule[*recordModule] = %v, %v", m, ok)
	}
}

// TestParticleSystem_HostModulesSurviveSetAsset tests asset module replacement
func TestParticleSystem_HostModulesSurviveSetAsset(t *testing.T) {
	asset := testAsset()
	block, err := particle.NewModuleBlock("noise", map[string]any{"velocity": 5})
	if err != nil {
		t.Fatalf("NewModuleBlock: %v", err)
	}
	asset.Modules = []particle.ModuleBlock{block}
	ps := NewParticleSystem(asset, WithSeed(1))
	var calls []string
	ps.AddModule(newRecordModule("host", &calls))
	if len(ps.Modules()) != 2 {
		t.Fatalf("len(Modules()) = %d, want 2", len(ps.Modules()))
	}

	next := testAsset()
	next.Name = "next"
	next.MaxParticles = 7
	ps.SetAsset(next)
	ps.EnsureBuilt()

	mods := ps.Modules()
	if len(mods) != 1 || mods[0].Name() != "host" {
		t.Errorf("modules after SetAsset = %d, want only host", len(mods))
	}
	if ps.Capacity() != 7 {
		t.Errorf("Capacity() = %d, want 7", ps.Capacity())
	}
}

// TestParticleSystem_ImplicitModules tests endAlpha and endScale shortcuts
func TestParticleSystem_ImplicitModules(t *testing.T) {
	asset := testAsset()
	asset.EndAlpha = ptr(0.0)
	asset.EndScale = ptr(3.0)
	ps := NewParticleSystem(asset, WithSeed(1))

	if _, ok := FindModule[*modules.ColorOverLifetime](ps); !ok {
		t.Error("endAlpha should add a color module")
	}
	size, ok := FindModule[*modules.SizeOverLifetime](ps)
	if !ok {
		t.Fatal("endScale should add a size module")
	}
	if mx, _ := size.Multipliers(1); mx != 3 {
		t.Errorf("size multiplier at t=1 = %v, want 3", mx)
	}
}

// TestParticleSystem_DeferredKills tests that collision kills are recycled in the same step
func TestParticleSystem_DeferredKills(t *testing.T) {
	asset := testAsset()
	asset.EmissionRate = 0
	asset.Speed = particle.FixedValue(100)
	ps := NewParticleSystem(asset, WithSeed(1))
	ps.AddModule(modules.NewBoundaryCircle(5, modules.BehaviorKill))
	ps.Play()
	ps.Emit(4)
	runSteps(ps, 1, 0.1)

	if got := ps.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d, want 0", got)
	}
	bc, _ := FindModule[*modules.BoundaryCollision](ps)
	if bc.Pending() != 0 {
		t.Errorf("Pending() = %d after step", bc.Pending())
	}
}

// TestParticleSystem_Reload tests asset swaps from a source
func TestParticleSystem_Reload(t *testing.T) {
	ps := NewParticleSystem(testAsset(), WithSeed(1))

	if err := ps.Reload(failingSource{}, "missing"); err == nil {
		t.Error("Reload from failing source should error")
	}
	if ps.Name() != "test" {
		t.Errorf("Name() = %q, want last good asset", ps.Name())
	}

	src := particle.NewFSSource(fstest.MapFS{
		"fx/glow.yaml": {Data: []byte("maxParticles: 12\nemissionRate: 4\n")},
	}, "fx")
	if err := ps.Reload(src, "glow"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	ps.EnsureBuilt()
	if ps.Name() != "glow" || ps.Capacity() != 12 || ps.EmissionRate() != 4 {
		t.Errorf("after reload: name %q cap %d rate %v", ps.Name(), ps.Capacity(), ps.EmissionRate())
	}
}

// TestParticleSystem_Deterministic tests that equal seeds give equal simulations
func TestParticleSystem_Deterministic(t *testing.T) {
	asset := testAsset()
	asset.Shape = "circle"
	asset.ShapeRadius = 30
	asset.Spread = 360

	positions := func() []float64 {
		ps := NewParticleSystem(asset, WithSeed(42))
		ps.Play()
		runSteps(ps, 5, 0.1)
		var out []float64
		ps.ForEachParticle(func(p *components.Particle) {
			out = append(out, p.X, p.Y)
		})
		return out
	}
	a, b := positions(), positions()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("value %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

// TestSortKey tests layer-major ordering
func TestSortKey(t *testing.T) {
	if !(SortKey(0, 100) < SortKey(1, -100)) {
		t.Error("layer should dominate order")
	}
	if !(SortKey(2, 0) < SortKey(2, 1)) {
		t.Error("order should break ties inside a layer")
	}
}
