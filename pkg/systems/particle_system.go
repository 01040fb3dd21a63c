package systems

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/modules"
	"github.com/decker502/particlefx/pkg/pool"
)

// State is the playback state of a ParticleSystem.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// burstState pairs a burst definition with its fire state.
type burstState struct {
	config   components.BurstConfig
	fired    int
	lastFire float64 // Scheduled time of the last firing
}

// moduleEntry tracks whether a module came from the asset or from the host.
// Asset modules are replaced on SetAsset; host modules survive.
type moduleEntry struct {
	module    modules.Module
	fromAsset bool
}

// ParticleSystem is one simulated effect: a pool, an emitter, an ordered
// module pipeline and the asset plus runtime overrides that configure them.
//
// The system processes each step in a fixed order:
//  1. Emitter.Emit and due bursts spawn particles
//  2. Every active particle ages, integrates gravity and velocity, follows
//     the emitter in local space and integrates rotation
//  3. Enabled modules run on every active particle in list order
//  4. Pending kills from collision modules are recycled
//  5. Expired particles are recycled
//
// A ParticleSystem is not safe for concurrent use.
type ParticleSystem struct {
	asset     *particle.EffectAsset // Base record, never mutated after SetAsset
	overrides Overrides

	pool    *pool.Pool
	emitter *Emitter
	entries []moduleEntry
	bursts  []burstState
	rng     *rand.Rand
	query   modules.GeometryQuery

	state   State
	elapsed float64
	step    uint64

	// LocalSpace moves live particles with the emitter transform.
	LocalSpace bool
	lastXf     components.Transform
	hasLastXf  bool

	needsRebuild bool
	assetDirty   bool

	layer, order int
	recycle      func(*components.Particle)
}

// Option configures a ParticleSystem at construction.
type Option func(*ParticleSystem)

// WithSeed makes the system deterministic.
func WithSeed(seed int64) Option {
	return func(ps *ParticleSystem) {
		ps.rng = rand.New(rand.NewSource(seed))
	}
}

// WithGeometryQuery injects the collaborator used by geometry collision modules.
func WithGeometryQuery(q modules.GeometryQuery) Option {
	return func(ps *ParticleSystem) {
		ps.query = q
	}
}

// NewParticleSystem creates a stopped system built from asset. A nil asset
// falls back to particle.Default().
func NewParticleSystem(asset *particle.EffectAsset, opts ...Option) *ParticleSystem {
	ps := &ParticleSystem{lastXf: components.IdentityTransform()}
	ps.setAsset(asset)
	for _, opt := range opts {
		opt(ps)
	}
	if ps.rng == nil {
		seed := ps.asset.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		ps.rng = rand.New(rand.NewSource(seed))
	}
	ps.EnsureBuilt()
	return ps
}

// Name returns the asset name.
func (ps *ParticleSystem) Name() string {
	return ps.asset.Name
}

// Asset returns a copy of the base asset record.
func (ps *ParticleSystem) Asset() *particle.EffectAsset {
	return ps.asset.Clone()
}

// SetAsset replaces the base record. Asset-derived modules, bursts and the
// pool capacity are rebuilt on the next EnsureBuilt; host modules are kept.
func (ps *ParticleSystem) SetAsset(asset *particle.EffectAsset) {
	ps.setAsset(asset)
	log.Printf("[ParticleSystem] asset %q set (max=%d, modules=%d)", ps.asset.Name, ps.asset.MaxParticles, len(ps.asset.Modules))
}

func (ps *ParticleSystem) setAsset(asset *particle.EffectAsset) {
	if asset == nil {
		asset = particle.Default()
	} else {
		asset = asset.Clone()
		asset.ApplyDefaults()
	}
	ps.asset = asset
	ps.LocalSpace = asset.LocalSpace
	ps.layer, ps.order = asset.SortLayer, asset.OrderInLayer
	ps.assetDirty = true
	ps.needsRebuild = true
}

// Reload fetches id from src and applies it. On failure the system keeps
// its last good asset and the error is returned.
func (ps *ParticleSystem) Reload(src particle.Source, id string) error {
	asset, err := src.Load(id)
	if err != nil {
		log.Printf("[ParticleSystem] reload %q failed, keeping %q: %v", id, ps.asset.Name, err)
		return fmt.Errorf("reload %s: %w", id, err)
	}
	ps.SetAsset(asset)
	return nil
}

// SetGeometryQuery swaps the geometry collaborator, including on modules
// already built.
func (ps *ParticleSystem) SetGeometryQuery(q modules.GeometryQuery) {
	ps.query = q
	for _, e := range ps.entries {
		if gc, ok := e.module.(*modules.GeometryCollision); ok {
			gc.Query = q
		}
	}
}

// Reseed replaces the random source.
func (ps *ParticleSystem) Reseed(seed int64) {
	ps.rng.Seed(seed)
}

// EnsureBuilt applies pending configuration changes. It runs implicitly in
// Play, Emit and Update and may be called while paused to preview edits.
func (ps *ParticleSystem) EnsureBuilt() {
	if !ps.needsRebuild {
		return
	}
	ps.needsRebuild = false

	capacity := ps.asset.MaxParticles
	if ps.pool == nil {
		ps.pool = pool.New(capacity)
		ps.recycle = ps.pool.Recycle
	} else if ps.pool.Capacity() != capacity {
		ps.pool.Resize(capacity)
	}

	cfg := ps.emitterConfig()
	if ps.emitter == nil {
		ps.emitter = NewEmitter(cfg, ps.rng)
	} else {
		ps.emitter.SetConfig(cfg)
	}

	if ps.assetDirty {
		ps.assetDirty = false
		ps.rebuildModules()
		ps.bursts = ps.bursts[:0]
		for _, b := range ps.asset.Bursts {
			ps.bursts = append(ps.bursts, burstState{config: b})
		}
	}
}

// emitterConfig layers the overrides over the asset configuration.
func (ps *ParticleSystem) emitterConfig() components.EmitterConfig {
	cfg := ps.asset.EmitterConfig()
	cfg.EmissionRate = ps.EmissionRate()
	cfg.GravityX = ps.GravityX()
	cfg.GravityY = ps.GravityY()
	cfg.StartColor = ps.StartColor()
	if k := ps.ScaleMultiplier(); k != 1 {
		cfg.StartScale = cfg.StartScale.Scaled(k)
	}
	if k := ps.SpeedMultiplier(); k != 1 {
		cfg.Speed = cfg.Speed.Scaled(k)
	}
	return cfg
}

func (ps *ParticleSystem) rebuildModules() {
	built := BuildModules(ps.asset, ModuleEnv{
		Query:  ps.query,
		Frames: ps.asset.SheetColumns * ps.asset.SheetRows,
	})
	next := make([]moduleEntry, 0, len(built)+len(ps.entries))
	for _, m := range built {
		next = append(next, moduleEntry{module: m, fromAsset: true})
	}
	for _, e := range ps.entries {
		if !e.fromAsset {
			next = append(next, e)
		}
	}
	ps.entries = next
}

// Play starts or resumes playback. Starting from Stopped resets the
// timeline, the emitter and the burst schedules; resuming from Paused keeps them.
func (ps *ParticleSystem) Play() {
	ps.EnsureBuilt()
	if ps.state == Stopped {
		ps.elapsed = 0
		ps.step = 0
		ps.emitter.Reset()
		ps.resetBursts()
		ps.hasLastXf = false
	}
	ps.state = Playing
}

// Pause freezes the simulation without discarding particles.
func (ps *ParticleSystem) Pause() {
	if ps.state == Playing {
		ps.state = Paused
	}
}

// Stop halts emission and resets the timeline. With clear set every live
// particle is recycled.
func (ps *ParticleSystem) Stop(clear bool) {
	ps.state = Stopped
	ps.elapsed = 0
	ps.emitter.Reset()
	ps.hasLastXf = false
	if clear {
		ps.Clear()
	}
}

// Clear recycles every particle without changing the playback state.
func (ps *ParticleSystem) Clear() {
	ps.pool.RecycleAll()
	for _, e := range ps.entries {
		if k, ok := e.module.(modules.Killer); ok {
			k.DrainKills(func(*components.Particle) {})
		}
	}
}

// Emit spawns count particles at the last known transform, in any state.
func (ps *ParticleSystem) Emit(count int) int {
	ps.EnsureBuilt()
	return ps.emitter.Burst(ps.pool, count, ps.lastXf)
}

func (ps *ParticleSystem) resetBursts() {
	for i := range ps.bursts {
		ps.bursts[i].fired = 0
		ps.bursts[i].lastFire = 0
	}
}

// Update advances the system by dt seconds with the emitter at xf.
// It does nothing unless the system is playing.
func (ps *ParticleSystem) Update(dt float64, xf components.Transform) {
	if ps.state != Playing {
		return
	}
	ps.EnsureBuilt()

	dt *= ps.PlaybackSpeed()
	if dt <= 0 {
		return
	}
	ps.elapsed += dt
	ps.step++

	duration := ps.asset.Duration
	looping := ps.Looping()
	if looping && duration > 0 {
		for ps.elapsed >= duration {
			ps.elapsed -= duration
			ps.resetBursts()
			ps.emitter.Reset()
		}
	}

	// Local-space particles follow the emitter before this step's spawns
	// are placed, so new particles start exactly at xf.
	if ps.LocalSpace && ps.hasLastXf {
		dx, dy := xf.X-ps.lastXf.X, xf.Y-ps.lastXf.Y
		if dx != 0 || dy != 0 {
			ps.pool.ForEachActive(func(p *components.Particle) {
				p.X += dx
				p.Y += dy
				p.OriginX += dx
				p.OriginY += dy
			})
		}
	}
	ps.lastXf, ps.hasLastXf = xf, true

	if duration <= 0 || ps.elapsed < duration {
		ps.emitter.Emit(ps.pool, dt, xf)
		ps.processBursts(xf)
	}

	ctx := modules.StepContext{Dt: dt, Elapsed: ps.elapsed, OriginX: xf.X, OriginY: xf.Y, Step: ps.step}
	for _, e := range ps.entries {
		if !e.module.Enabled() {
			continue
		}
		if s, ok := e.module.(modules.Stepper); ok {
			s.BeginStep(ctx)
		}
	}

	gx, gy := ps.GravityX(), ps.GravityY()
	ps.pool.ForEachActive(func(p *components.Particle) {
		p.Age += dt
		p.VX += (gx + p.AX) * dt
		p.VY += (gy + p.AY) * dt
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.Rotation += p.AngularVelocity * dt

		t := p.NormalizedAge()
		for _, e := range ps.entries {
			if e.module.Enabled() {
				e.module.Update(p, dt, t)
			}
		}
	})

	for _, e := range ps.entries {
		if k, ok := e.module.(modules.Killer); ok {
			k.DrainKills(ps.recycle)
		}
	}

	ps.pool.ForEachActive(func(p *components.Particle) {
		if p.Expired() {
			ps.pool.Recycle(p)
		}
	})

	if !looping && duration > 0 && ps.elapsed >= duration && ps.pool.ActiveCount() == 0 {
		ps.state = Stopped
		ps.elapsed = 0
		log.Printf("[ParticleSystem] %q finished", ps.asset.Name)
	}
}

// processBursts fires every burst whose schedule is due, at most once per
// definition per step.
func (ps *ParticleSystem) processBursts(xf components.Transform) {
	for i := range ps.bursts {
		b := &ps.bursts[i]
		cfg := b.config
		if cfg.Count <= 0 || (cfg.Cycles > 0 && b.fired >= cfg.Cycles) {
			continue
		}
		var due float64
		if b.fired == 0 {
			due = cfg.Time
		} else {
			if cfg.Interval <= 0 {
				continue
			}
			due = b.lastFire + cfg.Interval
		}
		if ps.elapsed < due {
			continue
		}
		ps.emitter.Burst(ps.pool, cfg.Count, xf)
		b.fired++
		b.lastFire = due
	}
}

// State returns the playback state.
func (ps *ParticleSystem) State() State { return ps.state }

// Elapsed returns the timeline position in seconds.
func (ps *ParticleSystem) Elapsed() float64 { return ps.elapsed }

// ActiveCount returns the number of live particles.
func (ps *ParticleSystem) ActiveCount() int { return ps.pool.ActiveCount() }

// Capacity returns the pool capacity.
func (ps *ParticleSystem) Capacity() int { return ps.pool.Capacity() }

// ForEachParticle calls fn for every live particle in pool order.
// fn must not retain p.
func (ps *ParticleSystem) ForEachParticle(fn func(p *components.Particle)) {
	ps.pool.ForEachActive(fn)
}

// Emitter exposes the emitter for inspection.
func (ps *ParticleSystem) Emitter() *Emitter { return ps.emitter }

// Render metadata

// SortLayer returns the coarse draw layer.
func (ps *ParticleSystem) SortLayer() int { return ps.layer }

// OrderInLayer returns the draw order inside the layer.
func (ps *ParticleSystem) OrderInLayer() int { return ps.order }

// SetSortOrder overrides the asset's layer and order.
func (ps *ParticleSystem) SetSortOrder(layer, order int) {
	ps.layer, ps.order = layer, order
}

// SortKey combines layer and order into one ascending key.
func (ps *ParticleSystem) SortKey() int64 {
	return SortKey(ps.layer, ps.order)
}

// SortKey combines a layer and an in-layer order.
func SortKey(layer, order int) int64 {
	return int64(layer)<<32 + int64(order)
}

// Texture returns the asset's texture id.
func (ps *ParticleSystem) Texture() string { return ps.asset.Texture }

// Blend returns the asset's blend mode.
func (ps *ParticleSystem) Blend() particle.BlendMode { return ps.asset.Blend() }

// ParticleSize returns the render size multiplier.
func (ps *ParticleSystem) ParticleSize() float64 { return ps.asset.ParticleSize }

// Sheet returns the sprite-sheet grid.
func (ps *ParticleSystem) Sheet() (columns, rows int) {
	return ps.asset.SheetColumns, ps.asset.SheetRows
}

// Module pipeline

// AddModule appends a host module to the pipeline.
func (ps *ParticleSystem) AddModule(m modules.Module) {
	ps.entries = append(ps.entries, moduleEntry{module: m})
}

// InsertModule inserts a host module at index i, clamped to the list bounds.
func (ps *ParticleSystem) InsertModule(i int, m modules.Module) {
	i = max(0, min(i, len(ps.entries)))
	ps.entries = append(ps.entries, moduleEntry{})
	copy(ps.entries[i+1:], ps.entries[i:])
	ps.entries[i] = moduleEntry{module: m}
}

// RemoveModule removes the first module with the given name.
func (ps *ParticleSystem) RemoveModule(name string) bool {
	for i, e := range ps.entries {
		if e.module.Name() == name {
			ps.entries = append(ps.entries[:i], ps.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Module returns the first module with the given name, or nil.
func (ps *ParticleSystem) Module(name string) modules.Module {
	for _, e := range ps.entries {
		if e.module.Name() == name {
			return e.module
		}
	}
	return nil
}

// Modules returns the pipeline in execution order.
func (ps *ParticleSystem) Modules() []modules.Module {
	out := make([]modules.Module, len(ps.entries))
	for i, e := range ps.entries {
		out[i] = e.module
	}
	return out
}

// FindModule returns the first module of type T.
func FindModule[T modules.Module](ps *ParticleSystem) (T, bool) {
	for _, e := range ps.entries {
		if m, ok := e.module.(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

// Runtime overrides

// SetOverride sets one override by key.
func (ps *ParticleSystem) SetOverride(key string, value any) error {
	if err := ps.overrides.Set(key, value); err != nil {
		return err
	}
	ps.needsRebuild = true
	return nil
}

// SetOverrides merges every set field of o.
func (ps *ParticleSystem) SetOverrides(o Overrides) {
	ps.overrides.Merge(o)
	ps.needsRebuild = true
}

// ClearOverride removes one override by key.
func (ps *ParticleSystem) ClearOverride(key string) error {
	if err := ps.overrides.Clear(key); err != nil {
		return err
	}
	ps.needsRebuild = true
	return nil
}

// ClearOverrides restores every asset value.
func (ps *ParticleSystem) ClearOverrides() {
	ps.overrides = Overrides{}
	ps.needsRebuild = true
}

// Overrides returns a copy of the current overrides.
func (ps *ParticleSystem) Overrides() Overrides {
	return ps.overrides.Clone()
}

// EmissionRate returns the effective emission rate.
func (ps *ParticleSystem) EmissionRate() float64 {
	if ps.overrides.EmissionRate != nil {
		return *ps.overrides.EmissionRate
	}
	return ps.asset.EmissionRate
}

// PlaybackSpeed returns the effective time scale.
func (ps *ParticleSystem) PlaybackSpeed() float64 {
	if ps.overrides.PlaybackSpeed != nil {
		return *ps.overrides.PlaybackSpeed
	}
	return ps.asset.PlaybackSpeed
}

// Looping returns the effective loop flag.
func (ps *ParticleSystem) Looping() bool {
	if ps.overrides.Looping != nil {
		return *ps.overrides.Looping
	}
	return ps.asset.IsLooping()
}

// GravityX returns the effective horizontal gravity.
func (ps *ParticleSystem) GravityX() float64 {
	if ps.overrides.GravityX != nil {
		return *ps.overrides.GravityX
	}
	return ps.asset.GravityX
}

// GravityY returns the effective vertical gravity.
func (ps *ParticleSystem) GravityY() float64 {
	if ps.overrides.GravityY != nil {
		return *ps.overrides.GravityY
	}
	return ps.asset.GravityY
}

// StartColor returns the effective start color.
func (ps *ParticleSystem) StartColor() components.Color {
	if ps.overrides.StartColor != nil {
		return *ps.overrides.StartColor
	}
	return ps.asset.Color()
}

// ScaleMultiplier returns the uniform start-scale multiplier.
func (ps *ParticleSystem) ScaleMultiplier() float64 {
	if ps.overrides.ScaleMultiplier != nil {
		return *ps.overrides.ScaleMultiplier
	}
	return 1
}

// SpeedMultiplier returns the start-speed multiplier.
func (ps *ParticleSystem) SpeedMultiplier() float64 {
	if ps.overrides.SpeedMultiplier != nil {
		return *ps.overrides.SpeedMultiplier
	}
	return 1
}
