package modules

import (
	"math"
	"testing"

	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/curve"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newParticle() *components.Particle {
	return &components.Particle{
		Alive:       true,
		ScaleX:      2,
		ScaleY:      3,
		StartScaleX: 2,
		StartScaleY: 3,
		R:           0.8, G: 0.6, B: 0.4, A: 1,
		StartR: 0.8, StartG: 0.6, StartB: 0.4, StartA: 1,
		Lifetime: 2,
	}
}

// TestColorOverLifetime_Endpoints tests exact start and end colors
func TestColorOverLifetime_Endpoints(t *testing.T) {
	m := NewColorOverLifetime(
		ColorKey{Time: 1, R: 0.5, G: 0.25, B: 0, A: 0},
		ColorKey{Time: 0, R: 1, G: 1, B: 1, A: 1},
	)
	p := newParticle()

	m.Update(p, 0, 0)
	if p.R != p.StartR || p.G != p.StartG || p.B != p.StartB || p.A != p.StartA {
		t.Errorf("t=0: got (%v,%v,%v,%v), want start color", p.R, p.G, p.B, p.A)
	}

	m.Update(p, 0, 1)
	if p.R != p.StartR*0.5 || p.G != p.StartG*0.25 || p.B != 0 || p.A != 0 {
		t.Errorf("t=1: got (%v,%v,%v,%v), want end color", p.R, p.G, p.B, p.A)
	}

	m.Update(p, 0, 0.5)
	if !approx(p.R, p.StartR*0.75) {
		t.Errorf("t=0.5: R = %v, want %v", p.R, p.StartR*0.75)
	}
}

// TestColorOverLifetime_NoKeys tests that an empty gradient leaves the color alone
func TestColorOverLifetime_NoKeys(t *testing.T) {
	m := NewColorOverLifetime()
	p := newParticle()
	p.R = 0.1
	m.Update(p, 0.1, 0.5)
	if p.R != 0.1 {
		t.Errorf("R = %v, want unchanged 0.1", p.R)
	}
}

// TestSizeOverLifetime_Modes tests start and end multipliers for every mode
func TestSizeOverLifetime_Modes(t *testing.T) {
	tests := []struct {
		name string
		mode SizeMode
	}{
		{"linear", SizeLinear},
		{"ease in", SizeEaseIn},
		{"ease out", SizeEaseOut},
		{"ease in out", SizeEaseInOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSizeOverLifetime(tt.mode, 1, 0.5)
			p := newParticle()

			m.Update(p, 0, 0)
			if p.ScaleX != 2 || p.ScaleY != 3 {
				t.Errorf("t=0: scale = (%v,%v), want (2,3)", p.ScaleX, p.ScaleY)
			}
			// Repeated updates must not accumulate.
			m.Update(p, 0, 1)
			m.Update(p, 0, 1)
			if p.ScaleX != 1 || p.ScaleY != 1.5 {
				t.Errorf("t=1: scale = (%v,%v), want (1,1.5)", p.ScaleX, p.ScaleY)
			}
		})
	}
}

// TestSizeOverLifetime_EaseShape tests the documented ease-in and ease-out formulas
func TestSizeOverLifetime_EaseShape(t *testing.T) {
	in := NewSizeOverLifetime(SizeEaseIn, 0, 1)
	if mx, _ := in.Multipliers(0.5); !approx(mx, 0.25) {
		t.Errorf("ease in at 0.5 = %v, want 0.25", mx)
	}
	out := NewSizeOverLifetime(SizeEaseOut, 0, 1)
	if mx, _ := out.Multipliers(0.5); !approx(mx, 0.75) {
		t.Errorf("ease out at 0.5 = %v, want 0.75", mx)
	}
}

// TestSizeOverLifetime_CustomKeysSeparateAxes tests keyframes per axis
func TestSizeOverLifetime_CustomKeysSeparateAxes(t *testing.T) {
	m := NewSizeKeys(curve.Keyframe{Time: 0, Value: 0}, curve.Keyframe{Time: 1, Value: 2})
	m.SeparateAxes = true
	m.KeysY = []curve.Keyframe{{Time: 0, Value: 1}, {Time: 1, Value: 1}}

	mx, my := m.Multipliers(0.5)
	if !approx(mx, 1) || !approx(my, 1) {
		t.Errorf("Multipliers(0.5) = (%v,%v), want (1,1)", mx, my)
	}

	empty := NewSizeKeys()
	if mx, _ := empty.Multipliers(0.3); mx != 1 {
		t.Errorf("empty keys multiplier = %v, want base 1", mx)
	}
}

// TestVelocityOverLifetime_Endpoints tests baseline snapshot and exact curve endpoints
func TestVelocityOverLifetime_Endpoints(t *testing.T) {
	m := NewVelocityOverLifetime(1, 0.25)
	p := newParticle()
	p.VX, p.VY = 10, -20

	m.Update(p, 0.1, 0)
	if p.VX != 10 || p.VY != -20 {
		t.Errorf("t=0: velocity = (%v,%v), want (10,-20)", p.VX, p.VY)
	}
	if p.Flags&components.FlagVelocityBase == 0 {
		t.Error("baseline flag not set after first update")
	}

	m.Update(p, 0.1, 1)
	if p.VX != 2.5 || p.VY != -5 {
		t.Errorf("t=1: velocity = (%v,%v), want (2.5,-5)", p.VX, p.VY)
	}
}

// TestVelocityOverLifetime_DragCompounds tests that drag updates the baseline
func TestVelocityOverLifetime_DragCompounds(t *testing.T) {
	m := NewVelocityOverLifetime(1, 1)
	m.Drag = 0.5
	p := newParticle()
	p.VX = 8

	m.Update(p, 1, 0)
	if !approx(p.VX, 4) {
		t.Fatalf("after 1s VX = %v, want 4", p.VX)
	}
	m.Update(p, 1, 0)
	if !approx(p.VX, 2) {
		t.Errorf("after 2s VX = %v, want 2", p.VX)
	}
}

// TestVelocityOverLifetime_OrbitalRadial tests displacement around the spawn origin
func TestVelocityOverLifetime_OrbitalRadial(t *testing.T) {
	m := NewVelocityOverLifetime(1, 1)
	m.Orbital = 90
	p := newParticle()
	p.X = 10

	m.Update(p, 1, 0)
	if !approx(p.X, 0) || !approx(p.Y, 10) {
		t.Errorf("orbital: position = (%v,%v), want (0,10)", p.X, p.Y)
	}

	r := NewVelocityOverLifetime(1, 1)
	r.Radial = -50
	q := newParticle()
	q.X = 10
	r.Update(q, 1, 0)
	if !approx(q.X, 0) {
		t.Errorf("radial inward should stop at origin, X = %v", q.X)
	}
}

// TestRotationOverLifetime tests multiplier endpoints plus additional rate
func TestRotationOverLifetime(t *testing.T) {
	m := NewRotationOverLifetime(1, 0, 10)
	p := newParticle()
	p.AngularVelocity = 90

	m.Update(p, 0, 0)
	if p.AngularVelocity != 100 {
		t.Errorf("t=0: angular velocity = %v, want 100", p.AngularVelocity)
	}
	m.Update(p, 0, 1)
	if p.AngularVelocity != 10 {
		t.Errorf("t=1: angular velocity = %v, want 10", p.AngularVelocity)
	}
}

// TestHash tests the lattice hash reference values
func TestHash(t *testing.T) {
	if got, want := Hash(0, 0), 1376312589.0/0x7fffffff; got != want {
		t.Errorf("Hash(0,0) = %v, want %v", got, want)
	}
	for x := int32(-20); x <= 20; x += 7 {
		for y := int32(-20); y <= 20; y += 5 {
			h := Hash(x, y)
			if h < 0 || h > 1 {
				t.Fatalf("Hash(%d,%d) = %v out of range", x, y, h)
			}
			if h != Hash(x, y) {
				t.Fatalf("Hash(%d,%d) not deterministic", x, y)
			}
		}
	}
	if ValueNoise2D(3, -2) != Hash(3, -2) {
		t.Error("value noise on a lattice point should equal the hash")
	}
}

// TestNoise_PerturbsVelocity tests that the noise module changes velocity within bounds
func TestNoise_PerturbsVelocity(t *testing.T) {
	m := NewNoise(0.05, 100)
	m.BeginStep(StepContext{Elapsed: 0.5})
	p := newParticle()
	p.X, p.Y = 13.7, 42.1

	m.Update(p, 0.1, 0.5)
	if math.Abs(p.VX) > 10 || math.Abs(p.VY) > 10 {
		t.Errorf("velocity delta (%v,%v) exceeds strength*dt", p.VX, p.VY)
	}

	q := newParticle()
	q.X, q.Y = 13.7, 42.1
	m.Update(q, 0.1, 0.5)
	if p.VX != q.VX || p.VY != q.VY {
		t.Error("noise should be deterministic for the same position and time")
	}
}

// TestTextureSheet_LoopModes tests the loop post-process
func TestTextureSheet_LoopModes(t *testing.T) {
	tests := []struct {
		name      string
		loop      LoopMode
		maxCycles int
		raw       []int
		want      []int
	}{
		{"once", LoopOnce, 0, []int{0, 1, 3, 4, 10}, []int{0, 1, 3, 3, 3}},
		{"repeat", LoopRepeat, 0, []int{0, 3, 4, 5, 9}, []int{0, 3, 0, 1, 1}},
		{"ping pong", LoopPingPong, 0, []int{0, 1, 2, 3, 4, 5, 6, 7}, []int{0, 1, 2, 3, 2, 1, 0, 1}},
		{"repeat capped", LoopRepeat, 1, []int{2, 4, 9}, []int{2, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTextureSheet(4)
			m.Loop = tt.loop
			m.MaxCycles = tt.maxCycles
			for i, raw := range tt.raw {
				if got := m.Frame(raw); got != tt.want[i] {
					t.Errorf("Frame(%d) = %d, want %d", raw, got, tt.want[i])
				}
			}
		})
	}
}

// TestTextureSheet_FrameModes tests the raw frame derivation
func TestTextureSheet_FrameModes(t *testing.T) {
	m := NewTextureSheet(4)
	p := newParticle()

	for _, tc := range []struct {
		t    float64
		want int
	}{{0, 0}, {0.5, 2}, {1, 3}} {
		m.Update(p, 0, tc.t)
		if p.Frame != tc.want {
			t.Errorf("lifetime mode t=%v: frame %d, want %d", tc.t, p.Frame, tc.want)
		}
	}

	m.Mode = FrameByFPS
	m.FPS = 10
	m.Loop = LoopRepeat
	p.Age = 0.55
	m.Update(p, 0, 0)
	if p.Frame != 1 {
		t.Errorf("fps mode: frame %d, want 1", p.Frame)
	}

	m.Mode = FrameBySpeed
	m.MaxSpeed = 100
	p.VX = 500
	m.Update(p, 0, 0)
	if p.Frame != 3 {
		t.Errorf("speed mode above max: frame %d, want 3", p.Frame)
	}

	m.Mode = FrameRandom
	m.Update(p, 0, 0.1)
	first := p.Frame
	for i := 0; i < 5; i++ {
		m.Update(p, 0, float64(i)/5)
		if p.Frame != first {
			t.Fatalf("random mode frame changed from %d to %d", first, p.Frame)
		}
	}
}

// TestBoundaryCollision_WrapAtEdge tests teleport at exactly the edge
func TestBoundaryCollision_WrapAtEdge(t *testing.T) {
	m := NewBoundaryRect(100, 100, BehaviorWrap)
	m.BeginStep(StepContext{OriginX: 0, OriginY: 0})

	p := newParticle()
	p.X, p.VX, p.VY = 50, 3, 4
	m.Update(p, 0.1, 0)
	if p.X != -50 {
		t.Errorf("right edge: X = %v, want -50", p.X)
	}
	if p.VX != 3 || p.VY != 4 {
		t.Errorf("wrap changed velocity to (%v,%v)", p.VX, p.VY)
	}

	q := newParticle()
	q.X = -50
	m.Update(q, 0.1, 0)
	if q.X != 50 {
		t.Errorf("left edge: X = %v, want 50", q.X)
	}
}

// TestBoundaryCollision_CircleWrap tests that a wrapped particle stays on the far side
func TestBoundaryCollision_CircleWrap(t *testing.T) {
	tests := []struct {
		name   string
		vx, vy float64
		wantX  float64
	}{
		{"outward", 5, 0, -50},
		{"stationary", 0, 0, -50},
		{"tangential", 0, 5, -50},
		{"inward", -5, 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewBoundaryCircle(50, BehaviorWrap)
			p := newParticle()
			p.X, p.VX, p.VY = 50, tt.vx, tt.vy
			m.Update(p, 0.1, 0)
			if math.Abs(p.X-tt.wantX) > 1e-3 {
				t.Fatalf("first step: X = %v, want %v", p.X, tt.wantX)
			}
			x := p.X
			m.Update(p, 0.1, 0)
			if p.X != x {
				t.Errorf("second step moved X from %v to %v", x, p.X)
			}
			if m.Pending() != 0 {
				t.Error("wrap should not kill")
			}
		})
	}
}

// TestBoundaryCollision_Bounce tests reflection scaled by the bounce factor
func TestBoundaryCollision_Bounce(t *testing.T) {
	tests := []struct {
		name   string
		module *BoundaryCollision
		x, y   float64
		vx, vy float64
		wantVX float64
		wantVY float64
	}{
		{"rect right", NewBoundaryRect(100, 100, BehaviorBounce), 60, 0, 10, 0, -5, 0},
		{"rect bottom", NewBoundaryRect(100, 100, BehaviorBounce), 0, 55, 0, 8, 0, -4},
		{"circle", NewBoundaryCircle(50, BehaviorBounce), 60, 0, 10, 0, -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.module.BounceFactor = 0.5
			p := newParticle()
			p.X, p.Y, p.VX, p.VY = tt.x, tt.y, tt.vx, tt.vy
			tt.module.Update(p, 0.1, 0)
			if !approx(p.VX, tt.wantVX) || !approx(p.VY, tt.wantVY) {
				t.Errorf("velocity = (%v,%v), want (%v,%v)", p.VX, p.VY, tt.wantVX, tt.wantVY)
			}
			if tt.module.Pending() != 0 {
				t.Error("bounce above min speed should not kill")
			}
		})
	}
}

// TestBoundaryCollision_KillIsDeferred tests the pending kill set
func TestBoundaryCollision_KillIsDeferred(t *testing.T) {
	m := NewBoundaryCircle(10, BehaviorKill)
	p := newParticle()
	p.X = 20

	m.Update(p, 0.1, 0)
	m.Update(p, 0.1, 0)
	if !p.Alive {
		t.Fatal("module must not kill during the pass")
	}
	if m.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", m.Pending())
	}

	calls := 0
	m.DrainKills(func(*components.Particle) { calls++ })
	if calls != 1 || m.Pending() != 0 {
		t.Errorf("drain calls = %d, pending = %d; want 1, 0", calls, m.Pending())
	}
}

// TestBoundaryCollision_MinSpeedAndLifetimeLoss tests the bounce penalties
func TestBoundaryCollision_MinSpeedAndLifetimeLoss(t *testing.T) {
	m := NewBoundaryRect(100, 100, BehaviorBounce)
	m.BounceFactor = 0.1
	m.MinKillSpeed = 5
	m.LifetimeLoss = 0.25

	p := newParticle()
	p.X, p.VX = 60, 20
	m.Update(p, 0.1, 0)
	if p.Age != 0.5 {
		t.Errorf("Age = %v, want 0.5 after losing a quarter of 2s", p.Age)
	}
	if m.Pending() != 1 {
		t.Error("slow bounce should be scheduled for removal")
	}
}

type fakeQuery struct {
	overlaps int
	hit      bool
	ray      RaycastHit
}

func (f *fakeQuery) OverlapCircle(_, _, _ float64, _ uint32) OverlapResult {
	f.overlaps++
	if !f.hit {
		return OverlapResult{}
	}
	return OverlapResult{EntityIDs: []uint64{7}, Colliders: []ColliderHandle{3}}
}

func (f *fakeQuery) Raycast(_, _, _, _, _ float64, _ uint32) (RaycastHit, bool) {
	return f.ray, f.hit
}

// TestGeometryCollision_Behaviors tests overlap and raycast responses
func TestGeometryCollision_Behaviors(t *testing.T) {
	q := &fakeQuery{hit: true, ray: RaycastHit{X: 0, Y: 100, NormalX: 0, NormalY: -1, EntityID: 9, Collider: 4}}

	bounce := NewGeometryCollision(q, 2)
	bounce.Behavior = BehaviorBounce
	bounce.BounceFactor = 0.5
	bounce.BeginStep(StepContext{Dt: 1, Step: 1})
	p := newParticle()
	p.VX, p.VY = 3, -4
	bounce.Update(p, 1, 0)
	if !approx(p.VX, -1.5) || !approx(p.VY, 2) {
		t.Errorf("overlap bounce velocity = (%v,%v), want (-1.5,2)", p.VX, p.VY)
	}

	ray := NewGeometryCollision(q, 0)
	ray.Mode = CollisionRaycast
	ray.Behavior = BehaviorBounce
	ray.BounceFactor = 0.5
	var events []CollisionEvent
	ray.OnCollide = func(ev CollisionEvent) { events = append(events, ev) }
	ray.BeginStep(StepContext{Dt: 1, Step: 1})
	r := newParticle()
	r.Y, r.VY = 95, 10
	ray.Update(r, 1, 0)
	if !approx(r.VX, 0) || !approx(r.VY, -5) {
		t.Errorf("raycast bounce velocity = (%v,%v), want (0,-5)", r.VX, r.VY)
	}
	if len(events) != 1 || events[0].EntityID != 9 || events[0].Collider != 4 {
		t.Errorf("callback events = %+v", events)
	}

	stop := NewGeometryCollision(q, 1)
	stop.Behavior = BehaviorStop
	stop.BeginStep(StepContext{Dt: 1, Step: 1})
	s := newParticle()
	s.VX = 5
	stop.Update(s, 1, 0)
	if s.VX != 0 || s.VY != 0 {
		t.Errorf("stop velocity = (%v,%v), want zero", s.VX, s.VY)
	}

	kill := NewGeometryCollision(q, 1)
	kill.BeginStep(StepContext{Dt: 1, Step: 1})
	k := newParticle()
	kill.Update(k, 1, 0)
	n := 0
	kill.DrainKills(func(*components.Particle) { n++ })
	if n != 1 {
		t.Errorf("kill drained %d particles, want 1", n)
	}
}

// TestGeometryCollision_IntervalAndNilQuery tests step gating and missing collaborator
func TestGeometryCollision_IntervalAndNilQuery(t *testing.T) {
	q := &fakeQuery{}
	m := NewGeometryCollision(q, 1)
	m.Interval = 3
	p := newParticle()
	for step := uint64(1); step <= 6; step++ {
		m.BeginStep(StepContext{Dt: 0.1, Step: step})
		m.Update(p, 0.1, 0)
	}
	if q.overlaps != 2 {
		t.Errorf("queries = %d, want 2 over six steps at interval 3", q.overlaps)
	}

	none := NewGeometryCollision(nil, 1)
	none.BeginStep(StepContext{Dt: 0.1, Step: 1})
	none.Update(p, 0.1, 0)
}

// TestForceField_Fields tests each field kind and that fields are summed
func TestForceField_Fields(t *testing.T) {
	wind := NewForceField(Field{Kind: FieldWind, Strength: 10})
	p := newParticle()
	wind.Update(p, 0.5, 0)
	if !approx(p.VX, 5) || !approx(p.VY, 0) {
		t.Errorf("wind velocity = (%v,%v), want (5,0)", p.VX, p.VY)
	}

	attract := NewForceField(Field{Kind: FieldPoint, Strength: 100})
	q := newParticle()
	q.X = 10
	attract.Update(q, 0.1, 0)
	if !approx(q.VX, -10) {
		t.Errorf("attractor VX = %v, want -10", q.VX)
	}

	linear := NewForceField(Field{Kind: FieldPoint, Strength: 100, Radius: 20, Falloff: FalloffLinear})
	if ax, _ := linear.Acceleration(&linear.Fields[0], 10, 0); !approx(ax, -50) {
		t.Errorf("linear falloff ax = %v, want -50", ax)
	}
	if ax, ay := linear.Acceleration(&linear.Fields[0], 30, 0); ax != 0 || ay != 0 {
		t.Error("point field outside its radius should not act")
	}

	vortex := NewForceField(Field{Kind: FieldVortex, Strength: 10, InwardPull: 2})
	ax, ay := vortex.Acceleration(&vortex.Fields[0], 5, 0)
	if !approx(ax, -2) || !approx(ay, 10) {
		t.Errorf("vortex accel = (%v,%v), want (-2,10)", ax, ay)
	}

	both := NewForceField(Field{Kind: FieldWind, Strength: 10}, Field{Kind: FieldWind, Strength: 10, Direction: 180})
	r := newParticle()
	both.Update(r, 1, 0)
	if !approx(r.VX, 0) {
		t.Errorf("opposing winds should cancel, VX = %v", r.VX)
	}
}

// TestForceField_TurbulenceBounded tests that turbulence stays within its strength
func TestForceField_TurbulenceBounded(t *testing.T) {
	m := NewForceField(Field{Kind: FieldTurbulence, Strength: 4, Frequency: 0.1})
	m.BeginStep(StepContext{Elapsed: 1.3})
	for x := -50.0; x <= 50; x += 12.5 {
		ax, ay := m.Acceleration(&m.Fields[0], x, x*0.7)
		if math.Abs(ax) > 4 || math.Abs(ay) > 4 {
			t.Fatalf("turbulence (%v,%v) exceeds strength", ax, ay)
		}
	}
}

// TestKillSet_Dedup tests that a particle is queued once per pass
func TestKillSet_Dedup(t *testing.T) {
	var k KillSet
	a, b := newParticle(), newParticle()
	k.Add(a)
	k.Add(b)
	k.Add(a)
	if k.Len() != 2 || !k.Contains(a) {
		t.Fatalf("Len = %d, want 2", k.Len())
	}
	k.Drain(func(*components.Particle) {})
	if k.Len() != 0 || k.Contains(a) {
		t.Error("drain should empty the set")
	}
}
