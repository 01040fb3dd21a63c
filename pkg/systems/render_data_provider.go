package systems

import (
	"math"
	"sort"
	"weak"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
)

// Buffer strides, in elements per particle.
const (
	TransformStride = 5 // x, y, rotation, scaleX, scaleY
	UVStride        = 4 // u0, v0, u1, v1
)

const minBufferCapacity = 64

// Handle identifies a registration with a RenderDataProvider.
type Handle uint64

// Batch is one draw group: every particle of the systems sharing a sort key.
// The slices are views into the provider's shared buffers and stay valid
// until the next RenderData call. Callers must not modify them.
type Batch struct {
	Layer, Order int
	Key          int64

	Texture      string // Texture of the first system in the group
	TextureIndex uint32
	Blend        particle.BlendMode

	Count          int
	Transforms     []float32 // TransformStride per particle
	TextureIndices []uint32  // One per particle
	UVs            []float32 // UVStride per particle
	Colors         []uint32  // RGBA8, R in the low byte
}

type registration struct {
	handle Handle
	ref    weak.Pointer[ParticleSystem]
}

type liveSystem struct {
	key int64
	ps  *ParticleSystem
}

// RenderDataProvider flattens the live particles of every registered system
// into shared buffers grouped by sort key.
//
// The provider holds weak references: registering a system never keeps it
// alive, and collected systems are pruned on the next rebuild. Results are
// memoised until Register, Unregister or Invalidate marks the provider dirty;
// hosts normally call Invalidate once per frame after updating.
type RenderDataProvider struct {
	regs   []registration
	next   Handle
	dirty  bool
	live   []liveSystem
	active int // Particles written by the last rebuild

	transforms []float32
	texIndices []uint32
	uvs        []float32
	colors     []uint32
	batches    []Batch

	textureIDs   map[string]uint32
	textureNames []string
}

// NewRenderDataProvider creates an empty provider.
func NewRenderDataProvider() *RenderDataProvider {
	return &RenderDataProvider{textureIDs: make(map[string]uint32)}
}

// Register adds ps. Registering the same system twice returns its existing handle.
func (r *RenderDataProvider) Register(ps *ParticleSystem) Handle {
	ref := weak.Make(ps)
	for _, reg := range r.regs {
		if reg.ref == ref {
			return reg.handle
		}
	}
	r.next++
	r.regs = append(r.regs, registration{handle: r.next, ref: ref})
	r.dirty = true
	return r.next
}

// Unregister removes a registration. Unknown handles are ignored.
func (r *RenderDataProvider) Unregister(h Handle) {
	for i, reg := range r.regs {
		if reg.handle == h {
			r.regs = append(r.regs[:i], r.regs[i+1:]...)
			r.dirty = true
			return
		}
	}
}

// Len returns the number of registrations, including collected systems not
// yet pruned.
func (r *RenderDataProvider) Len() int {
	return len(r.regs)
}

// Invalidate forces the next RenderData call to rebuild.
func (r *RenderDataProvider) Invalidate() {
	r.dirty = true
}

// ActiveCount returns the number of particles in the current batches.
func (r *RenderDataProvider) ActiveCount() int {
	return r.active
}

// BufferCapacity returns the shared buffer size in particles.
func (r *RenderDataProvider) BufferCapacity() int {
	return len(r.colors)
}

// TextureIndex interns a texture id.
func (r *RenderDataProvider) TextureIndex(name string) uint32 {
	if idx, ok := r.textureIDs[name]; ok {
		return idx
	}
	idx := uint32(len(r.textureNames))
	r.textureIDs[name] = idx
	r.textureNames = append(r.textureNames, name)
	return idx
}

// TextureName resolves an interned index.
func (r *RenderDataProvider) TextureName(idx uint32) (string, bool) {
	if int(idx) >= len(r.textureNames) {
		return "", false
	}
	return r.textureNames[idx], true
}

// RenderData returns one batch per distinct sort key in ascending key order.
// Inside a batch, systems appear in registration order and particles in
// pool order.
func (r *RenderDataProvider) RenderData() []Batch {
	if !r.dirty {
		return r.batches
	}
	r.dirty = false

	r.live = r.live[:0]
	kept := r.regs[:0]
	total := 0
	for _, reg := range r.regs {
		ps := reg.ref.Value()
		if ps == nil {
			continue
		}
		kept = append(kept, reg)
		r.live = append(r.live, liveSystem{key: ps.SortKey(), ps: ps})
		total += ps.ActiveCount()
	}
	clear(r.regs[len(kept):])
	r.regs = kept

	sort.SliceStable(r.live, func(i, j int) bool { return r.live[i].key < r.live[j].key })
	r.grow(total)

	r.batches = r.batches[:0]
	n := 0
	for i := 0; i < len(r.live); {
		first := r.live[i].ps
		b := Batch{
			Layer:        first.SortLayer(),
			Order:        first.OrderInLayer(),
			Key:          r.live[i].key,
			Texture:      first.Texture(),
			TextureIndex: r.TextureIndex(first.Texture()),
			Blend:        first.Blend(),
		}
		start := n
		for ; i < len(r.live) && r.live[i].key == b.Key; i++ {
			n = r.writeSystem(r.live[i].ps, n)
		}
		b.Count = n - start
		b.Transforms = r.transforms[start*TransformStride : n*TransformStride : n*TransformStride]
		b.TextureIndices = r.texIndices[start:n:n]
		b.UVs = r.uvs[start*UVStride : n*UVStride : n*UVStride]
		b.Colors = r.colors[start:n:n]
		r.batches = append(r.batches, b)
	}
	r.active = n
	clear(r.live)
	return r.batches
}

// grow resizes the shared buffers geometrically to hold n particles.
// Buffers never shrink.
func (r *RenderDataProvider) grow(n int) {
	capacity := len(r.colors)
	if n <= capacity {
		return
	}
	if capacity < minBufferCapacity {
		capacity = minBufferCapacity
	}
	for capacity < n {
		capacity *= 2
	}
	r.transforms = make([]float32, capacity*TransformStride)
	r.texIndices = make([]uint32, capacity)
	r.uvs = make([]float32, capacity*UVStride)
	r.colors = make([]uint32, capacity)
}

// writeSystem appends ps's live particles at offset n and returns the new offset.
func (r *RenderDataProvider) writeSystem(ps *ParticleSystem, n int) int {
	tex := r.TextureIndex(ps.Texture())
	size := ps.ParticleSize()
	cols, rows := ps.Sheet()
	ps.ForEachParticle(func(p *components.Particle) {
		t := r.transforms[n*TransformStride : (n+1)*TransformStride]
		t[0] = float32(p.X)
		t[1] = float32(p.Y)
		t[2] = float32(p.Rotation)
		t[3] = float32(p.ScaleX * size)
		t[4] = float32(p.ScaleY * size)

		r.texIndices[n] = tex

		u0, v0, u1, v1 := FrameUV(p.Frame, cols, rows)
		uv := r.uvs[n*UVStride : (n+1)*UVStride]
		uv[0], uv[1], uv[2], uv[3] = u0, v0, u1, v1

		r.colors[n] = PackColor(p.R, p.G, p.B, p.A)
		n++
	})
	return n
}

// FrameUV returns the normalized texture rectangle of a sprite-sheet frame.
// Frames are numbered row-major and wrap around the sheet.
func FrameUV(frame, cols, rows int) (u0, v0, u1, v1 float32) {
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	if frame < 0 {
		frame = 0
	}
	frame %= cols * rows
	col := frame % cols
	row := frame / cols
	fc, fr := float32(cols), float32(rows)
	return float32(col) / fc, float32(row) / fr, float32(col+1) / fc, float32(row+1) / fr
}

// PackColor converts 0-1 channels into RGBA8 with R in the low byte.
func PackColor(r, g, b, a float64) uint32 {
	return channel(r) | channel(g)<<8 | channel(b)<<16 | channel(a)<<24
}

// UnpackColor reverses PackColor.
func UnpackColor(c uint32) (r, g, b, a uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)
}

func channel(v float64) uint32 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint32(math.Round(v * 255))
}
