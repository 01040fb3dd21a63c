package render

import (
	"image"
	"math"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/systems"
	"github.com/hajimehoshi/ebiten/v2"
)

// maxQuadsPerCall keeps vertex indices within uint16.
const maxQuadsPerCall = (math.MaxUint16 + 1) / 4

// additiveBlend adds source color onto the destination.
var additiveBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorOne,
	BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
	BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

// TextureNamer maps the texture indices of a batch back to ids.
// *systems.RenderDataProvider implements it.
type TextureNamer interface {
	TextureName(idx uint32) (string, bool)
}

// Stats describes the last Draw call.
type Stats struct {
	Batches   int
	DrawCalls int
	Particles int
}

// BatchDrawer turns render batches into textured quads.
//
// Each particle becomes 4 vertices and 6 indices (two triangles). Batches are
// drawn in the order given, which is the provider's sort order; inside a batch,
// consecutive particles sharing a texture go out in one DrawTriangles call.
// Vertex and index buffers are reused between frames.
type BatchDrawer struct {
	Textures *TextureSet

	// OffsetX and OffsetY translate every particle, e.g. for a camera.
	OffsetX, OffsetY float64

	vertices []ebiten.Vertex
	indices  []uint16
	stats    Stats
}

// NewBatchDrawer creates a drawer. A nil texture set gets the built-in one.
func NewBatchDrawer(textures *TextureSet) *BatchDrawer {
	if textures == nil {
		textures = NewTextureSet(0)
	}
	return &BatchDrawer{Textures: textures}
}

// Stats returns counters for the last Draw.
func (d *BatchDrawer) Stats() Stats { return d.stats }

// Draw renders the provider's current batches onto screen.
func (d *BatchDrawer) Draw(screen *ebiten.Image, provider *systems.RenderDataProvider) {
	d.DrawBatches(screen, provider.RenderData(), provider)
}

// DrawBatches renders batches onto screen, resolving textures through names.
func (d *BatchDrawer) DrawBatches(screen *ebiten.Image, batches []systems.Batch, names TextureNamer) {
	d.stats = Stats{}
	for i := range batches {
		b := &batches[i]
		if b.Count == 0 {
			continue
		}
		d.stats.Batches++
		d.stats.Particles += b.Count

		op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
		if b.Blend == particle.BlendAdditive {
			op.Blend = additiveBlend
		}

		start := 0
		for start < b.Count {
			idx := b.TextureIndices[start]
			end := start + 1
			for end < b.Count && b.TextureIndices[end] == idx && end-start < maxQuadsPerCall {
				end++
			}
			img := d.Textures.Get(textureID(names, idx, b.Texture))
			d.vertices, d.indices = BuildQuads(d.vertices[:0], d.indices[:0], b, start, end, img.Bounds(), d.OffsetX, d.OffsetY)
			screen.DrawTriangles(d.vertices, d.indices, img, op)
			d.stats.DrawCalls++
			start = end
		}
	}
}

func textureID(names TextureNamer, idx uint32, fallback string) string {
	if names == nil {
		return fallback
	}
	if id, ok := names.TextureName(idx); ok {
		return id
	}
	return fallback
}

// BuildQuads appends the quads of particles [start, end) of b.
//
// A particle's quad is the source frame size scaled by its transform, rotated
// by its rotation in degrees about its center and placed at its position plus
// the offset. src is the full texture rectangle; the batch UVs select the frame.
func BuildQuads(vs []ebiten.Vertex, is []uint16, b *systems.Batch, start, end int, src image.Rectangle, offX, offY float64) ([]ebiten.Vertex, []uint16) {
	texW := float64(src.Dx())
	texH := float64(src.Dy())
	for i := start; i < end; i++ {
		xf := b.Transforms[i*systems.TransformStride : (i+1)*systems.TransformStride]
		uv := b.UVs[i*systems.UVStride : (i+1)*systems.UVStride]

		sx0 := float64(src.Min.X) + float64(uv[0])*texW
		sy0 := float64(src.Min.Y) + float64(uv[1])*texH
		sx1 := float64(src.Min.X) + float64(uv[2])*texW
		sy1 := float64(src.Min.Y) + float64(uv[3])*texH

		hw := (sx1 - sx0) / 2 * float64(xf[3])
		hh := (sy1 - sy0) / 2 * float64(xf[4])
		rad := float64(xf[2]) * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		px := float64(xf[0]) + offX
		py := float64(xf[1]) + offY

		r, g, bl, a := systems.UnpackColor(b.Colors[i])
		cr := float32(r) / 255
		cg := float32(g) / 255
		cb := float32(bl) / 255
		ca := float32(a) / 255

		// Top-left, top-right, bottom-left, bottom-right.
		corners := [4][4]float64{
			{-hw, -hh, sx0, sy0},
			{hw, -hh, sx1, sy0},
			{-hw, hh, sx0, sy1},
			{hw, hh, sx1, sy1},
		}
		base := uint16(len(vs))
		for _, c := range corners {
			vs = append(vs, ebiten.Vertex{
				DstX:   float32(px + c[0]*cos - c[1]*sin),
				DstY:   float32(py + c[0]*sin + c[1]*cos),
				SrcX:   float32(c[2]),
				SrcY:   float32(c[3]),
				ColorR: cr,
				ColorG: cg,
				ColorB: cb,
				ColorA: ca,
			})
		}
		is = append(is,
			base+0, base+1, base+2,
			base+1, base+3, base+2,
		)
	}
	return vs, is
}
