// Package render draws particle render batches with ebiten.
package render

import (
	"image"
	"image/color"
	"log"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// DefaultTextureSize is the edge length of generated textures, in pixels.
const DefaultTextureSize = 16

// Generator fills a size×size RGBA image for a texture id.
type Generator func(size int) *image.RGBA

// builtinGenerators maps the texture ids used by the bundled effects to
// procedural images.
var builtinGenerators = map[string]Generator{
	"dot":   DotPixels,
	"puff":  PuffPixels,
	"flake": FlakePixels,
}

// TextureSet resolves texture ids to ebiten images.
//
// Unknown ids resolve to a white square so effects without art still draw.
// Images are created lazily on first use.
type TextureSet struct {
	size       int
	images     map[string]*ebiten.Image
	generators map[string]Generator
	fallback   *ebiten.Image
}

// NewTextureSet creates a texture set with the built-in procedural textures.
// A size <= 0 uses DefaultTextureSize.
func NewTextureSet(size int) *TextureSet {
	if size <= 0 {
		size = DefaultTextureSize
	}
	gens := make(map[string]Generator, len(builtinGenerators))
	for k, v := range builtinGenerators {
		gens[k] = v
	}
	return &TextureSet{
		size:       size,
		images:     make(map[string]*ebiten.Image),
		generators: gens,
	}
}

// Size returns the edge length of generated textures.
func (t *TextureSet) Size() int { return t.size }

// Register replaces or adds a texture image.
func (t *TextureSet) Register(id string, img *ebiten.Image) {
	t.images[id] = img
}

// RegisterGenerator adds a procedural texture.
func (t *TextureSet) RegisterGenerator(id string, gen Generator) {
	t.generators[id] = gen
	delete(t.images, id)
}

// Has reports whether id resolves to something other than the fallback.
func (t *TextureSet) Has(id string) bool {
	if _, ok := t.images[id]; ok {
		return true
	}
	_, ok := t.generators[id]
	return ok
}

// Get returns the image for id, generating it if needed.
func (t *TextureSet) Get(id string) *ebiten.Image {
	if img, ok := t.images[id]; ok {
		return img
	}
	if gen, ok := t.generators[id]; ok {
		img := ebiten.NewImageFromImage(gen(t.size))
		t.images[id] = img
		return img
	}
	if t.fallback == nil {
		if id != "" {
			log.Printf("[Render] unknown texture %q, using fallback", id)
		}
		t.fallback = ebiten.NewImageFromImage(SquarePixels(t.size))
	}
	return t.fallback
}

// DotPixels is a hard-edged disc with an antialiased rim.
func DotPixels(size int) *image.RGBA {
	return radial(size, func(d float64) float64 {
		return clamp01((1 - d) * float64(size) / 2)
	})
}

// PuffPixels is a soft radial falloff.
func PuffPixels(size int) *image.RGBA {
	return radial(size, func(d float64) float64 {
		a := clamp01(1 - d)
		return a * a
	})
}

// FlakePixels is a six-armed star.
func FlakePixels(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - c
			dy := float64(y) + 0.5 - c
			r := math.Hypot(dx, dy) / c
			if r > 1 {
				continue
			}
			// Distance to the nearest arm, arms every 60 degrees.
			theta := math.Atan2(dy, dx)
			arm := math.Mod(math.Abs(theta), math.Pi/3)
			arm = math.Min(arm, math.Pi/3-arm)
			width := math.Abs(math.Sin(arm)) * r * c
			a := clamp01(1.2-width) * (1 - r*r)
			if r < 0.2 {
				a = 1
			}
			img.SetRGBA(x, y, white(a))
		}
	}
	return img
}

// SquarePixels is an opaque white square.
func SquarePixels(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func radial(size int, alpha func(d float64) float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) / c
			if d >= 1 {
				continue
			}
			img.SetRGBA(x, y, white(alpha(d)))
		}
	}
	return img
}

// white returns premultiplied white at alpha a.
func white(a float64) color.RGBA {
	v := uint8(math.Round(clamp01(a) * 255))
	return color.RGBA{R: v, G: v, B: v, A: v}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
