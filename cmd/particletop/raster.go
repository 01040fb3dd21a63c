package main

import (
	"math"

	"github.com/decker502/particlefx/pkg/systems"
	"github.com/gdamore/tcell/v2"
)

// densityRamp maps accumulated alpha to a glyph, faint to solid.
var densityRamp = []rune(" .:+*#%@")

// cell accumulates the particles that land in one terminal cell.
type cell struct {
	r, g, b float64 // Alpha-weighted color sums, 0-255
	a       float64 // Summed alpha, 0-1 per particle
	n       int
}

// grid is a terminal-sized accumulation buffer.
type grid struct {
	cols, rows int
	cells      []cell
}

func newGrid(cols, rows int) *grid {
	g := &grid{}
	g.resize(cols, rows)
	return g
}

// resize clears the grid and sets its size. The backing slice is reused when
// large enough.
func (g *grid) resize(cols, rows int) {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	g.cols, g.rows = cols, rows
	n := cols * rows
	if cap(g.cells) < n {
		g.cells = make([]cell, n)
	}
	g.cells = g.cells[:n]
	clear(g.cells)
}

func (g *grid) at(x, y int) *cell {
	return &g.cells[y*g.cols+x]
}

// plot maps every particle of batches from a worldW×worldH area onto the grid.
// Particles outside the area are dropped.
func (g *grid) plot(batches []systems.Batch, worldW, worldH float64) {
	if g.cols == 0 || g.rows == 0 || worldW <= 0 || worldH <= 0 {
		return
	}
	sx := float64(g.cols) / worldW
	sy := float64(g.rows) / worldH
	for bi := range batches {
		b := &batches[bi]
		for i := 0; i < b.Count; i++ {
			x := float64(b.Transforms[i*systems.TransformStride])
			y := float64(b.Transforms[i*systems.TransformStride+1])
			cx := int(math.Floor(x * sx))
			cy := int(math.Floor(y * sy))
			if cx < 0 || cy < 0 || cx >= g.cols || cy >= g.rows {
				continue
			}
			r, gr, bl, a := systems.UnpackColor(b.Colors[i])
			alpha := float64(a) / 255
			c := g.at(cx, cy)
			c.r += float64(r) * alpha
			c.g += float64(gr) * alpha
			c.b += float64(bl) * alpha
			c.a += alpha
			c.n++
		}
	}
}

// color returns the alpha-weighted mean color of the cell.
func (c *cell) color() (r, g, b int32) {
	if c.a <= 0 {
		return 0, 0, 0
	}
	return int32(math.Round(c.r / c.a)), int32(math.Round(c.g / c.a)), int32(math.Round(c.b / c.a))
}

// glyphFor picks a density glyph for summed alpha.
func glyphFor(a float64) rune {
	if a <= 0 {
		return densityRamp[0]
	}
	if a >= 1 {
		return densityRamp[len(densityRamp)-1]
	}
	return densityRamp[1+int(a*float64(len(densityRamp)-2))]
}

// draw writes the non-empty cells to screen.
func (g *grid) draw(screen tcell.Screen) {
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.cols; x++ {
			c := g.at(x, y)
			if c.n == 0 {
				continue
			}
			r, gr, b := c.color()
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(r, gr, b))
			screen.SetContent(x, y, glyphFor(c.a), nil, style)
		}
	}
}

// drawText writes s starting at (x, y), clipped to the screen width.
func drawText(screen tcell.Screen, x, y int, style tcell.Style, s string) {
	w, _ := screen.Size()
	for _, r := range s {
		if x >= w {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
