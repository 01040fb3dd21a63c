// Package main previews a particle effect in the terminal.
//
// Usage:
//
//	go run ./cmd/particletop [flags]
//
// Flags:
//
//	--effect <name>   Effect to play (default: spark)
//	--dir <path>      Load effects from a directory instead of the embedded samples
//	--width/--height  Simulated world size in pixels (default 960x640)
//	--fps <n>         Simulation and redraw rate (default 30)
//	--seed <n>        Fixed random seed (0 = time based)
//	--verbose         Log to stderr
//
// Keys: Left/Right switch effect, Space restart, b burst, p pause,
// g toggle gravity override, q/Escape quit.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/decker502/particlefx/data"
	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/geometry"
	"github.com/decker502/particlefx/pkg/scene"
	"github.com/decker502/particlefx/pkg/systems"
	"github.com/gdamore/tcell/v2"
	"github.com/yohamta/donburi"
)

var (
	effectFlag  = flag.String("effect", "spark", "Effect to play")
	dirFlag     = flag.String("dir", "", "Directory of effect YAML files (default: embedded samples)")
	widthFlag   = flag.Float64("width", 960, "World width in pixels")
	heightFlag  = flag.Float64("height", 640, "World height in pixels")
	fpsFlag     = flag.Int("fps", 30, "Simulation and redraw rate")
	seedFlag    = flag.Int64("seed", 0, "Random seed (0 = time based)")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
)

const (
	burstSize      = 20
	gravityPreview = 300.0
)

// Preview owns the terminal screen and the simulated scene.
type Preview struct {
	screen tcell.Screen
	source *particle.FSSource
	names  []string
	index  int

	scene  *scene.Scene
	entity donburi.Entity
	grid   *grid

	worldW, worldH float64
	dt             float64
	paused         bool
	status         string
}

// NewPreview loads the effect list and starts the selected effect.
func NewPreview(screen tcell.Screen, source *particle.FSSource, effect string, worldW, worldH float64, fps int) (*Preview, error) {
	names, err := source.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list effects: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no particle effects found")
	}
	if fps <= 0 {
		fps = 30
	}

	p := &Preview{
		screen: screen,
		source: source,
		names:  names,
		scene:  scene.New(nil),
		grid:   newGrid(0, 0),
		worldW: worldW,
		worldH: worldH,
		dt:     1 / float64(fps),
	}
	for i, n := range names {
		if n == effect {
			p.index = i
		}
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

// start replaces the running effect with the selected one.
func (p *Preview) start() error {
	name := p.names[p.index]
	asset, err := p.source.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load effect %s: %w", name, err)
	}

	// A floor along the bottom edge for effects with geometry collision.
	world := geometry.NewWorld(int(p.worldW), int(p.worldH), 32)
	world.AddBox(1, 0, p.worldH-20, p.worldW, 20, geometry.AllLayers)

	opts := []systems.Option{systems.WithGeometryQuery(world)}
	if *seedFlag != 0 {
		opts = append(opts, systems.WithSeed(*seedFlag))
	}
	ps := systems.NewParticleSystem(asset, opts...)

	p.scene.Despawn(p.entity)
	p.entity = p.scene.Spawn(ps, components.At(p.worldW/2, p.worldH/2), false)
	p.status = fmt.Sprintf("%s (%d/%d)", name, p.index+1, len(p.names))
	log.Printf("[Preview] playing %s", name)
	return nil
}

// step advances the simulation by one frame unless paused.
func (p *Preview) step() {
	if !p.paused {
		p.scene.Step(p.dt)
	}
}

// handleEvent applies one terminal event. It returns false on quit.
func (p *Preview) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			p.cycle(-1)
		case tcell.KeyRight:
			p.cycle(1)
		case tcell.KeyRune:
			return p.handleRune(ev.Rune())
		}
	case *tcell.EventResize:
		p.screen.Sync()
	}
	return true
}

func (p *Preview) handleRune(r rune) bool {
	ps, ok := p.scene.System(p.entity)
	if !ok {
		return r != 'q'
	}
	switch r {
	case 'q':
		return false
	case ' ':
		ps.Stop(true)
		ps.Play()
		p.status = fmt.Sprintf("restarted %s", ps.Name())
	case 'b':
		n := ps.Emit(burstSize)
		p.status = fmt.Sprintf("burst %d", n)
	case 'p':
		p.paused = !p.paused
		if p.paused {
			p.status = "paused"
		} else {
			p.status = "resumed"
		}
	case 'g':
		if ps.Overrides().GravityY != nil {
			_ = ps.ClearOverride(systems.OverrideGravityY)
			p.status = "gravity override cleared"
		} else {
			_ = ps.SetOverride(systems.OverrideGravityY, gravityPreview)
			p.status = fmt.Sprintf("gravity %.0f", gravityPreview)
		}
	}
	return true
}

func (p *Preview) cycle(delta int) {
	n := len(p.names)
	p.index = ((p.index+delta)%n + n) % n
	if err := p.start(); err != nil {
		p.status = err.Error()
	}
}

// draw rasterizes the current render data onto the screen. The last row is
// the status line.
func (p *Preview) draw() {
	cols, rows := p.screen.Size()
	p.screen.Clear()
	if rows > 1 {
		p.grid.resize(cols, rows-1)
		p.grid.plot(p.scene.Provider.RenderData(), p.worldW, p.worldH)
		p.grid.draw(p.screen)
	}

	line := p.status
	if ps, ok := p.scene.System(p.entity); ok {
		line = fmt.Sprintf("%s | %s %d/%d | ←/→ effect  space restart  b burst  p pause  g gravity  q quit",
			p.status, ps.State(), ps.ActiveCount(), ps.Capacity())
	}
	drawText(p.screen, 0, rows-1, tcell.StyleDefault.Reverse(true), line)
	p.screen.Show()
}

// run drives the preview until the user quits.
func (p *Preview) run() {
	ticker := time.NewTicker(time.Duration(p.dt * float64(time.Second)))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !p.handleEvent(ev) {
				return
			}
		case <-ticker.C:
			p.step()
			p.draw()
		}
	}
}

func effectSource() *particle.FSSource {
	if *dirFlag != "" {
		return particle.NewFSSource(os.DirFS(*dirFlag), "")
	}
	return particle.NewFSSource(data.Effects, "effects")
}

func main() {
	flag.Parse()

	// The terminal is the display; logs would corrupt it unless asked for.
	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	preview, err := NewPreview(screen, effectSource(), *effectFlag, *widthFlag, *heightFlag, *fpsFlag)
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Failed to start preview: %v\n", err)
		os.Exit(1)
	}

	preview.run()
	screen.Fini()
}
