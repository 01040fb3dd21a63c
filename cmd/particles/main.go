// Package main provides a particle effect viewer for previewing and tuning
// effect assets.
//
// Usage:
//
//	go run ./cmd/particles [flags]
//
// Flags:
//
//	--config <file>   Viewer configuration (YAML), defaults are built in
//	--dir <path>      Load effects from a directory instead of the embedded samples
//	--effect <name>   Start with a specific effect (e.g., --effect=smoke)
//	--filter <text>   Initial filter by name
//	--seed <n>        Fixed random seed for reproducible playback
//	--verbose         Enable logging
//
// Controls:
//
//	Mouse Click       - Spawn the selected effect at the cursor
//	Left/Right Arrow  - Switch the focus emitter to the previous/next effect
//	Space             - Restart the focus emitter
//	B                 - Emit a burst of 20 particles from the focus emitter
//	Up/Down           - Scale the emission rate override
//	G                 - Toggle a gravity override
//	[ / ]             - Rotate the focus emitter by 15°
//	\                 - Reset rotation
//	P                 - Pause/resume the simulation
//	H                 - Hot-reload the focus effect from its source
//	S / L / X         - Save / load / delete the override preset
//	R                 - Clear spawned effects and particles
//	F or /            - Enter search mode
//	Q/Escape          - Quit
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"

	"github.com/decker502/particlefx/data"
	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/config"
	"github.com/decker502/particlefx/pkg/game"
	"github.com/decker502/particlefx/pkg/geometry"
	"github.com/decker502/particlefx/pkg/render"
	"github.com/decker502/particlefx/pkg/scene"
	"github.com/decker502/particlefx/pkg/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"
	"github.com/yohamta/donburi"
)

var (
	configFlag  = flag.String("config", "", "Viewer configuration file (YAML)")
	dirFlag     = flag.String("dir", "", "Directory of effect YAML files (default: embedded samples)")
	effectFlag  = flag.String("effect", "", "Start with specific effect name")
	filterFlag  = flag.String("filter", "", "Initial filter by name keyword")
	seedFlag    = flag.Int64("seed", 0, "Random seed (0 = time based)")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
)

var errQuit = errors.New("quit requested")

const (
	burstSize      = 20
	rateStep       = 1.25
	rotationStep   = 15.0
	gravityPreview = 300.0
)

// ParticleViewerGame implements ebiten.Game for the viewer.
type ParticleViewerGame struct {
	cfg     *config.ViewerConfig
	source  *particle.FSSource
	scene   *scene.Scene
	drawer  *render.BatchDrawer
	world   *geometry.World
	presets *game.PresetManager

	// Effect lists
	allEffectNames      []string
	filteredEffectNames []string
	currentIndex        int

	// Search mode
	searchMode  bool
	searchQuery string

	// The focus emitter follows selection and editing keys.
	focus    donburi.Entity
	focusXf  components.Transform
	spawned  []donburi.Entity
	seed     int64
	paused   bool
	obstacle *ebiten.Image

	statusMessage string
}

// NewParticleViewerGame creates the viewer from a configuration.
func NewParticleViewerGame(cfg *config.ViewerConfig) (*ParticleViewerGame, error) {
	source := effectSource(cfg)
	allNames, err := source.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load particle effects: %w", err)
	}
	if len(allNames) == 0 {
		return nil, fmt.Errorf("no particle effects found")
	}

	world := geometry.NewWorld(cfg.Window.Width, cfg.Window.Height, 16)
	for i, o := range cfg.Obstacles {
		world.AddBox(uint64(i+1), o.X, o.Y, o.Width, o.Height, o.LayersOrDefault())
	}

	var gm *gdata.Manager
	if cfg.Presets {
		gm, err = gdata.Open(gdata.Config{AppName: "particlefx"})
		if err != nil {
			log.Printf("Warning: preset storage unavailable, presets stay in memory: %v", err)
			gm = nil
		}
	}

	obstacle := ebiten.NewImage(1, 1)
	obstacle.Fill(color.White)

	g := &ParticleViewerGame{
		cfg:            cfg,
		source:         source,
		scene:          scene.New(nil),
		drawer:         render.NewBatchDrawer(nil),
		world:          world,
		presets:        game.NewPresetManager(gm),
		allEffectNames: allNames,
		searchQuery:    *filterFlag,
		seed:           *seedFlag,
		obstacle:       obstacle,
	}

	g.filteredEffectNames = filterEffects(allNames, g.searchQuery)
	if len(g.filteredEffectNames) == 0 {
		log.Printf("Warning: No effects match initial filter %q, showing all", g.searchQuery)
		g.filteredEffectNames = allNames
		g.searchQuery = ""
	}

	placements := cfg.Emitters
	if *effectFlag != "" {
		if len(placements) == 0 {
			placements = []config.EmitterPlacement{{X: float64(cfg.Window.Width) / 2, Y: float64(cfg.Window.Height) / 2}}
		}
		placements = append([]config.EmitterPlacement(nil), placements...)
		placements[0].Effect = *effectFlag
	}
	for i, p := range placements {
		e, err := g.spawnPlacement(p)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			g.focus = e
			g.focusXf = placementTransform(p)
			g.currentIndex = indexOf(g.filteredEffectNames, p.Effect)
		}
	}

	g.updateStatusMessage()
	log.Printf("Particle Viewer initialized: %d total effects, %d after filter", len(allNames), len(g.filteredEffectNames))
	return g, nil
}

// effectSource picks the flag directory, then the config directory, then the
// embedded samples.
func effectSource(cfg *config.ViewerConfig) *particle.FSSource {
	dir := *dirFlag
	if dir == "" {
		dir = cfg.EffectsDir
	}
	if dir != "" {
		return particle.NewFSSource(os.DirFS(dir), "")
	}
	return particle.NewFSSource(data.Effects, "effects")
}

func placementTransform(p config.EmitterPlacement) components.Transform {
	s := p.ScaleOrOne()
	return components.Transform{X: p.X, Y: p.Y, Rotation: p.Rotation, ScaleX: s, ScaleY: s}
}

// newSystem loads an effect and wires it to the viewer's geometry and presets.
func (g *ParticleViewerGame) newSystem(name string) (*systems.ParticleSystem, error) {
	asset, err := g.source.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load effect %s: %w", name, err)
	}
	opts := []systems.Option{systems.WithGeometryQuery(g.world)}
	if g.seed != 0 {
		opts = append(opts, systems.WithSeed(g.seed))
	}
	ps := systems.NewParticleSystem(asset, opts...)
	if g.presets.Apply(ps) {
		log.Printf("Applied preset for %s", name)
	}
	return ps, nil
}

func (g *ParticleViewerGame) spawnPlacement(p config.EmitterPlacement) (donburi.Entity, error) {
	ps, err := g.newSystem(p.Effect)
	if err != nil {
		return donburi.Null, err
	}
	layer, order := ps.SortLayer(), ps.OrderInLayer()
	if p.Layer != nil {
		layer = *p.Layer
	}
	if p.Order != nil {
		order = *p.Order
	}
	ps.SetSortOrder(layer, order)
	return g.scene.Spawn(ps, placementTransform(p), false), nil
}

// Update advances input and simulation by one tick.
func (g *ParticleViewerGame) Update() error {
	if g.searchMode {
		g.updateSearchMode()
		return nil
	}
	if err := g.updateNormalMode(); err != nil {
		return err
	}
	if !g.paused {
		g.scene.Step(1.0 / float64(g.cfg.Window.TPS))
	}
	return nil
}

func (g *ParticleViewerGame) updateSearchMode() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.searchMode = false
		g.statusMessage = fmt.Sprintf("Search: %q (%d results)", g.searchQuery, len(g.filteredEffectNames))
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		if len(g.searchQuery) > 0 {
			g.searchQuery = g.searchQuery[:len(g.searchQuery)-1]
			g.applySearch()
		}
		return
	}
	runes := ebiten.AppendInputChars(nil)
	if len(runes) > 0 {
		for _, r := range runes {
			if isNameRune(r) {
				g.searchQuery += string(r)
			}
		}
		g.applySearch()
	}
}

func (g *ParticleViewerGame) applySearch() {
	g.filteredEffectNames = filterEffects(g.allEffectNames, g.searchQuery)
	g.currentIndex = 0
	log.Printf("Search query: %q, Results: %d", g.searchQuery, len(g.filteredEffectNames))
}

func (g *ParticleViewerGame) updateNormalMode() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return errQuit
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) || inpututil.IsKeyJustPressed(ebiten.KeySlash) {
		g.searchMode = true
		g.statusMessage = "Search mode: Type to filter effects..."
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
		if g.paused {
			g.statusMessage = "PAUSED - Press P to resume"
		} else {
			g.statusMessage = "Resumed"
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		g.selectEffect(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		g.selectEffect(1)
	}

	ps, ok := g.scene.System(g.focus)
	if ok {
		g.updateFocus(ps)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.clearAll()
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		g.spawnAt(float64(x), float64(y))
	}
	return nil
}

// updateFocus handles the keys that edit the focus emitter.
func (g *ParticleViewerGame) updateFocus(ps *systems.ParticleSystem) {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		ps.Stop(true)
		ps.Play()
		g.statusMessage = fmt.Sprintf("Restarted %s", ps.Name())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		n := ps.Emit(burstSize)
		g.statusMessage = fmt.Sprintf("Burst: %d particles", n)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		g.setOverride(ps, systems.OverrideEmissionRate, ps.EmissionRate()*rateStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		g.setOverride(ps, systems.OverrideEmissionRate, ps.EmissionRate()/rateStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		if ps.Overrides().GravityY != nil {
			_ = ps.ClearOverride(systems.OverrideGravityY)
			g.statusMessage = "Gravity override cleared"
		} else {
			g.setOverride(ps, systems.OverrideGravityY, gravityPreview)
		}
	}

	rotated := false
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		g.focusXf.Rotation -= rotationStep
		rotated = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		g.focusXf.Rotation += rotationStep
		rotated = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackslash) {
		g.focusXf.Rotation = 0
		rotated = true
	}
	if rotated {
		g.scene.SetTransform(g.focus, g.focusXf)
		g.statusMessage = fmt.Sprintf("Rotation: %.0f°", g.focusXf.Rotation)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		if err := ps.Reload(g.source, ps.Name()); err != nil {
			g.statusMessage = fmt.Sprintf("Reload failed: %v", err)
		} else {
			g.statusMessage = fmt.Sprintf("Reloaded %s", ps.Name())
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if err := g.presets.Capture(ps); err != nil {
			g.statusMessage = fmt.Sprintf("Save preset failed: %v", err)
		} else {
			g.statusMessage = fmt.Sprintf("Saved preset for %s", ps.Name())
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		if g.presets.Apply(ps) {
			g.statusMessage = fmt.Sprintf("Loaded preset for %s", ps.Name())
		} else {
			g.statusMessage = fmt.Sprintf("No preset for %s", ps.Name())
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		if err := g.presets.Delete(ps.Name()); err != nil {
			g.statusMessage = fmt.Sprintf("Delete preset failed: %v", err)
		} else {
			ps.ClearOverrides()
			g.statusMessage = fmt.Sprintf("Deleted preset for %s", ps.Name())
		}
	}
}

func (g *ParticleViewerGame) setOverride(ps *systems.ParticleSystem, key string, value float64) {
	if err := ps.SetOverride(key, value); err != nil {
		g.statusMessage = fmt.Sprintf("Override failed: %v", err)
		return
	}
	g.statusMessage = fmt.Sprintf("%s = %.2f", key, value)
}

// selectEffect moves the selection by delta and swaps the focus emitter's asset.
func (g *ParticleViewerGame) selectEffect(delta int) {
	n := len(g.filteredEffectNames)
	if n == 0 {
		return
	}
	g.currentIndex = ((g.currentIndex+delta)%n + n) % n
	name := g.filteredEffectNames[g.currentIndex]

	ps, ok := g.scene.System(g.focus)
	if !ok {
		return
	}
	if err := ps.Reload(g.source, name); err != nil {
		g.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	ps.ClearOverrides()
	g.presets.Apply(ps)
	ps.Stop(true)
	ps.Play()
	g.updateStatusMessage()
}

func (g *ParticleViewerGame) spawnAt(x, y float64) {
	if len(g.filteredEffectNames) == 0 {
		g.statusMessage = "No effects to spawn"
		return
	}
	name := g.filteredEffectNames[g.currentIndex]
	ps, err := g.newSystem(name)
	if err != nil {
		log.Printf("Failed to create effect %s: %v", name, err)
		g.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}
	g.spawned = append(g.spawned, g.scene.Spawn(ps, components.At(x, y), true))
	g.statusMessage = fmt.Sprintf("Spawned: %s at (%.0f, %.0f)", name, x, y)
}

func (g *ParticleViewerGame) clearAll() {
	removed := 0
	for _, e := range g.spawned {
		if g.scene.Despawn(e) {
			removed++
		}
	}
	g.spawned = g.spawned[:0]
	if ps, ok := g.scene.System(g.focus); ok {
		ps.Clear()
	}
	g.statusMessage = fmt.Sprintf("Cleared %d spawned effects", removed)
}

// Draw renders the game screen.
func (g *ParticleViewerGame) Draw(screen *ebiten.Image) {
	bg := g.cfg.Background
	screen.Fill(color.RGBA{bg.R, bg.G, bg.B, 255})

	for _, o := range g.cfg.Obstacles {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(o.Width, o.Height)
		op.GeoM.Translate(o.X, o.Y)
		op.ColorScale.ScaleWithColor(color.RGBA{60, 60, 80, 255})
		screen.DrawImage(g.obstacle, op)
	}

	g.drawer.Draw(screen, g.scene.Provider)
	g.drawUI(screen)
}

func (g *ParticleViewerGame) drawUI(screen *ebiten.Image) {
	if len(g.filteredEffectNames) == 0 {
		ebitenutil.DebugPrintAt(screen, "No effects match current filter", 10, 10)
		return
	}

	title := fmt.Sprintf("Particle Viewer - Effect %d/%d: %s", g.currentIndex+1, len(g.filteredEffectNames), g.filteredEffectNames[g.currentIndex])
	ebitenutil.DebugPrintAt(screen, title, 10, 10)

	if g.searchQuery != "" {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Filter: %q (%d/%d effects)", g.searchQuery, len(g.filteredEffectNames), len(g.allEffectNames)), 10, 30)
	}

	if g.cfg.ShowStats {
		st := g.drawer.Stats()
		stats := fmt.Sprintf("Effects: %d  Particles: %d  Batches: %d  Draw calls: %d  TPS: %.0f",
			g.scene.Len(), st.Particles, st.Batches, st.DrawCalls, ebiten.ActualTPS())
		ebitenutil.DebugPrintAt(screen, stats, 10, 50)
		if ps, ok := g.scene.System(g.focus); ok {
			focus := fmt.Sprintf("Focus: %s [%s] %d/%d  rate %.1f  gravity %.0f  rotation %.0f°",
				ps.Name(), ps.State(), ps.ActiveCount(), ps.Capacity(), ps.EmissionRate(), ps.GravityY(), g.focusXf.Rotation)
			ebitenutil.DebugPrintAt(screen, focus, 10, 70)
		}
	}

	if g.searchMode {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("SEARCH: %s_", g.searchQuery), 10, 90)
		ebitenutil.DebugPrintAt(screen, "(Type to filter, Backspace to delete, Enter/Esc to exit)", 10, 110)
	} else if g.statusMessage != "" {
		ebitenutil.DebugPrintAt(screen, g.statusMessage, 10, 90)
	}

	controls := []string{
		"Effects:  <-/-> = Prev/Next  Click = Spawn  Space = Restart  B = Burst  R = Clear  F//= Search",
		"Tuning:   Up/Down = Rate  G = Gravity  [ ] \\ = Rotate  H = Reload  S/L/X = Preset  P = Pause  Q = Quit",
	}
	y := g.cfg.Window.Height - len(controls)*20 - 10
	for i, line := range controls {
		ebitenutil.DebugPrintAt(screen, line, 10, y+i*20)
	}
}

// Layout returns the logical screen size.
func (g *ParticleViewerGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Window.Width, g.cfg.Window.Height
}

func (g *ParticleViewerGame) updateStatusMessage() {
	if len(g.filteredEffectNames) == 0 {
		g.statusMessage = "No effects available"
		return
	}
	name := g.filteredEffectNames[g.currentIndex]
	g.statusMessage = fmt.Sprintf("Selected: %s", name)
	log.Printf("Current effect: %s (%d/%d)", name, g.currentIndex+1, len(g.filteredEffectNames))
}

func loadConfig(path string) (*config.ViewerConfig, error) {
	if path == "" {
		return config.DefaultViewerConfig(), nil
	}
	return config.LoadViewerConfig(path)
}

func main() {
	flag.Parse()

	// 默认静音运行；如需详细调试，传入 --verbose
	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	g, err := NewParticleViewerGame(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize viewer: %v\n", err)
		os.Exit(1)
	}

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.Window.TPS)

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, errQuit) {
		fmt.Fprintf(os.Stderr, "Viewer error: %v\n", err)
		os.Exit(1)
	}
}
