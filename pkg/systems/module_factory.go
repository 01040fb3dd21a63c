package systems

import (
	"fmt"
	"log"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/curve"
	"github.com/decker502/particlefx/pkg/modules"
)

// ModuleEnv carries the collaborators a module block may need.
type ModuleEnv struct {
	Query  modules.GeometryQuery
	Frames int // Sprite-sheet frame count from the asset
}

type moduleFactory func(block *particle.ModuleBlock, env ModuleEnv) (modules.Module, error)

// moduleFactories maps asset block types to constructors.
var moduleFactories = map[string]moduleFactory{
	"colorOverLifetime":    buildColorOverLifetime,
	"sizeOverLifetime":     buildSizeOverLifetime,
	"velocityOverLifetime": buildVelocityOverLifetime,
	"rotationOverLifetime": buildRotationOverLifetime,
	"noise":                buildNoise,
	"textureSheet":         buildTextureSheet,
	"boundaryCollision":    buildBoundaryCollision,
	"geometryCollision":    buildGeometryCollision,
	"forceField":           buildForceField,
}

// ModuleTypes returns the block types BuildModule understands.
func ModuleTypes() []string {
	types := make([]string, 0, len(moduleFactories))
	for k := range moduleFactories {
		types = append(types, k)
	}
	return types
}

// BuildModule constructs one module from an asset block.
func BuildModule(block *particle.ModuleBlock, env ModuleEnv) (modules.Module, error) {
	factory, ok := moduleFactories[block.Type]
	if !ok {
		return nil, fmt.Errorf("unknown module type %q", block.Type)
	}
	m, err := factory(block, env)
	if err != nil {
		return nil, err
	}
	if block.Name != "" {
		if named, ok := m.(interface{ SetName(string) }); ok {
			named.SetName(block.Name)
		}
	}
	m.SetEnabled(block.IsEnabled())
	return m, nil
}

// BuildModules constructs the asset's module list in declaration order.
// Blocks that fail to build are logged and skipped. endAlpha and endScale
// add implicit fade and size modules unless the asset declares its own.
func BuildModules(asset *particle.EffectAsset, env ModuleEnv) []modules.Module {
	list := make([]modules.Module, 0, len(asset.Modules)+2)
	hasColor, hasSize := false, false
	for i := range asset.Modules {
		block := &asset.Modules[i]
		m, err := BuildModule(block, env)
		if err != nil {
			log.Printf("[ParticleSystem] %s: skipping module %d: %v", asset.Name, i, err)
			continue
		}
		switch m.(type) {
		case *modules.ColorOverLifetime:
			hasColor = true
		case *modules.SizeOverLifetime:
			hasSize = true
		}
		list = append(list, m)
	}
	if asset.EndAlpha != nil && !hasColor {
		list = append(list, modules.FadeOut(*asset.EndAlpha))
	}
	if asset.EndScale != nil && !hasSize {
		list = append(list, modules.NewSizeOverLifetime(modules.SizeLinear, 1, *asset.EndScale))
	}
	return list
}

func buildColorOverLifetime(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	var p struct {
		Keys     []modules.ColorKey `yaml:"keys"`
		EndAlpha *float64           `yaml:"endAlpha"`
	}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	if len(p.Keys) == 0 && p.EndAlpha != nil {
		return modules.FadeOut(*p.EndAlpha), nil
	}
	return modules.NewColorOverLifetime(p.Keys...), nil
}

func buildSizeOverLifetime(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	p := struct {
		Mode         string         `yaml:"mode"`
		Start        float64        `yaml:"start"`
		End          float64        `yaml:"end"`
		Curve        particle.Value `yaml:"curve"`
		SeparateAxes bool           `yaml:"separateAxes"`
		StartY       float64        `yaml:"startY"`
		EndY         float64        `yaml:"endY"`
		CurveY       particle.Value `yaml:"curveY"`
	}{Start: 1, End: 1, StartY: 1, EndY: 1}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	m := modules.NewSizeOverLifetime(modules.ParseSizeMode(p.Mode), p.Start, p.End)
	m.Keys = p.Curve.Keys
	m.SeparateAxes = p.SeparateAxes
	m.StartY, m.EndY = p.StartY, p.EndY
	m.KeysY = p.CurveY.Keys
	return m, nil
}

func buildVelocityOverLifetime(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	var p struct {
		Speed   particle.Value `yaml:"speed"`
		Drag    float64        `yaml:"drag"`
		Orbital float64        `yaml:"orbital"`
		Radial  float64        `yaml:"radial"`
		X       float64        `yaml:"x"`
		Y       float64        `yaml:"y"`
	}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	m := modules.NewVelocityOverLifetime(1, 1)
	if p.Speed.IsSet() {
		m.Speed = p.Speed.Curve()
	}
	m.Drag = p.Drag
	m.Orbital = p.Orbital
	m.Radial = p.Radial
	m.AddX, m.AddY = p.X, p.Y
	return m, nil
}

func buildRotationOverLifetime(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	p := struct {
		Start      float64 `yaml:"start"`
		End        float64 `yaml:"end"`
		Ease       string  `yaml:"ease"`
		Additional float64 `yaml:"additional"`
	}{Start: 1, End: 1}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	m := modules.NewRotationOverLifetime(p.Start, p.End, p.Additional)
	m.Ease = curve.ParseEase(p.Ease)
	return m, nil
}

func buildNoise(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	p := struct {
		Frequency   float64 `yaml:"frequency"`
		ScrollSpeed float64 `yaml:"scrollSpeed"`
		Position    float64 `yaml:"position"`
		Velocity    float64 `yaml:"velocity"`
		Rotation    float64 `yaml:"rotation"`
		Scale       float64 `yaml:"scale"`
	}{Frequency: 0.01, ScrollSpeed: 1}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	m := modules.NewNoise(p.Frequency, p.Velocity)
	m.ScrollSpeed = p.ScrollSpeed
	m.Position = p.Position
	m.Rotation = p.Rotation
	m.Scale = p.Scale
	return m, nil
}

func buildTextureSheet(block *particle.ModuleBlock, env ModuleEnv) (modules.Module, error) {
	p := struct {
		Frames    int     `yaml:"frames"`
		Mode      string  `yaml:"mode"`
		Cycles    float64 `yaml:"cycles"`
		FPS       float64 `yaml:"fps"`
		MaxSpeed  float64 `yaml:"maxSpeed"`
		Loop      string  `yaml:"loop"`
		MaxCycles int     `yaml:"maxCycles"`
	}{Frames: env.Frames, Cycles: 1}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	m := modules.NewTextureSheet(p.Frames)
	m.Mode = modules.ParseFrameMode(p.Mode)
	m.Cycles = p.Cycles
	m.FPS = p.FPS
	m.MaxSpeed = p.MaxSpeed
	m.Loop = modules.ParseLoopMode(p.Loop)
	m.MaxCycles = p.MaxCycles
	return m, nil
}

// collisionParams are shared by both collision module blocks.
type collisionParams struct {
	Behavior     string  `yaml:"behavior"`
	BounceFactor float64 `yaml:"bounceFactor"`
	MinKillSpeed float64 `yaml:"minKillSpeed"`
	LifetimeLoss float64 `yaml:"lifetimeLoss"`
}

func buildBoundaryCollision(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	p := struct {
		collisionParams `yaml:",inline"`
		Shape           string  `yaml:"shape"`
		Width           float64 `yaml:"width"`
		Height          float64 `yaml:"height"`
		Radius          float64 `yaml:"radius"`
	}{collisionParams: collisionParams{BounceFactor: 1}}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	behavior := modules.ParseBehavior(p.Behavior)
	if behavior == modules.BehaviorStop {
		return nil, fmt.Errorf("boundaryCollision does not support behavior %q", p.Behavior)
	}
	var m *modules.BoundaryCollision
	switch p.Shape {
	case "circle":
		m = modules.NewBoundaryCircle(p.Radius, behavior)
	case "", "rect", "rectangle", "box":
		m = modules.NewBoundaryRect(p.Width, p.Height, behavior)
	default:
		return nil, fmt.Errorf("boundaryCollision: unknown shape %q", p.Shape)
	}
	m.BounceFactor = p.BounceFactor
	m.MinKillSpeed = p.MinKillSpeed
	m.LifetimeLoss = p.LifetimeLoss
	return m, nil
}

func buildGeometryCollision(block *particle.ModuleBlock, env ModuleEnv) (modules.Module, error) {
	p := struct {
		collisionParams `yaml:",inline"`
		Mode            string  `yaml:"mode"`
		Mask            uint32  `yaml:"mask"`
		Radius          float64 `yaml:"radius"`
		Interval        int     `yaml:"interval"`
	}{collisionParams: collisionParams{BounceFactor: 1}}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	behavior := modules.ParseBehavior(p.Behavior)
	if behavior == modules.BehaviorWrap {
		return nil, fmt.Errorf("geometryCollision does not support behavior %q", p.Behavior)
	}
	m := modules.NewGeometryCollision(env.Query, p.Radius)
	if p.Mode == "raycast" {
		m.Mode = modules.CollisionRaycast
	}
	m.Mask = p.Mask
	m.Interval = p.Interval
	m.Behavior = behavior
	m.BounceFactor = p.BounceFactor
	m.MinKillSpeed = p.MinKillSpeed
	m.LifetimeLoss = p.LifetimeLoss
	return m, nil
}

func buildForceField(block *particle.ModuleBlock, _ ModuleEnv) (modules.Module, error) {
	var p struct {
		Fields []struct {
			Kind       string  `yaml:"kind"`
			Strength   float64 `yaml:"strength"`
			Direction  float64 `yaml:"direction"`
			X          float64 `yaml:"x"`
			Y          float64 `yaml:"y"`
			Radius     float64 `yaml:"radius"`
			Falloff    string  `yaml:"falloff"`
			InwardPull float64 `yaml:"inwardPull"`
			Frequency  float64 `yaml:"frequency"`
		} `yaml:"fields"`
	}
	if err := block.Decode(&p); err != nil {
		return nil, err
	}
	m := modules.NewForceField()
	for i, f := range p.Fields {
		kind, ok := modules.ParseFieldKind(f.Kind)
		if !ok {
			return nil, fmt.Errorf("forceField: field %d has unknown kind %q", i, f.Kind)
		}
		strength := f.Strength
		if f.Kind == "repulsor" && strength > 0 {
			strength = -strength
		}
		m.Add(modules.Field{
			Kind:       kind,
			Strength:   strength,
			Direction:  f.Direction,
			X:          f.X,
			Y:          f.Y,
			Radius:     f.Radius,
			Falloff:    modules.ParseFalloff(f.Falloff),
			InwardPull: f.InwardPull,
			Frequency:  f.Frequency,
		})
	}
	return m, nil
}
