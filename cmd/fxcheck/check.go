package main

import (
	"fmt"
	"io"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/render"
	"github.com/decker502/particlefx/pkg/systems"
)

// report is the outcome of checking one effect.
type report struct {
	id       string
	asset    *particle.EffectAsset
	err      error    // Load or validation failure
	modules  []string // Per-block build failures
	warnings []string
}

func (r report) ok() bool {
	return r.err == nil && len(r.modules) == 0
}

// checkEffect loads id from src and builds each of its module blocks.
func checkEffect(src particle.Source, textures *render.TextureSet, id string) report {
	r := report{id: id}
	asset, err := src.Load(id)
	if err != nil {
		r.err = err
		return r
	}
	r.asset = asset

	env := systems.ModuleEnv{Frames: asset.SheetColumns * asset.SheetRows}
	for i := range asset.Modules {
		block := &asset.Modules[i]
		if _, err := systems.BuildModule(block, env); err != nil {
			r.modules = append(r.modules, fmt.Sprintf("第 %d 个模块 (%s): %v", i+1, block.Type, err))
		}
	}

	if asset.Texture != "" && !textures.Has(asset.Texture) {
		r.warnings = append(r.warnings, fmt.Sprintf("未知贴图 %q，将使用默认方块", asset.Texture))
	}
	if asset.EmissionRate == 0 && asset.BurstCount == 0 && len(asset.Bursts) == 0 {
		r.warnings = append(r.warnings, "没有任何发射配置（emissionRate、burstCount、bursts 均为空）")
	}
	return r
}

// checkAll checks every id and writes a report to w. It returns the number
// of failed effects.
func checkAll(w io.Writer, src particle.Source, ids []string) int {
	textures := render.NewTextureSet(0)
	failed := 0
	for _, id := range ids {
		r := checkEffect(src, textures, id)
		switch {
		case r.err != nil:
			fmt.Fprintf(w, "❌ %s: %v\n", id, r.err)
		case len(r.modules) > 0:
			fmt.Fprintf(w, "❌ %s: %d 个模块无法构建\n", id, len(r.modules))
			for _, m := range r.modules {
				fmt.Fprintf(w, "   - %s\n", m)
			}
		default:
			fmt.Fprintf(w, "✅ %s (max=%d, modules=%d)\n", id, r.asset.MaxParticles, len(r.asset.Modules))
		}
		for _, warn := range r.warnings {
			fmt.Fprintf(w, "⚠️  %s: %s\n", id, warn)
		}
		if !r.ok() {
			failed++
		}
	}
	return failed
}
