package game

import (
	"testing"

	"github.com/decker502/particlefx/internal/particle"
	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/systems"
	"github.com/quasilyte/gdata/v2"
)

func openTestGdata(t *testing.T) *gdata.Manager {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_DATA_HOME", tempDir)

	m, err := gdata.Open(gdata.Config{AppName: "test_presets"})
	if err != nil {
		t.Fatalf("Failed to create gdata manager: %v", err)
	}
	return m
}

func f64(v float64) *float64 { return &v }

// TestPresetManager_SaveAndReload 测试预设保存后可被新的管理器读回
func TestPresetManager_SaveAndReload(t *testing.T) {
	m := openTestGdata(t)
	pm := NewPresetManager(m)

	want := systems.Overrides{
		EmissionRate: f64(42),
		GravityY:     f64(-30),
		StartColor:   &components.Color{R: 1, G: 0.5, B: 0, A: 1},
	}
	if err := pm.Save("spark", want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := pm.Save("smoke", systems.Overrides{PlaybackSpeed: f64(0.5)}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	reloaded := NewPresetManager(m)
	names := reloaded.Names()
	if len(names) != 2 || names[0] != "smoke" || names[1] != "spark" {
		t.Fatalf("Names(): got %v, want [smoke spark]", names)
	}
	got, ok := reloaded.Get("spark")
	if !ok {
		t.Fatal("Get(spark): not found")
	}
	if got.EmissionRate == nil || *got.EmissionRate != 42 {
		t.Errorf("EmissionRate: got %v, want 42", got.EmissionRate)
	}
	if got.GravityY == nil || *got.GravityY != -30 {
		t.Errorf("GravityY: got %v, want -30", got.GravityY)
	}
	if got.StartColor == nil || *got.StartColor != *want.StartColor {
		t.Errorf("StartColor: got %v, want %v", got.StartColor, want.StartColor)
	}
	if got.Looping != nil {
		t.Errorf("Looping: got %v, want unset", *got.Looping)
	}
}

// TestPresetManager_Delete 测试删除后预设不再被加载
func TestPresetManager_Delete(t *testing.T) {
	m := openTestGdata(t)
	pm := NewPresetManager(m)
	_ = pm.Save("spark", systems.Overrides{EmissionRate: f64(5)})
	_ = pm.Save("snow", systems.Overrides{EmissionRate: f64(6)})

	if err := pm.Delete("spark"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := pm.Delete("missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}

	reloaded := NewPresetManager(m)
	if _, ok := reloaded.Get("spark"); ok {
		t.Error("deleted preset was reloaded")
	}
	if _, ok := reloaded.Get("snow"); !ok {
		t.Error("remaining preset was lost")
	}
}

// TestPresetManager_NilGdata 测试 gdataManager 为 nil 时的降级模式
func TestPresetManager_NilGdata(t *testing.T) {
	pm := NewPresetManager(nil)
	if err := pm.Save("spark", systems.Overrides{EmissionRate: f64(5)}); err != nil {
		t.Fatalf("Save() in degraded mode error: %v", err)
	}
	if _, ok := pm.Get("spark"); !ok {
		t.Error("degraded mode should keep presets in memory")
	}
	if err := pm.Load(); err != nil {
		t.Errorf("Load() error: %v", err)
	}
	if len(pm.Names()) != 0 {
		t.Errorf("Load() in degraded mode should reset presets, got %v", pm.Names())
	}
}

// TestPresetManager_InvalidName 测试非法预设名被拒绝
func TestPresetManager_InvalidName(t *testing.T) {
	pm := NewPresetManager(nil)
	for _, name := range []string{"", "../escape", "with space", "a/b"} {
		if err := pm.Save(name, systems.Overrides{}); err == nil {
			t.Errorf("Save(%q): expected error", name)
		}
	}
}

// TestPresetManager_ApplyAndCapture 测试预设与粒子系统之间的往返
func TestPresetManager_ApplyAndCapture(t *testing.T) {
	pm := NewPresetManager(nil)
	ps := systems.NewParticleSystem(&particle.EffectAsset{Name: "spark", EmissionRate: 10}, systems.WithSeed(1))

	if pm.Apply(ps) {
		t.Fatal("Apply() without a preset should return false")
	}
	if err := ps.SetOverride(systems.OverrideEmissionRate, 99); err != nil {
		t.Fatalf("SetOverride() error: %v", err)
	}
	if err := pm.Capture(ps); err != nil {
		t.Fatalf("Capture() error: %v", err)
	}

	ps.ClearOverrides()
	_ = ps.SetOverride(systems.OverrideGravityY, 10)
	if !pm.Apply(ps) {
		t.Fatal("Apply() should find the captured preset")
	}
	if ps.EmissionRate() != 99 {
		t.Errorf("EmissionRate: got %v, want 99", ps.EmissionRate())
	}
	if ps.GravityY() != 0 {
		t.Errorf("GravityY: got %v, want 0 (Apply replaces overrides)", ps.GravityY())
	}
}

// TestPresetManager_GetReturnsCopy 测试 Get 返回的预设与内部状态互不影响
func TestPresetManager_GetReturnsCopy(t *testing.T) {
	pm := NewPresetManager(nil)
	_ = pm.Save("spark", systems.Overrides{EmissionRate: f64(5)})
	o, _ := pm.Get("spark")
	*o.EmissionRate = 100
	again, _ := pm.Get("spark")
	if *again.EmissionRate != 5 {
		t.Errorf("EmissionRate: got %v, want 5", *again.EmissionRate)
	}
}
