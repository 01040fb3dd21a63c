package game

import (
	"fmt"
	"log"
	"regexp"
	"sort"

	"github.com/decker502/particlefx/pkg/systems"
	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// PresetManager 覆盖预设管理器
// 按特效名保存运行时覆盖（emissionRate、gravity 等），供查看器在重启后恢复调参结果
type PresetManager struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
	presets      map[string]systems.Overrides
}

// 存储路径常量
const (
	presetsObject  = "presets"
	indexObject    = "presets_index"
	indexProperty  = "names"
	presetsVersion = 1
)

var presetNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// presetFile is the persisted form of one preset.
type presetFile struct {
	Version   int               `yaml:"version"`
	Effect    string            `yaml:"effect"`
	Overrides systems.Overrides `yaml:"overrides"`
}

// NewPresetManager 创建预设管理器并加载已保存的预设
//
// gdataManager 可为 nil（降级模式，仅内存保存）。加载失败不影响创建。
func NewPresetManager(gdataManager *gdata.Manager) *PresetManager {
	pm := &PresetManager{
		gdataManager: gdataManager,
		presets:      make(map[string]systems.Overrides),
	}
	if err := pm.Load(); err != nil {
		log.Printf("[PresetManager] Warning: Failed to load presets: %v", err)
	}
	return pm
}

// Load 从 gdata 重新加载全部预设
//
// 单个预设损坏时跳过并记录日志，其余预设照常加载
func (pm *PresetManager) Load() error {
	pm.presets = make(map[string]systems.Overrides)
	if pm.gdataManager == nil {
		return nil
	}
	if !pm.gdataManager.ObjectPropExists(indexObject, indexProperty) {
		return nil
	}

	data, err := pm.gdataManager.LoadObjectProp(indexObject, indexProperty)
	if err != nil {
		return fmt.Errorf("failed to load preset index: %w", err)
	}
	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("failed to unmarshal preset index: %w", err)
	}

	for _, name := range names {
		o, err := pm.loadOne(name)
		if err != nil {
			log.Printf("[PresetManager] Warning: skipping preset %q: %v", name, err)
			continue
		}
		pm.presets[name] = o
	}
	log.Printf("[PresetManager] Loaded %d presets", len(pm.presets))
	return nil
}

func (pm *PresetManager) loadOne(name string) (systems.Overrides, error) {
	if !pm.gdataManager.ObjectPropExists(presetsObject, name) {
		return systems.Overrides{}, fmt.Errorf("missing data")
	}
	data, err := pm.gdataManager.LoadObjectProp(presetsObject, name)
	if err != nil {
		return systems.Overrides{}, fmt.Errorf("failed to load: %w", err)
	}
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return systems.Overrides{}, fmt.Errorf("failed to unmarshal: %w", err)
	}
	if f.Version > presetsVersion {
		return systems.Overrides{}, fmt.Errorf("unsupported version %d", f.Version)
	}
	return f.Overrides, nil
}

// Save 保存一个特效的覆盖预设（内存 + gdata）
func (pm *PresetManager) Save(effect string, o systems.Overrides) error {
	if !presetNamePattern.MatchString(effect) {
		return fmt.Errorf("invalid preset name %q", effect)
	}
	pm.presets[effect] = o.Clone()
	if pm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(presetFile{Version: presetsVersion, Effect: effect, Overrides: o})
	if err != nil {
		return fmt.Errorf("failed to marshal preset %q: %w", effect, err)
	}
	if err := pm.gdataManager.SaveObjectProp(presetsObject, effect, data); err != nil {
		return fmt.Errorf("failed to save preset %q: %w", effect, err)
	}
	if err := pm.saveIndex(); err != nil {
		return err
	}
	log.Printf("[PresetManager] Preset %q saved", effect)
	return nil
}

// Delete 删除预设：写入空数据并从索引中移除
func (pm *PresetManager) Delete(effect string) error {
	if _, ok := pm.presets[effect]; !ok {
		return nil
	}
	delete(pm.presets, effect)
	if pm.gdataManager == nil {
		return nil
	}
	if err := pm.gdataManager.SaveObjectProp(presetsObject, effect, []byte{}); err != nil {
		return fmt.Errorf("failed to clear preset %q: %w", effect, err)
	}
	return pm.saveIndex()
}

func (pm *PresetManager) saveIndex() error {
	data, err := yaml.Marshal(pm.Names())
	if err != nil {
		return fmt.Errorf("failed to marshal preset index: %w", err)
	}
	if err := pm.gdataManager.SaveObjectProp(indexObject, indexProperty, data); err != nil {
		return fmt.Errorf("failed to save preset index: %w", err)
	}
	return nil
}

// Get 返回特效的预设副本
func (pm *PresetManager) Get(effect string) (systems.Overrides, bool) {
	o, ok := pm.presets[effect]
	if !ok {
		return systems.Overrides{}, false
	}
	return o.Clone(), true
}

// Names 返回所有预设名（已排序）
func (pm *PresetManager) Names() []string {
	names := make([]string, 0, len(pm.presets))
	for name := range pm.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply 将与粒子系统同名的预设应用到该系统，返回是否找到预设
func (pm *PresetManager) Apply(ps *systems.ParticleSystem) bool {
	o, ok := pm.Get(ps.Name())
	if !ok {
		return false
	}
	ps.ClearOverrides()
	ps.SetOverrides(o)
	return true
}

// Capture 以粒子系统当前的覆盖保存预设
func (pm *PresetManager) Capture(ps *systems.ParticleSystem) error {
	return pm.Save(ps.Name(), ps.Overrides())
}
