package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ViewerConfig 特效查看器配置
//
// 描述窗口、特效来源、场景中的发射器摆放以及碰撞障碍物。
//
// 配置文件位置: data/viewer.yaml（可选，缺省时使用 DefaultViewerConfig）
type ViewerConfig struct {
	Window WindowConfig `yaml:"window"`

	// EffectsDir 特效 YAML 目录，为空时使用内嵌的示例特效
	EffectsDir string `yaml:"effectsDir"`

	// Background 背景色
	Background RGB `yaml:"background"`

	// Emitters 启动时放置的发射器
	Emitters []EmitterPlacement `yaml:"emitters"`

	// Obstacles 几何碰撞使用的障碍物（轴对齐矩形）
	Obstacles []Obstacle `yaml:"obstacles"`

	// Presets 是否通过 gdata 持久化覆盖预设
	Presets bool `yaml:"presets"`

	// ShowStats 是否显示粒子统计
	ShowStats bool `yaml:"showStats"`
}

// WindowConfig 窗口设置
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	TPS    int    `yaml:"tps"` // Simulation steps per second
}

// RGB 8 位颜色
type RGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// EmitterPlacement 场景中的一个发射器
type EmitterPlacement struct {
	Effect   string  `yaml:"effect"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation float64 `yaml:"rotation"` // Degrees
	Scale    float64 `yaml:"scale"`    // 0 = 1
	Layer    *int    `yaml:"layer,omitempty"`
	Order    *int    `yaml:"order,omitempty"`
}

// Obstacle 障碍物矩形
type Obstacle struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Layers uint32  `yaml:"layers"` // 0 = layer 1
}

// DefaultViewerConfig 返回默认查看器配置：一个火花发射器和一块地面
func DefaultViewerConfig() *ViewerConfig {
	return &ViewerConfig{
		Window: WindowConfig{
			Width:  960,
			Height: 640,
			Title:  "particlefx viewer",
			TPS:    60,
		},
		Background: RGB{R: 16, G: 16, B: 24},
		Emitters: []EmitterPlacement{
			{Effect: "spark", X: 480, Y: 320},
		},
		Obstacles: []Obstacle{
			{X: 0, Y: 600, Width: 960, Height: 40, Layers: 1},
		},
		ShowStats: true,
	}
}

// LoadViewerConfig 加载查看器配置
//
// 文件中缺失的字段保留 DefaultViewerConfig 的值。
//
// 参数:
//   - path: 配置文件路径
//
// 返回:
//   - *ViewerConfig: 加载成功后的配置
//   - error: 读取、解析或校验失败时返回错误
func LoadViewerConfig(path string) (*ViewerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read viewer config: %w", err)
	}
	return ParseViewerConfig(data)
}

// ParseViewerConfig 解析 YAML 格式的查看器配置
func ParseViewerConfig(data []byte) (*ViewerConfig, error) {
	// 显式给出的列表整体替换默认值
	config := DefaultViewerConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse viewer config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid viewer config: %w", err)
	}
	return config, nil
}

// Validate 验证配置有效性
func (c *ViewerConfig) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.TPS <= 0 {
		return fmt.Errorf("tps must be positive, got %d", c.Window.TPS)
	}
	for i, e := range c.Emitters {
		if e.Effect == "" {
			return fmt.Errorf("emitter %d: missing effect", i)
		}
		if e.Scale < 0 {
			return fmt.Errorf("emitter %d: negative scale %.2f", i, e.Scale)
		}
	}
	for i, o := range c.Obstacles {
		if o.Width <= 0 || o.Height <= 0 {
			return fmt.Errorf("obstacle %d: size must be positive, got %.1fx%.1f", i, o.Width, o.Height)
		}
	}
	return nil
}

// ScaleOrOne 返回发射器缩放，0 视为 1
func (e EmitterPlacement) ScaleOrOne() float64 {
	if e.Scale == 0 {
		return 1
	}
	return e.Scale
}

// LayersOrDefault 返回障碍物层掩码，0 视为第 1 层
func (o Obstacle) LayersOrDefault() uint32 {
	if o.Layers == 0 {
		return 1
	}
	return o.Layers
}
