package systems

import (
	"errors"
	"fmt"

	"github.com/decker502/particlefx/pkg/components"
)

// Override keys accepted by ParticleSystem.SetOverride.
const (
	OverrideEmissionRate    = "emissionRate"
	OverridePlaybackSpeed   = "playbackSpeed"
	OverrideLooping         = "looping"
	OverrideGravityX        = "gravityX"
	OverrideGravityY        = "gravityY"
	OverrideStartColor      = "startColor"
	OverrideScaleMultiplier = "scaleMultiplier"
	OverrideSpeedMultiplier = "speedMultiplier"
)

// OverrideKeys lists every override key in a stable order.
var OverrideKeys = []string{
	OverrideEmissionRate,
	OverridePlaybackSpeed,
	OverrideLooping,
	OverrideGravityX,
	OverrideGravityY,
	OverrideStartColor,
	OverrideScaleMultiplier,
	OverrideSpeedMultiplier,
}

// ErrUnknownOverride is returned for keys outside OverrideKeys.
var ErrUnknownOverride = errors.New("unknown override")

// Overrides shadow asset values at runtime. A nil field means "use the asset".
type Overrides struct {
	EmissionRate    *float64          `yaml:"emissionRate,omitempty"`
	PlaybackSpeed   *float64          `yaml:"playbackSpeed,omitempty"`
	Looping         *bool             `yaml:"looping,omitempty"`
	GravityX        *float64          `yaml:"gravityX,omitempty"`
	GravityY        *float64          `yaml:"gravityY,omitempty"`
	StartColor      *components.Color `yaml:"startColor,omitempty"`
	ScaleMultiplier *float64          `yaml:"scaleMultiplier,omitempty"`
	SpeedMultiplier *float64          `yaml:"speedMultiplier,omitempty"`
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o == Overrides{}
}

// Set assigns one override by key. Numeric keys accept any Go number type;
// looping takes a bool and startColor a components.Color.
func (o *Overrides) Set(key string, value any) error {
	switch key {
	case OverrideLooping:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("override %s: want bool, got %T", key, value)
		}
		o.Looping = &b
		return nil
	case OverrideStartColor:
		var c components.Color
		switch v := value.(type) {
		case components.Color:
			c = v
		case *components.Color:
			if v == nil {
				return fmt.Errorf("override %s: nil color", key)
			}
			c = *v
		case [4]float64:
			c = components.Color{R: v[0], G: v[1], B: v[2], A: v[3]}
		default:
			return fmt.Errorf("override %s: want components.Color, got %T", key, value)
		}
		o.StartColor = &c
		return nil
	}

	field := o.floatField(key)
	if field == nil {
		return fmt.Errorf("%w: %q", ErrUnknownOverride, key)
	}
	f, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("override %s: want number, got %T", key, value)
	}
	*field = &f
	return nil
}

// Clear removes one override by key.
func (o *Overrides) Clear(key string) error {
	switch key {
	case OverrideLooping:
		o.Looping = nil
		return nil
	case OverrideStartColor:
		o.StartColor = nil
		return nil
	}
	field := o.floatField(key)
	if field == nil {
		return fmt.Errorf("%w: %q", ErrUnknownOverride, key)
	}
	*field = nil
	return nil
}

// Merge copies every set field of other into o.
func (o *Overrides) Merge(other Overrides) {
	if other.EmissionRate != nil {
		o.EmissionRate = ptr(*other.EmissionRate)
	}
	if other.PlaybackSpeed != nil {
		o.PlaybackSpeed = ptr(*other.PlaybackSpeed)
	}
	if other.Looping != nil {
		o.Looping = ptr(*other.Looping)
	}
	if other.GravityX != nil {
		o.GravityX = ptr(*other.GravityX)
	}
	if other.GravityY != nil {
		o.GravityY = ptr(*other.GravityY)
	}
	if other.StartColor != nil {
		o.StartColor = ptr(*other.StartColor)
	}
	if other.ScaleMultiplier != nil {
		o.ScaleMultiplier = ptr(*other.ScaleMultiplier)
	}
	if other.SpeedMultiplier != nil {
		o.SpeedMultiplier = ptr(*other.SpeedMultiplier)
	}
}

// Clone returns a copy that shares no pointers with o.
func (o Overrides) Clone() Overrides {
	var c Overrides
	c.Merge(o)
	return c
}

func (o *Overrides) floatField(key string) **float64 {
	switch key {
	case OverrideEmissionRate:
		return &o.EmissionRate
	case OverridePlaybackSpeed:
		return &o.PlaybackSpeed
	case OverrideGravityX:
		return &o.GravityX
	case OverrideGravityY:
		return &o.GravityY
	case OverrideScaleMultiplier:
		return &o.ScaleMultiplier
	case OverrideSpeedMultiplier:
		return &o.SpeedMultiplier
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func ptr[T any](v T) *T {
	return &v
}
