// Package curve evaluates keyframe curves and easing functions used by
// particle modules to animate values over a particle's normalized age.
package curve

import (
	"math"

	"github.com/tanema/gween/ease"
)

// Keyframe represents a single keyframe in an animation curve.
type Keyframe struct {
	Time  float64 `yaml:"time"`  // Normalized time (0-1)
	Value float64 `yaml:"value"` // Value at this keyframe
}

// Ease selects the easing applied between two curve points.
type Ease int

const (
	EaseLinear Ease = iota
	EaseIn
	EaseOut
	EaseInOut
)

// easeFuncs maps each mode onto its gween tween function.
var easeFuncs = [...]ease.TweenFunc{
	EaseLinear: ease.Linear,
	EaseIn:     ease.InQuad,
	EaseOut:    ease.OutQuad,
	EaseInOut:  ease.InOutQuad,
}

// ParseEase maps interpolation keywords from effect files onto an Ease.
// Unknown keywords fall back to linear.
func ParseEase(name string) Ease {
	switch name {
	case "EaseIn", "easeIn", "ease-in":
		return EaseIn
	case "EaseOut", "easeOut", "ease-out":
		return EaseOut
	case "EaseInOut", "easeInOut", "ease-in-out", "FastInOutWeak":
		return EaseInOut
	}
	return EaseLinear
}

// String returns the keyword ParseEase accepts for e.
func (e Ease) String() string {
	switch e {
	case EaseIn:
		return "EaseIn"
	case EaseOut:
		return "EaseOut"
	case EaseInOut:
		return "EaseInOut"
	}
	return "Linear"
}

// Apply eases t (clamped to [0, 1]). The endpoints map to exactly 0 and 1.
// Interior values go through gween's float32 easing functions, so they match
// the exact quadratic forms (t², 1-(1-t)²) only to about 1e-7.
func (e Ease) Apply(t float64) float64 {
	t = Clamp01(t)
	if t == 0 || t == 1 {
		return t
	}
	if e < 0 || int(e) >= len(easeFuncs) {
		e = EaseLinear
	}
	if e == EaseLinear {
		return t
	}
	return float64(easeFuncs[e](float32(t), 0, 1, 1))
}

// Lerp interpolates between a and b. Written so that t=0 yields exactly a
// and t=1 yields exactly b.
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// Clamp01 clamps t to [0, 1]. NaN maps to 0.
func Clamp01(t float64) float64 {
	if t > 0 {
		return math.Min(t, 1)
	}
	return 0
}

// Evaluate calculates the value at normalized time t using keyframes
// sorted by Time. An empty curve yields base.
//
// Before the first keyframe the first value holds; after the last keyframe
// the last value holds.
func Evaluate(keys []Keyframe, t float64, e Ease, base float64) float64 {
	if len(keys) == 0 {
		return base
	}
	if len(keys) == 1 {
		return keys[0].Value
	}

	t = Clamp01(t)
	if t <= keys[0].Time {
		return keys[0].Value
	}

	for i := 0; i < len(keys)-1; i++ {
		k0 := keys[i]
		k1 := keys[i+1]
		if t > k1.Time {
			continue
		}
		duration := k1.Time - k0.Time
		if duration <= 0 {
			return k1.Value
		}
		ratio := (t - k0.Time) / duration
		return Lerp(k0.Value, k1.Value, e.Apply(ratio))
	}

	return keys[len(keys)-1].Value
}

// Curve is a scalar animation over normalized age: either an eased ramp
// from Start to End or, when Keys is non-empty, a keyframe curve.
type Curve struct {
	Ease  Ease       `yaml:"-"`
	Start float64    `yaml:"start"`
	End   float64    `yaml:"end"`
	Keys  []Keyframe `yaml:"keys,omitempty"`
}

// Constant returns a curve that always yields v.
func Constant(v float64) Curve {
	return Curve{Start: v, End: v}
}

// Ramp returns an eased curve from start to end.
func Ramp(start, end float64, e Ease) Curve {
	return Curve{Ease: e, Start: start, End: end}
}

// Value evaluates the curve at normalized time t.
func (c Curve) Value(t float64) float64 {
	if len(c.Keys) > 0 {
		return Evaluate(c.Keys, t, c.Ease, c.Start)
	}
	return Lerp(c.Start, c.End, c.Ease.Apply(t))
}
