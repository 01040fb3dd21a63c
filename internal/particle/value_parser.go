package particle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decker502/particlefx/pkg/components"
	"github.com/decker502/particlefx/pkg/curve"
)

// Keyframe is a curve point parsed from a value string.
type Keyframe = curve.Keyframe

// interpolationKeywords are the easing names a keyframe string may carry.
var interpolationKeywords = []string{"Linear", "EaseInOut", "EaseIn", "EaseOut", "FastInOutWeak"}

// Value is a numeric asset field written in the value-string format.
//
// Supported forms:
//   - Fixed value: "1500" → Min=Max=1500
//   - Range: "[0.7 0.9]" → Min=0.7, Max=0.9; "[2]" is a fixed value
//   - Keyframes: "0,2 0.5,4 1,0" → time,value pairs, optionally with an
//     interpolation keyword: "Linear 0,1 1,0"
//   - Percent keyframes: ".9,70 0" → 0.9 at t=0 falling to 0 at t=0.7
//   - Range plus keyframes: "[-720 720] 0,40" → spawn value drawn from the
//     range, then animated towards the keyframes (times in percent)
type Value struct {
	Min, Max float64
	Keys     []Keyframe
	Ease     curve.Ease

	raw string
	set bool
}

// FixedValue returns a set Value that always yields v.
func FixedValue(v float64) Value {
	return Value{Min: v, Max: v, raw: strconv.FormatFloat(v, 'g', -1, 64), set: true}
}

// RangeValue returns a set uniform range.
func RangeValue(lo, hi float64) Value {
	return Value{
		Min: lo, Max: hi,
		raw: fmt.Sprintf("[%s %s]", strconv.FormatFloat(lo, 'g', -1, 64), strconv.FormatFloat(hi, 'g', -1, 64)),
		set: true,
	}
}

// IsSet reports whether the field was present in the asset.
func (v Value) IsSet() bool { return v.set }

// IsCurve reports whether the value carries keyframes.
func (v Value) IsCurve() bool { return len(v.Keys) > 0 }

// String returns the source text.
func (v Value) String() string { return v.raw }

// Range returns the spawn range. A pure keyframe value yields its first key.
func (v Value) Range() components.Range {
	if len(v.Keys) > 0 && v.Min == 0 && v.Max == 0 {
		return components.Fixed(v.Keys[0].Value)
	}
	return components.Range{Min: v.Min, Max: v.Max}
}

// Curve returns the keyframe curve; a non-curve value yields a constant.
func (v Value) Curve() curve.Curve {
	if len(v.Keys) == 0 {
		return curve.Constant(v.Min)
	}
	return curve.Curve{Ease: v.Ease, Start: v.Keys[0].Value, Keys: v.Keys}
}

// UnmarshalYAML implements yaml.Unmarshaler for scalar value strings.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar, got kind %d", node.Line, node.Kind)
	}
	parsed, err := ParseValue(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.raw, nil
}

// ParseValue parses a value string. An empty string yields an unset Value.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, nil
	}
	v := Value{raw: s, set: true}

	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return Value{}, fmt.Errorf("unterminated range %q", s)
		}
		lo, hi, err := parseRange(s[1:end])
		if err != nil {
			return Value{}, fmt.Errorf("range %q: %w", s, err)
		}
		v.Min, v.Max = lo, hi

		// Range plus keyframes: "value,timePercent" pairs after the bracket.
		if rest := strings.TrimSpace(s[end+1:]); rest != "" {
			for _, part := range strings.Fields(rest) {
				val, tp, ok := splitPair(part)
				if !ok {
					return Value{}, fmt.Errorf("keyframe %q in %q", part, s)
				}
				if tp > 1 {
					tp /= 100
				}
				v.Keys = append(v.Keys, Keyframe{Time: tp, Value: val})
			}
			sortKeys(v.Keys)
		}
		return v, nil
	}

	keyword := false
	for _, kw := range interpolationKeywords {
		if strings.Contains(s, kw) {
			v.Ease = curve.ParseEase(kw)
			s = strings.TrimSpace(strings.Replace(s, kw, "", 1))
			keyword = true
			break
		}
	}

	if !strings.Contains(s, ",") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if keyword {
				// "4 Linear" is a single-key curve.
				v.Keys = []Keyframe{{Time: 0, Value: f}}
				return v, nil
			}
			v.Min, v.Max = f, f
			return v, nil
		}
		return Value{}, fmt.Errorf("invalid number %q", v.raw)
	}

	parts := strings.Fields(s)
	leading := false
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		a, b, ok := splitPair(part)
		if !ok {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return Value{}, fmt.Errorf("invalid keyframe %q in %q", part, v.raw)
			}
			// A bare leading number is the value at t=0.
			if len(v.Keys) == 0 {
				v.Keys = append(v.Keys, Keyframe{Time: 0, Value: f})
				leading = true
			}
			continue
		}
		// "initial,timePercent final"
		if b > 1 && i+1 < len(parts) && !strings.Contains(parts[i+1], ",") {
			if final, err := strconv.ParseFloat(parts[i+1], 64); err == nil {
				v.Keys = append(v.Keys, Keyframe{Time: 0, Value: a}, Keyframe{Time: b / 100, Value: final})
				i++
				continue
			}
		}
		// After a leading bare value, pairs are "value,timePercent".
		if leading && b > 1 {
			v.Keys = append(v.Keys, Keyframe{Time: b / 100, Value: a})
			continue
		}
		v.Keys = append(v.Keys, Keyframe{Time: a, Value: b})
	}
	if len(v.Keys) == 0 {
		return Value{}, fmt.Errorf("no keyframes in %q", v.raw)
	}
	sortKeys(v.Keys)
	return v, nil
}

func parseRange(body string) (float64, float64, error) {
	fields := strings.Fields(body)
	switch len(fields) {
	case 1:
		f, err := strconv.ParseFloat(fields[0], 64)
		return f, f, err
	case 2:
		lo, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, 0, err
		}
		hi, err := strconv.ParseFloat(fields[1], 64)
		return lo, hi, err
	}
	return 0, 0, fmt.Errorf("want 1 or 2 numbers, got %d", len(fields))
}

func splitPair(s string) (float64, float64, bool) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, false
	}
	x, err1 := strconv.ParseFloat(a, 64)
	y, err2 := strconv.ParseFloat(b, 64)
	return x, y, err1 == nil && err2 == nil
}

func sortKeys(keys []Keyframe) {
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
}
