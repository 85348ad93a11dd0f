// Package choropleth renders SVG choropleth maps from joined census
// datasets: one shaded path per municipal boundary, colored along a
// two-endpoint linear scale.
package choropleth

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Color is an opaque sRGB color.
type Color struct {
	R, G, B uint8
}

// ParseHex parses a "#rrggbb" (or "rrggbb") color.
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, eris.Errorf("choropleth: invalid hex color %q", s)
	}
	var c Color
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return Color{}, eris.Wrapf(err, "choropleth: parse hex color %q", s)
	}
	return c, nil
}

// Hex returns the "#rrggbb" form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func lerp(a, b Color, t float64) Color {
	t = math.Max(0, math.Min(1, t))
	return Color{
		R: uint8(math.Round(float64(a.R) + t*(float64(b.R)-float64(a.R)))),
		G: uint8(math.Round(float64(a.G) + t*(float64(b.G)-float64(a.G)))),
		B: uint8(math.Round(float64(a.B) + t*(float64(b.B)-float64(a.B)))),
	}
}

// Scale maps values in [Min, Max] onto the Low→High color ramp.
type Scale struct {
	Min, Max  float64
	Low, High Color
}

// NewScale builds a scale whose domain spans the given values.
func NewScale(values map[int64]float64, low, high Color) Scale {
	s := Scale{Min: math.Inf(1), Max: math.Inf(-1), Low: low, High: high}
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if len(values) == 0 {
		s.Min, s.Max = 0, 0
	}
	return s
}

// ColorAt returns the ramp color for a value, clamped to the domain.
func (s Scale) ColorAt(v float64) Color {
	if s.Max <= s.Min {
		return s.Low
	}
	return lerp(s.Low, s.High, (v-s.Min)/(s.Max-s.Min))
}

// Stop is one legend tick: a domain value and its ramp color.
type Stop struct {
	Value float64
	Color Color
}

// Stops returns n evenly spaced legend ticks across the domain.
func (s Scale) Stops(n int) []Stop {
	if n < 2 {
		n = 2
	}
	stops := make([]Stop, n)
	for i := range stops {
		t := float64(i) / float64(n-1)
		v := s.Min + t*(s.Max-s.Min)
		stops[i] = Stop{Value: v, Color: s.ColorAt(v)}
	}
	return stops
}
