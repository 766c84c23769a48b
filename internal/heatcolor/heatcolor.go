// Package heatcolor maps a normalized heat value onto the ribbon's
// stable-to-drift color ramp.
package heatcolor

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Palette is a two-stop linear ramp. Stable is drawn at heat 0 and Drift at
// heat 1.
type Palette struct {
	Stable color.RGBA
	Drift  color.RGBA
}

// Default returns the green-to-red ramp used when nothing is configured.
func Default() Palette {
	return Palette{
		Stable: color.RGBA{R: 34, G: 197, B: 94, A: 255},
		Drift:  color.RGBA{R: 220, G: 38, B: 38, A: 255},
	}
}

// At interpolates each channel independently and rounds to the nearest
// integer. t is clamped to [0,1]; NaN is treated as 0. The result is opaque.
func (p Palette) At(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{
		R: lerp(p.Stable.R, p.Drift.R, t),
		G: lerp(p.Stable.G, p.Drift.G, t),
		B: lerp(p.Stable.B, p.Drift.B, t),
		A: 255,
	}
}

func lerp(low, high uint8, t float64) uint8 {
	v := math.Round(float64(low) + (float64(high)-float64(low))*t)
	return uint8(math.Max(0, math.Min(255, v)))
}

// ParseHex parses "#rrggbb" or "rrggbb" (also the 3-digit short form).
func ParseHex(value string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #rrggbb", value)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// FromHex builds a palette from two hex strings, falling back to the default
// stop for any empty value.
func FromHex(stable, drift string) (Palette, error) {
	p := Default()
	if strings.TrimSpace(stable) != "" {
		c, err := ParseHex(stable)
		if err != nil {
			return Palette{}, fmt.Errorf("stable color: %w", err)
		}
		p.Stable = c
	}
	if strings.TrimSpace(drift) != "" {
		c, err := ParseHex(drift)
		if err != nil {
			return Palette{}, fmt.Errorf("drift color: %w", err)
		}
		p.Drift = c
	}
	return p, nil
}
