package engine

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

// HueColor converts a position on a 0-255 hue wheel to a fully saturated,
// full-value RGB color.
func HueColor(hue uint8) strip.Color {
	seg := hue / 43 // six segments of ~43 steps each
	rem := uint16(hue-seg*43) * 6

	ramp := uint8(rem * 255 / 258)
	switch seg {
	case 0:
		return strip.Color{R: 255, G: ramp, B: 0}
	case 1:
		return strip.Color{R: 255 - ramp, G: 255, B: 0}
	case 2:
		return strip.Color{R: 0, G: 255, B: ramp}
	case 3:
		return strip.Color{R: 0, G: 255 - ramp, B: 255}
	case 4:
		return strip.Color{R: ramp, G: 0, B: 255}
	default:
		return strip.Color{R: 255, G: 0, B: 255 - ramp}
	}
}

// FadeColor attenuates each channel by factor (0-1), pulling the color
// toward black. Used by decay-trail kernels.
func FadeColor(c strip.Color, factor float64) strip.Color {
	if factor <= 0 {
		return strip.Black
	}
	if factor >= 1 {
		return c
	}
	return strip.Color{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
	}
}

// ParseHexColor parses a "#RRGGBB" string. All six digits must be hex;
// anything else is rejected.
func ParseHexColor(s string) (strip.Color, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return strip.Black, false
	}
	b, err := hex.DecodeString(s[1:])
	if err != nil {
		return strip.Black, false
	}
	return strip.Color{R: b[0], G: b[1], B: b[2]}, true
}

// HexColor formats a color as a 6-hex-digit string with a leading '#'.
func HexColor(c strip.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// clampByte clamps an integer into the 0-255 byte range.
func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
