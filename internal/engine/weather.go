package engine

import (
	"math/rand"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

// Weather kernel tuning.
const (
	weatherInterval = 60 * time.Millisecond

	weatherDayBrightness   = 160
	weatherNightBrightness = 60

	// Pixels at the end of the strip reserved for the temperature indicator.
	tempIndicatorSize = 4

	rainDecay    = 0.82
	snowDecay    = 0.85
	clearDecay   = 0.93
	thunderFlash = 60 // one flash per N advances on average
	clearSpark   = 40
	cloudBumps   = 3
)

var (
	clearDayColor   = strip.Color{R: 255, G: 180, B: 40}
	clearNightColor = strip.Color{R: 40, G: 40, B: 120}
	cloudBaseColor  = strip.Color{R: 60, G: 60, B: 70}
	rainDropColor   = strip.Color{R: 30, G: 90, B: 255}
	drizzleColor    = strip.Color{R: 60, G: 120, B: 200}
	snowDropColor   = strip.Color{R: 220, G: 230, B: 255}
	thunderDimColor = strip.Color{R: 25, G: 25, B: 50}
	fallbackColor   = strip.Color{R: 40, G: 40, B: 40}
)

// tempBands maps an upper temperature bound (°C, exclusive) to the indicator
// color. Evaluated in order; the last entry catches everything hotter.
var tempBands = []struct {
	below float64
	color strip.Color
}{
	{0, strip.Color{R: 180, G: 220, B: 255}},
	{10, strip.Color{R: 0, G: 80, B: 255}},
	{18, strip.Color{R: 0, G: 200, B: 200}},
	{24, strip.Color{R: 0, G: 220, B: 60}},
	{30, strip.Color{R: 255, G: 140, B: 0}},
	{1 << 10, strip.Color{R: 255, G: 30, B: 0}},
}

// TemperatureColor returns the indicator color for a temperature in °C.
func TemperatureColor(tempC float64) strip.Color {
	for _, band := range tempBands {
		if tempC < band.below {
			return band.color
		}
	}
	return tempBands[len(tempBands)-1].color
}

// weatherCursor renders the current weather condition. It branches into a
// condition-specific sub-kernel each advance and always overlays the fixed
// temperature indicator segment.
type weatherCursor struct {
	gate Gate
	rng  *rand.Rand
}

func newWeatherCursor() weatherCursor {
	return weatherCursor{
		gate: NewGate(weatherInterval),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *weatherCursor) render(s Strip, report WeatherReport, day bool, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}

	if day {
		s.SetBrightness(weatherDayBrightness)
	} else {
		s.SetBrightness(weatherNightBrightness)
	}

	switch report.Condition {
	case ConditionClear:
		c.renderClear(s, day)
	case ConditionClouds:
		c.renderClouds(s)
	case ConditionRain:
		c.renderTrail(s, rainDropColor, rainDecay)
	case ConditionDrizzle:
		c.renderTrail(s, drizzleColor, rainDecay)
	case ConditionSnow:
		c.renderTrail(s, snowDropColor, snowDecay)
	case ConditionThunderstorm:
		c.renderThunder(s)
	default:
		// Unknown, Error and Offline all degrade to a dim neutral fill.
		s.Fill(fallbackColor)
	}

	c.renderTemperature(s, report.TempC)
}

// animatedLen returns the number of pixels available to the condition
// animation, excluding the temperature indicator segment.
func animatedLen(s Strip) int {
	n := s.Len() - tempIndicatorSize
	if n < 0 {
		return 0
	}
	return n
}

func (c *weatherCursor) renderClear(s Strip, day bool) {
	base := clearDayColor
	if !day {
		base = clearNightColor
	}
	n := animatedLen(s)
	for i := 0; i < n; i++ {
		p := FadeColor(s.Pixel(i), clearDecay)
		// Decayed sparks settle back onto the base color.
		if p.R < base.R && p.G < base.G && p.B < base.B {
			p = base
		}
		s.SetPixel(i, p)
	}
	if n > 0 && c.rng.Intn(clearSpark) == 0 {
		s.SetPixel(c.rng.Intn(n), strip.Color{R: 255, G: 255, B: 255})
	}
}

func (c *weatherCursor) renderClouds(s Strip) {
	n := animatedLen(s)
	for i := 0; i < n; i++ {
		s.SetPixel(i, FadeColor(s.Pixel(i), 0.96))
	}
	// Slow patchy brightening: nudge a few random pixels above the base.
	for b := 0; b < cloudBumps && n > 0; b++ {
		i := c.rng.Intn(n)
		p := s.Pixel(i)
		s.SetPixel(i, strip.Color{
			R: clampByte(int(p.R) + 20),
			G: clampByte(int(p.G) + 20),
			B: clampByte(int(p.B) + 25),
		})
	}
	// Keep the floor at the cloud base so the strip never goes fully dark.
	for i := 0; i < n; i++ {
		p := s.Pixel(i)
		if p.R < cloudBaseColor.R {
			s.SetPixel(i, cloudBaseColor)
		}
	}
}

// renderTrail fades the whole strip and lights one new bright drop per
// advance. Shared by rain, drizzle and snow.
func (c *weatherCursor) renderTrail(s Strip, drop strip.Color, decay float64) {
	n := animatedLen(s)
	for i := 0; i < n; i++ {
		s.SetPixel(i, FadeColor(s.Pixel(i), decay))
	}
	if n > 0 {
		s.SetPixel(c.rng.Intn(n), drop)
	}
}

func (c *weatherCursor) renderThunder(s Strip) {
	n := animatedLen(s)
	if n > 0 && c.rng.Intn(thunderFlash) == 0 {
		for i := 0; i < n; i++ {
			s.SetPixel(i, strip.Color{R: 255, G: 255, B: 255})
		}
		return
	}
	for i := 0; i < n; i++ {
		s.SetPixel(i, thunderDimColor)
	}
}

func (c *weatherCursor) renderTemperature(s Strip, tempC float64) {
	color := TemperatureColor(tempC)
	n := s.Len()
	for i := n - tempIndicatorSize; i < n; i++ {
		if i >= 0 {
			s.SetPixel(i, color)
		}
	}
}
