package engine

import (
	"math/rand"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

// Baseline kernel tuning. Intervals are each kernel's own minimum advance
// cadence; calling a kernel more often than its gate is a no-op, which is
// what makes suppression and resumption seamless.
const (
	breathInterval = 30 * time.Millisecond
	breathLow      = 10
	breathHigh     = 200
	breathStep     = 2

	// The "favorite colors" hue window: a blue-through-pink band of the
	// 0-255 hue wheel.
	favoriteHueBase = 160
	favoriteHueSpan = 70

	sparkleInterval = 40 * time.Millisecond
	sparkleDecay    = 0.90
	sparkleChance   = 8 // one relight per N advances on average

	nightInterval   = time.Second
	nightBrightness = 40

	staticInterval = time.Second

	pulseInterval = 60 * time.Millisecond
)

var (
	nightColor = strip.Color{R: 255, G: 120, B: 30}

	pulseColorA = strip.Color{R: 255, G: 30, B: 90}
	pulseColorB = strip.Color{R: 60, G: 120, B: 255}
)

// breathCursor drives a triangle-wave brightness pulse under a slowly moving
// rainbow constrained to the favorite-colors hue window.
type breathCursor struct {
	gate  Gate
	level int
	step  int
	phase uint8
}

func newBreathCursor() breathCursor {
	return breathCursor{
		gate: NewGate(breathInterval),
		step: breathStep,
	}
}

// reset restarts the brightness ramp from dark with a positive step, as on
// every entry into breath mode.
func (c *breathCursor) reset() {
	c.level = 0
	c.step = breathStep
	c.gate.Reset()
}

func (c *breathCursor) render(s Strip, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}

	c.level += c.step
	if c.level >= breathHigh {
		c.level = breathHigh
		c.step = -breathStep
	} else if c.level <= breathLow {
		c.level = breathLow
		c.step = breathStep
	}
	c.phase++

	s.SetBrightness(clampByte(c.level))
	n := s.Len()
	for i := 0; i < n; i++ {
		hue := favoriteHueBase + (int(c.phase)+i*3)%favoriteHueSpan
		s.SetPixel(i, HueColor(uint8(hue)))
	}
}

// sparkleCursor decays the strip toward black and occasionally relights one
// random pixel at a random hue.
type sparkleCursor struct {
	gate Gate
	rng  *rand.Rand
}

func newSparkleCursor() sparkleCursor {
	return sparkleCursor{
		gate: NewGate(sparkleInterval),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *sparkleCursor) render(s Strip, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}

	n := s.Len()
	for i := 0; i < n; i++ {
		s.SetPixel(i, FadeColor(s.Pixel(i), sparkleDecay))
	}
	if c.rng.Intn(sparkleChance) == 0 {
		s.SetPixel(c.rng.Intn(n), HueColor(uint8(c.rng.Intn(256))))
	}
	s.SetBrightness(255)
}

// nightCursor fills the strip with a fixed warm low color. The gate only
// exists to avoid redundant buffer writes.
type nightCursor struct {
	gate Gate
}

func newNightCursor() nightCursor {
	return nightCursor{gate: NewGate(nightInterval)}
}

func (c *nightCursor) render(s Strip, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}
	s.SetBrightness(nightBrightness)
	s.Fill(nightColor)
}

// staticCursor re-pushes the color set synchronously at command time at the
// stored static brightness. No continuous animation.
type staticCursor struct {
	gate Gate
}

func newStaticCursor() staticCursor {
	return staticCursor{gate: NewGate(staticInterval)}
}

func (c *staticCursor) render(s Strip, st *State, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}
	s.SetBrightness(st.StaticBrightness)
	s.Fill(st.StaticColor)
}

// pulseCursor bounces a single lit pixel back and forth along the strip,
// alternating between two colors each half-cycle.
type pulseCursor struct {
	gate Gate
	pos  int
	dir  int
	alt  bool
}

func newPulseCursor() pulseCursor {
	return pulseCursor{
		gate: NewGate(pulseInterval),
		dir:  1,
	}
}

func (c *pulseCursor) reset() {
	c.pos = 0
	c.dir = 1
	c.alt = false
	c.gate.Reset()
}

func (c *pulseCursor) render(s Strip, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}

	n := s.Len()
	if n == 0 {
		return
	}

	c.pos += c.dir
	if c.pos >= n-1 {
		c.pos = n - 1
		c.dir = -1
		c.alt = !c.alt
	} else if c.pos <= 0 {
		c.pos = 0
		c.dir = 1
		c.alt = !c.alt
	}

	color := pulseColorA
	if c.alt {
		color = pulseColorB
	}
	s.SetBrightness(255)
	s.Fill(strip.Black)
	s.SetPixel(c.pos, color)
}
