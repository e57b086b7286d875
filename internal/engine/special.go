package engine

import (
	"strings"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

// CalendarEntry is one configured special date.
type CalendarEntry struct {
	Month time.Month
	Day   int
	Name  string

	// pattern is resolved from Name once at calendar construction so the
	// render path never compares strings.
	pattern specialPattern
}

// Calendar is the fixed ordered sequence of special dates.
type Calendar []CalendarEntry

// NewCalendar resolves each entry's pattern from its name. Unrecognized
// names fall back to the first pattern.
func NewCalendar(entries []CalendarEntry) Calendar {
	cal := make(Calendar, len(entries))
	for i, e := range entries {
		e.pattern = patternForName(e.Name)
		cal[i] = e
	}
	return cal
}

// DefaultCalendar returns the built-in special dates.
func DefaultCalendar() Calendar {
	return NewCalendar([]CalendarEntry{
		{Month: time.January, Day: 1, Name: "newyear"},
		{Month: time.February, Day: 14, Name: "valentine"},
		{Month: time.October, Day: 31, Name: "halloween"},
		{Month: time.December, Day: 25, Name: "christmas"},
	})
}

// Matches reports whether the entry falls on the given time's date.
func (e CalendarEntry) Matches(now time.Time) bool {
	return now.Month() == e.Month && now.Day() == e.Day
}

// PlaybackStore remembers the last day each calendar event played, so an
// event runs at most once per day even while its date keeps matching.
// Days are "YYYY-MM-DD" strings; a new day naturally differs from the
// stored value, which is all the reset logic there is.
type PlaybackStore interface {
	LastPlayed(name string) string
	MarkPlayed(name, day string)
}

// MemoryPlaybackStore is the in-memory PlaybackStore.
type MemoryPlaybackStore struct {
	played map[string]string
}

// NewMemoryPlaybackStore returns an empty in-memory store.
func NewMemoryPlaybackStore() *MemoryPlaybackStore {
	return &MemoryPlaybackStore{played: make(map[string]string)}
}

// LastPlayed returns the stored day for an event name.
func (m *MemoryPlaybackStore) LastPlayed(name string) string {
	return m.played[name]
}

// MarkPlayed stores the day an event played.
func (m *MemoryPlaybackStore) MarkPlayed(name, day string) {
	m.played[name] = day
}

// DayKey formats a time as the playback store's day value.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// specialPattern selects one of the deterministic special-date animations.
type specialPattern int

const (
	// patternRotate is a three-color rotating fill.
	patternRotate specialPattern = iota
	// patternBreathe is a synchronized strip-wide brightness breath in a
	// fixed hue.
	patternBreathe
	// patternMarch is a marching highlight pixel over a solid background.
	patternMarch
)

type specialPalette struct {
	rotate     [3]strip.Color
	breathe    strip.Color
	background strip.Color
	marcher    strip.Color
}

var specialPalettes = map[string]specialPalette{
	"newyear": {
		rotate: [3]strip.Color{
			{R: 255, G: 200, B: 0},
			{R: 220, G: 220, B: 220},
			{R: 120, G: 0, B: 200},
		},
	},
	"valentine": {
		breathe: strip.Color{R: 255, G: 20, B: 80},
	},
	"halloween": {
		rotate: [3]strip.Color{
			{R: 255, G: 100, B: 0},
			{R: 120, G: 0, B: 200},
			{R: 20, G: 120, B: 20},
		},
	},
	"christmas": {
		background: strip.Color{R: 0, G: 120, B: 20},
		marcher:    strip.Color{R: 255, G: 30, B: 30},
	},
}

func patternForName(name string) specialPattern {
	switch strings.ToLower(name) {
	case "valentine":
		return patternBreathe
	case "christmas":
		return patternMarch
	case "newyear", "halloween":
		return patternRotate
	default:
		// Unrecognized event names get the first pattern as a safe default.
		return patternRotate
	}
}

func paletteForName(name string) specialPalette {
	if p, ok := specialPalettes[strings.ToLower(name)]; ok {
		return p
	}
	return specialPalettes["newyear"]
}

// Special kernel tuning.
const (
	specialRotateInterval  = 150 * time.Millisecond
	specialBreatheInterval = 25 * time.Millisecond
	specialMarchInterval   = 80 * time.Millisecond

	specialBreatheLow  = 20
	specialBreatheHigh = 220
	specialBreatheStep = 3
)

// specialCursor holds the scratch state shared by the three special-date
// patterns; only the fields the active pattern uses advance.
type specialCursor struct {
	gate  Gate
	phase int
	level int
	step  int
}

func newSpecialCursor() specialCursor {
	return specialCursor{step: specialBreatheStep}
}

// start re-arms the cursor for a newly triggered event.
func (c *specialCursor) start(pattern specialPattern) {
	c.phase = 0
	c.level = specialBreatheLow
	c.step = specialBreatheStep
	switch pattern {
	case patternBreathe:
		c.gate = NewGate(specialBreatheInterval)
	case patternMarch:
		c.gate = NewGate(specialMarchInterval)
	default:
		c.gate = NewGate(specialRotateInterval)
	}
}

func (c *specialCursor) render(s Strip, entry CalendarEntry, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}

	palette := paletteForName(entry.Name)
	switch entry.pattern {
	case patternBreathe:
		c.level += c.step
		if c.level >= specialBreatheHigh {
			c.level = specialBreatheHigh
			c.step = -specialBreatheStep
		} else if c.level <= specialBreatheLow {
			c.level = specialBreatheLow
			c.step = specialBreatheStep
		}
		s.SetBrightness(clampByte(c.level))
		s.Fill(palette.breathe)

	case patternMarch:
		c.phase++
		n := s.Len()
		if n == 0 {
			return
		}
		s.SetBrightness(255)
		s.Fill(palette.background)
		s.SetPixel(c.phase%n, palette.marcher)

	default: // patternRotate
		c.phase++
		n := s.Len()
		s.SetBrightness(255)
		for i := 0; i < n; i++ {
			s.SetPixel(i, palette.rotate[(i+c.phase)%3])
		}
	}
}
