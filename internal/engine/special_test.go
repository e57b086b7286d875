package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

func TestDefaultCalendarDates(t *testing.T) {
	cal := DefaultCalendar()
	require.Len(t, cal, 4)

	assert.True(t, cal[0].Matches(time.Date(2024, time.January, 1, 3, 0, 0, 0, time.UTC)))
	assert.True(t, cal[1].Matches(time.Date(2024, time.February, 14, 23, 59, 0, 0, time.UTC)))
	assert.True(t, cal[2].Matches(time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cal[3].Matches(time.Date(2024, time.December, 25, 12, 0, 0, 0, time.UTC)))

	assert.False(t, cal[1].Matches(time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)))
}

func TestPatternForName(t *testing.T) {
	assert.Equal(t, patternBreathe, patternForName("valentine"))
	assert.Equal(t, patternMarch, patternForName("christmas"))
	assert.Equal(t, patternRotate, patternForName("newyear"))
	assert.Equal(t, patternRotate, patternForName("halloween"))
	assert.Equal(t, patternRotate, patternForName("solstice"), "unknown names get the default pattern")
}

func TestMemoryPlaybackStore(t *testing.T) {
	store := NewMemoryPlaybackStore()

	assert.Empty(t, store.LastPlayed("valentine"))

	store.MarkPlayed("valentine", "2024-02-14")
	assert.Equal(t, "2024-02-14", store.LastPlayed("valentine"))

	store.MarkPlayed("valentine", "2025-02-14")
	assert.Equal(t, "2025-02-14", store.LastPlayed("valentine"))
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2024-03-15", DayKey(ordinaryDay))
	assert.Equal(t, "2024-01-05", DayKey(time.Date(2024, time.January, 5, 23, 0, 0, 0, time.UTC)))
}

func specialEntry(t *testing.T, name string) CalendarEntry {
	t.Helper()
	cal := NewCalendar([]CalendarEntry{{Month: time.March, Day: 15, Name: name}})
	return cal[0]
}

func TestSpecialRotatePattern(t *testing.T) {
	s := newFakeStrip(9)
	entry := specialEntry(t, "halloween")
	var c specialCursor
	c.start(entry.pattern)
	now := ordinaryDay

	now = now.Add(specialRotateInterval)
	c.render(s, entry, now)

	palette := paletteForName("halloween")
	for i := 0; i < s.Len(); i++ {
		assert.Equal(t, palette.rotate[(i+1)%3], s.Pixel(i))
	}

	// The next advance shifts every pixel by one palette slot.
	now = now.Add(specialRotateInterval)
	c.render(s, entry, now)
	for i := 0; i < s.Len(); i++ {
		assert.Equal(t, palette.rotate[(i+2)%3], s.Pixel(i))
	}
}

func TestSpecialBreathePattern(t *testing.T) {
	s := newFakeStrip(9)
	entry := specialEntry(t, "valentine")
	var c specialCursor
	c.start(entry.pattern)
	now := ordinaryDay

	palette := paletteForName("valentine")
	var levels []uint8
	for i := 0; i < 200; i++ {
		now = now.Add(specialBreatheInterval)
		c.render(s, entry, now)
		levels = append(levels, s.Brightness())
		assert.Equal(t, palette.breathe, s.Pixel(0))
	}

	sawHigh := false
	for _, l := range levels {
		assert.GreaterOrEqual(t, l, uint8(specialBreatheLow))
		assert.LessOrEqual(t, l, uint8(specialBreatheHigh))
		if l == specialBreatheHigh {
			sawHigh = true
		}
	}
	assert.True(t, sawHigh)
}

func TestSpecialMarchPattern(t *testing.T) {
	s := newFakeStrip(6)
	entry := specialEntry(t, "christmas")
	var c specialCursor
	c.start(entry.pattern)
	now := ordinaryDay

	palette := paletteForName("christmas")
	for step := 1; step <= 8; step++ {
		now = now.Add(specialMarchInterval)
		c.render(s, entry, now)

		marcher := step % s.Len()
		for i := 0; i < s.Len(); i++ {
			if i == marcher {
				assert.Equal(t, palette.marcher, s.Pixel(i))
			} else {
				assert.Equal(t, palette.background, s.Pixel(i))
			}
		}
	}
}

func TestSpecialStartRearmsGate(t *testing.T) {
	s := newFakeStrip(6)
	entry := specialEntry(t, "halloween")
	var c specialCursor

	// A zero cursor's gate never fires; start arms it.
	c.render(s, entry, ordinaryDay)
	assert.Equal(t, strip.Black, s.Pixel(0))

	c.start(entry.pattern)
	c.render(s, entry, ordinaryDay)
	assert.NotEqual(t, strip.Black, s.Pixel(0))
}

func TestPaletteForUnknownName(t *testing.T) {
	p := paletteForName("solstice")
	assert.Equal(t, specialPalettes["newyear"], p)
}
