package engine

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

const (
	// DefaultTickRate is the arbiter's scheduler cadence in Hz.
	DefaultTickRate = 100

	// calendarInterval is how often the special-date calendar is re-checked
	// against the wall clock while no event is active.
	calendarInterval = 30 * time.Second

	defaultDayStartHour   = 7
	defaultNightStartHour = 20
)

// cursors holds every kernel's private scratch state. Each cursor is owned
// exclusively by its kernel and persists while the kernel is suppressed.
type cursors struct {
	breath  breathCursor
	sparkle sparkleCursor
	night   nightCursor
	static  staticCursor
	pulse   pulseCursor
	weather weatherCursor
	geo     geoCursor
	special specialCursor
}

// Options configures a new Engine.
type Options struct {
	// Now is the wall-clock source. Defaults to time.Now.
	Now func() time.Time

	// Calendar is the special-date calendar. Defaults to DefaultCalendar.
	Calendar Calendar

	// Playback remembers which events already played today. Defaults to an
	// in-memory store.
	Playback PlaybackStore

	// PulseSecret gates the privatepulse command. When empty the command is
	// disabled entirely; the trusted presence feed can still trigger pulse.
	PulseSecret string

	// Day window for weather day/night variants: day is
	// [DayStartHour, NightStartHour).
	DayStartHour   int
	NightStartHour int

	// Restored state from a previous run, used verbatim: a stored static
	// brightness of 0 stays 0. Callers with nothing restored supply their
	// own default.
	Baseline         Mode
	StaticColor      Color
	StaticBrightness uint8

	// OnSnapshot is invoked on every externally observable state
	// transition. It must not block.
	OnSnapshot func(Snapshot)

	// OnWeatherRefresh is invoked when weather mode is entered. It must not
	// block.
	OnWeatherRefresh func()
}

// Color aliases the strip pixel type for callers configuring the engine.
type Color = strip.Color

// Engine arbitrates the lighting state and renders one frame per tick.
// All state is guarded by one mutex: command handlers apply their full
// effect before returning, so a tick never observes a half-applied update.
type Engine struct {
	mu    sync.Mutex
	strip Strip
	now   func() time.Time

	state   State
	cursors cursors

	calendar     Calendar
	calendarGate Gate
	playback     PlaybackStore

	pulseSecret    string
	dayStartHour   int
	nightStartHour int

	onSnapshot       func(Snapshot)
	onWeatherRefresh func()
}

// New creates an engine rendering into the given strip.
func New(s Strip, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	calendar := opts.Calendar
	if calendar == nil {
		calendar = DefaultCalendar()
	}
	playback := opts.Playback
	if playback == nil {
		playback = NewMemoryPlaybackStore()
	}
	dayStart := opts.DayStartHour
	if dayStart <= 0 {
		dayStart = defaultDayStartHour
	}
	nightStart := opts.NightStartHour
	if nightStart <= 0 {
		nightStart = defaultNightStartHour
	}
	e := &Engine{
		strip: s,
		now:   now,
		state: State{
			Baseline:         opts.Baseline,
			StaticColor:      opts.StaticColor,
			StaticBrightness: opts.StaticBrightness,
		},
		cursors: cursors{
			breath:  newBreathCursor(),
			sparkle: newSparkleCursor(),
			night:   newNightCursor(),
			static:  newStaticCursor(),
			pulse:   newPulseCursor(),
			weather: newWeatherCursor(),
			geo:     newGeoCursor(),
			special: newSpecialCursor(),
		},
		calendar:         calendar,
		calendarGate:     NewGate(calendarInterval),
		playback:         playback,
		pulseSecret:      opts.PulseSecret,
		dayStartHour:     dayStart,
		nightStartHour:   nightStart,
		onSnapshot:       opts.OnSnapshot,
		onWeatherRefresh: opts.OnWeatherRefresh,
	}

	// A restored static mode repaints immediately so the strip matches the
	// persisted state before the first tick.
	if e.state.Baseline == ModeStatic {
		e.strip.SetBrightness(e.state.StaticBrightness)
		e.strip.Fill(e.state.StaticColor)
	}

	return e
}

// SetWeatherRefresh installs the callback fired when the weather baseline
// becomes active. It exists because the weather collaborator is constructed
// after the engine.
func (e *Engine) SetWeatherRefresh(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onWeatherRefresh = fn
}

// Run drives the arbiter until the context is cancelled.
func (e *Engine) Run(ctx context.Context, tickRate int) {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	log.Printf("🎛️  Engine running at %d ticks/s", tickRate)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick evaluates the priority order and dispatches exactly one driver's
// kernel. Suppressed drivers are not advanced.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.checkCalendarLocked(now)

	switch {
	case e.state.Special != nil:
		entry := e.calendar[e.state.Special.CalendarIndex]
		e.cursors.special.render(e.strip, entry, now)

	case e.state.Geo != nil:
		e.cursors.geo.render(e.strip, e.state.Geo, now)
		e.expireGeofenceLocked(now)

	case e.state.PulseActive:
		e.cursors.pulse.render(e.strip, now)

	default:
		e.renderBaselineLocked(now)
	}
}

// checkCalendarLocked starts and stops special-date events. While an event
// is active the only check is date rollover; otherwise the calendar is
// scanned at the gate's cadence.
func (e *Engine) checkCalendarLocked(now time.Time) {
	if e.state.Special != nil {
		entry := e.calendar[e.state.Special.CalendarIndex]
		if !entry.Matches(now) {
			e.state.Special = nil
			e.strip.Clear()
			e.publishLocked()
		}
		return
	}

	if !e.calendarGate.Fire(now) {
		return
	}

	day := DayKey(now)
	for i, entry := range e.calendar {
		if entry.Matches(now) && e.playback.LastPlayed(entry.Name) != day {
			e.state.Special = &SpecialEvent{CalendarIndex: i, StartedAt: now}
			e.cursors.special.start(entry.pattern)
			// Marked at start so a restart mid-day does not replay.
			e.playback.MarkPlayed(entry.Name, day)
			log.Printf("🎉 Special date active: %s", entry.Name)
			e.publishLocked()
			return
		}
	}
}

// expireGeofenceLocked clears a timed override once its budget elapses.
func (e *Engine) expireGeofenceLocked(now time.Time) {
	d := e.state.Geo.Duration()
	if d > 0 && now.Sub(e.state.Geo.StartedAt) >= d {
		log.Printf("📍 Geofence override expired: %s", e.state.Geo.Kind)
		e.state.Geo = nil
		e.strip.Clear()
		e.publishLocked()
	}
}

func (e *Engine) renderBaselineLocked(now time.Time) {
	switch e.state.Baseline {
	case ModeBreath:
		e.cursors.breath.render(e.strip, now)
	case ModeFavorite:
		e.cursors.sparkle.render(e.strip, now)
	case ModeNight:
		e.cursors.night.render(e.strip, now)
	case ModeWeather:
		e.cursors.weather.render(e.strip, e.state.Weather, e.isDay(now), now)
	case ModeStatic:
		e.cursors.static.render(e.strip, &e.state, now)
	case ModePulse:
		e.cursors.pulse.render(e.strip, now)
	}
}

func (e *Engine) isDay(now time.Time) bool {
	h := now.Hour()
	return h >= e.dayStartHour && h < e.nightStartHour
}

// HandleCommand applies one control-channel command. Malformed or
// unrecognized payloads are ignored without any state change.
func (e *Engine) HandleCommand(cmd Command) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch parseAction(cmd.Action) {
	case actionSetColor:
		e.setColorLocked(cmd.Value)

	case actionSetBrightness:
		v, err := strconv.Atoi(cmd.Value)
		if err != nil {
			return
		}
		e.setBrightnessLocked(v)

	case actionSetMode:
		mode, ok := ParseMode(cmd.Value)
		if !ok {
			return
		}
		e.setBaselineLocked(mode)
		e.publishLocked()

	case actionPrivatePulse:
		if e.pulseSecret == "" || cmd.Secret != e.pulseSecret {
			return
		}
		e.startPulseLocked()

	case actionGetState:
		// Read-only; boundaries answer the requester from Snapshot().

	default:
		// Unknown action: deliberately ignored.
	}
}

func (e *Engine) setColorLocked(value string) {
	var color Color
	if value != "off" {
		c, ok := ParseHexColor(value)
		if !ok {
			return
		}
		color = c
	}

	e.state.Baseline = ModeStatic
	e.state.StaticColor = color
	e.state.StaticBrightness = 255
	e.cursors.static.gate.Reset()

	// The buffer is filled synchronously at command time; the static kernel
	// only re-pushes it afterwards.
	if e.state.Special == nil && e.state.Geo == nil && !e.state.PulseActive {
		e.strip.SetBrightness(255)
		e.strip.Fill(color)
	}
	e.publishLocked()
}

func (e *Engine) setBrightnessLocked(v int) {
	b := clampByte(v)
	e.state.StaticBrightness = b
	e.cursors.static.gate.Reset()

	// Rescales only the static-mode output; other modes' cursors are
	// untouched.
	if e.state.Baseline == ModeStatic && e.state.Special == nil && e.state.Geo == nil && !e.state.PulseActive {
		e.strip.SetBrightness(b)
	}
	e.publishLocked()
}

// setBaselineLocked switches the baseline mode. Only mode entry effects
// happen here; rendering is the arbiter's job.
func (e *Engine) setBaselineLocked(mode Mode) {
	e.state.Baseline = mode
	switch mode {
	case ModeBreath:
		e.cursors.breath.reset()
	case ModeWeather:
		if e.onWeatherRefresh != nil {
			e.onWeatherRefresh()
		}
	}
}

func (e *Engine) startPulseLocked() {
	e.state.PulseActive = true
	e.cursors.pulse.reset()
	log.Printf("💗 Private pulse active")
	e.publishLocked()
}

// HandleGeofence applies one presence-feed event. The feed is trusted, so
// its pulse trigger words need no secret. Unknown payloads are ignored.
func (e *Engine) HandleGeofence(payload string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, ok := parseGeofence(payload)
	if !ok {
		return
	}
	if ev.pulse {
		e.startPulseLocked()
		return
	}

	// A new event unconditionally replaces any current override and resets
	// its timer.
	e.state.Geo = &GeoOverride{Kind: ev.kind, StartedAt: e.now()}
	e.cursors.geo.start(ev.kind)
	log.Printf("📍 Geofence override: %s", ev.kind)
	e.publishLocked()
}

// PressButton handles the local edge-triggered control. A press cancels an
// active special date (marking it played), exits pulse back to breath, or
// advances the baseline rotation.
func (e *Engine) PressButton() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if e.state.Special != nil {
		entry := e.calendar[e.state.Special.CalendarIndex]
		e.playback.MarkPlayed(entry.Name, DayKey(now))
		e.state.Special = nil
		e.strip.Clear()
		e.publishLocked()
		return
	}

	if e.state.PulseActive {
		e.state.PulseActive = false
		e.setBaselineLocked(ModeBreath)
		e.publishLocked()
		return
	}

	e.setBaselineLocked(nextCycleMode(e.state.Baseline))
	e.publishLocked()
}

// nextCycleMode advances through the automatic modes, skipping static and
// pulse. A baseline outside the rotation re-enters it at breath.
func nextCycleMode(current Mode) Mode {
	for i, m := range cycleOrder {
		if m == current {
			return cycleOrder[(i+1)%len(cycleOrder)]
		}
	}
	return ModeBreath
}

// SetWeather records the latest upstream observation. Read-only to the
// renderer; the weather kernel picks it up on its next advance.
func (e *Engine) SetWeather(condition Condition, tempC float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Weather = WeatherReport{Condition: condition, TempC: tempC}

	// The observation is externally visible only while weather mode is the
	// active driver.
	if e.state.Baseline == ModeWeather && e.state.Special == nil && e.state.Geo == nil && !e.state.PulseActive {
		e.publishLocked()
	}
}

// Baseline returns the current baseline mode.
func (e *Engine) Baseline() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Baseline
}

// StaticState returns the stored static color and brightness.
func (e *Engine) StaticState() (Color, uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.StaticColor, e.state.StaticBrightness
}
