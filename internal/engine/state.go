// Package engine implements the lamp's state arbitration and animation
// rendering. Four signal sources feed it (commands, geofence events, special
// dates and the private pulse), and every tick a fixed priority order decides
// which of them owns the pixel buffer.
package engine

import (
	"strings"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

// Strip is the pixel buffer the kernels render into. Implemented by
// strip.Service; tests use an in-memory fake.
type Strip interface {
	Len() int
	Pixel(i int) strip.Color
	SetPixel(i int, c strip.Color)
	Fill(c strip.Color)
	Clear()
	SetBrightness(b uint8)
	Brightness() uint8
}

// Mode is the user-selected baseline ambient pattern.
type Mode int

const (
	ModeBreath Mode = iota
	ModeFavorite
	ModeNight
	ModeWeather
	ModeStatic
	ModePulse
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBreath:
		return "breath"
	case ModeFavorite:
		return "favorite"
	case ModeNight:
		return "night"
	case ModeWeather:
		return "weather"
	case ModeStatic:
		return "static"
	case ModePulse:
		return "pulse"
	default:
		return "unknown"
	}
}

// ParseMode resolves a setmode value. Only the four automatic modes are
// reachable over the wire; static and pulse have their own commands.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breath":
		return ModeBreath, true
	case "favorite":
		return ModeFavorite, true
	case "night":
		return ModeNight, true
	case "weather":
		return ModeWeather, true
	default:
		return ModeBreath, false
	}
}

// cycleOrder is the button rotation through the automatic modes.
var cycleOrder = []Mode{ModeBreath, ModeFavorite, ModeNight, ModeWeather}

// GeofenceKind is a presence override variant.
type GeofenceKind int

const (
	GeoArrived GeofenceKind = iota
	GeoSettled
	GeoLeaving
	GeoDriving
)

// String returns the wire name of the geofence kind.
func (k GeofenceKind) String() string {
	switch k {
	case GeoArrived:
		return "arrived"
	case GeoSettled:
		return "settled"
	case GeoLeaving:
		return "leaving"
	case GeoDriving:
		return "driving"
	default:
		return "unknown"
	}
}

// Condition is the closed weather condition vocabulary.
type Condition int

const (
	ConditionUnknown Condition = iota
	ConditionClear
	ConditionClouds
	ConditionRain
	ConditionDrizzle
	ConditionThunderstorm
	ConditionSnow
	ConditionError
	ConditionOffline
)

// String returns the wire name of the condition.
func (c Condition) String() string {
	switch c {
	case ConditionClear:
		return "clear"
	case ConditionClouds:
		return "clouds"
	case ConditionRain:
		return "rain"
	case ConditionDrizzle:
		return "drizzle"
	case ConditionThunderstorm:
		return "thunderstorm"
	case ConditionSnow:
		return "snow"
	case ConditionError:
		return "error"
	case ConditionOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// ParseCondition maps an upstream condition name onto the closed vocabulary.
// Anything unrecognized becomes ConditionUnknown.
func ParseCondition(s string) Condition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clear":
		return ConditionClear
	case "clouds":
		return ConditionClouds
	case "rain":
		return ConditionRain
	case "drizzle":
		return ConditionDrizzle
	case "thunderstorm":
		return ConditionThunderstorm
	case "snow":
		return ConditionSnow
	default:
		return ConditionUnknown
	}
}

// GeoOverride is a timed presence override. Settled has no expiry; it stays
// until the next event replaces it.
type GeoOverride struct {
	Kind      GeofenceKind
	StartedAt time.Time
}

// Duration returns the override's fixed duration budget, or zero when the
// kind never expires on its own.
func (o *GeoOverride) Duration() time.Duration {
	switch o.Kind {
	case GeoArrived:
		return 15 * time.Second
	case GeoLeaving:
		return 8 * time.Second
	case GeoDriving:
		return 10 * time.Second
	default:
		return 0
	}
}

// SpecialEvent marks an active calendar event.
type SpecialEvent struct {
	CalendarIndex int
	StartedAt     time.Time
}

// WeatherReport is the latest upstream weather observation. Read-only to the
// renderer; only the weather collaborator writes it.
type WeatherReport struct {
	Condition Condition
	TempC     float64
}

// State is the shared lighting state. Exactly one of special event, geofence
// override, pulse flag and baseline mode drives the buffer at any tick; the
// others keep their cursors but are not advanced while suppressed.
type State struct {
	Baseline         Mode
	Geo              *GeoOverride
	PulseActive      bool
	Special          *SpecialEvent
	StaticColor      strip.Color
	StaticBrightness uint8
	Weather          WeatherReport
}
