package engine

import (
	"strings"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/services/strip"
)

// Geofence kernel tuning.
const (
	geoFadeInterval  = 50 * time.Millisecond
	geoBlinkInterval = 300 * time.Millisecond // half of the ~600ms blink period
	geoSettledLevel  = 120
)

var (
	geoArrivedColor = strip.Color{R: 0, G: 255, B: 40}
	geoLeavingColor = strip.Color{R: 20, G: 60, B: 255}
	geoDrivingColor = strip.Color{R: 255, G: 120, B: 0}
	geoSettledColor = strip.Color{R: 255, G: 160, B: 70}
)

// geoEvent is the outcome of parsing a presence-feed payload. The feed also
// carries the pulse trigger words, which map onto the pulse driver rather
// than a geofence override.
type geoEvent struct {
	kind  GeofenceKind
	pulse bool
}

// parseGeofence resolves a free-text presence payload. Unknown strings
// return ok=false and are ignored by the caller.
func parseGeofence(payload string) (geoEvent, bool) {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "arrive", "arrived":
		return geoEvent{kind: GeoArrived}, true
	case "settled":
		return geoEvent{kind: GeoSettled}, true
	case "leave", "leaving":
		return geoEvent{kind: GeoLeaving}, true
	case "driving":
		return geoEvent{kind: GeoDriving}, true
	case "pulse", "missyou":
		return geoEvent{pulse: true}, true
	default:
		return geoEvent{}, false
	}
}

// geoCursor renders the active geofence override.
type geoCursor struct {
	gate    Gate
	blinkOn bool
}

func newGeoCursor() geoCursor {
	return geoCursor{gate: NewGate(geoFadeInterval)}
}

// start re-arms the cursor for a newly received override.
func (c *geoCursor) start(kind GeofenceKind) {
	c.blinkOn = false
	if kind == GeoDriving {
		c.gate = NewGate(geoBlinkInterval)
	} else {
		c.gate = NewGate(geoFadeInterval)
	}
}

func (c *geoCursor) render(s Strip, o *GeoOverride, now time.Time) {
	if !c.gate.Fire(now) {
		return
	}

	switch o.Kind {
	case GeoArrived, GeoLeaving:
		// Climbing fade: brightness rises from dark to full across the
		// override's duration budget. Arrivals get the gentle sine curve;
		// departures ramp at a constant rate.
		progress := float64(now.Sub(o.StartedAt)) / float64(o.Duration())
		if o.Kind == GeoArrived {
			level := Interpolate(0, 255, progress, EasingInOutSine)
			s.SetBrightness(clampByte(int(level)))
			s.Fill(geoArrivedColor)
		} else {
			level := Interpolate(0, 255, progress, EasingLinear)
			s.SetBrightness(clampByte(int(level)))
			s.Fill(geoLeavingColor)
		}

	case GeoDriving:
		c.blinkOn = !c.blinkOn
		s.SetBrightness(255)
		if c.blinkOn {
			s.Fill(geoDrivingColor)
		} else {
			s.Fill(strip.Black)
		}

	case GeoSettled:
		s.SetBrightness(geoSettledLevel)
		s.Fill(geoSettledColor)
	}
}
