package engine

// Snapshot is the externally visible summary of the current lighting state.
// Color is present only in static mode, weather only in weather mode.
type Snapshot struct {
	Mode       string `json:"mode"`
	Brightness int    `json:"brightness"`
	Color      string `json:"color,omitempty"`
	Weather    string `json:"weather,omitempty"`
}

// snapshotLocked builds the snapshot from current state. It never mutates
// anything, so it can be called at any time. Caller must hold the lock.
func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Brightness: int(e.strip.Brightness()),
	}

	// The reported mode is the active driver, per the arbiter's priority
	// order.
	switch {
	case e.state.Special != nil:
		snap.Mode = e.calendar[e.state.Special.CalendarIndex].Name
	case e.state.Geo != nil:
		snap.Mode = e.state.Geo.Kind.String()
	case e.state.PulseActive:
		snap.Mode = ModePulse.String()
	default:
		snap.Mode = e.state.Baseline.String()
		if e.state.Baseline == ModeStatic {
			snap.Color = HexColor(e.state.StaticColor)
			snap.Brightness = int(e.state.StaticBrightness)
		}
		if e.state.Baseline == ModeWeather {
			snap.Weather = e.state.Weather.Condition.String()
		}
	}

	return snap
}

// Snapshot returns the current snapshot. Idempotent; no side effects on
// lighting state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// publishLocked hands the current snapshot to the broadcast callback.
// Caller must hold the lock.
func (e *Engine) publishLocked() {
	if e.onSnapshot != nil {
		e.onSnapshot(e.snapshotLocked())
	}
}
