package engine

import "time"

// Gate is a minimum-interval timer. Fire reports whether at least the
// configured interval has elapsed since the last time it fired, and advances
// its own clock when it does. A zero Gate never fires; the first Fire call on
// an initialized gate always fires.
//
// Gates are what let an animation kernel be called every tick but only
// advance at its own cadence, and resume seamlessly after being suppressed
// by a higher-priority driver.
type Gate struct {
	interval time.Duration
	last     time.Time
}

// NewGate returns a gate with the given minimum interval.
func NewGate(interval time.Duration) Gate {
	return Gate{interval: interval}
}

// Fire reports whether the gate's interval has elapsed at now, consuming the
// interval when it has.
func (g *Gate) Fire(now time.Time) bool {
	if g.interval <= 0 {
		return false
	}
	if g.last.IsZero() || now.Sub(g.last) >= g.interval {
		g.last = now
		return true
	}
	return false
}

// Reset clears the gate so its next Fire call fires immediately.
func (g *Gate) Reset() {
	g.last = time.Time{}
}
