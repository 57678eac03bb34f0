// Package clock provides monotonic time sources for the timing engine.
package clock

import (
	"time"
)

// Clock returns the time elapsed since an arbitrary fixed origin. Readings
// only make sense relative to each other.
type Clock interface {
	Now() time.Duration
}

// Monotonic reads the runtime's monotonic clock.
type Monotonic struct {
	origin time.Time
}

// NewMonotonic returns a Monotonic clock anchored at the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{origin: time.Now()}
}

// Now implements Clock.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.origin)
}

// Manual is a Clock advanced explicitly. It is meant for tests and
// simulations.
type Manual struct {
	now time.Duration
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Duration) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Advance moves the clock forward by d. Negative values are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.now += d
}

// Set moves the clock to t when t is not earlier than the current reading.
func (m *Manual) Set(t time.Duration) {
	if t < m.now {
		return
	}
	m.now = t
}
