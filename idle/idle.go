// Package idle reports how long the user has been inactive.
package idle

import (
	"sync"
	"time"
)

// Unsupported is returned when idle time cannot be measured. It is large
// enough to pass any threshold, so spawning is always allowed.
const Unsupported = 999999.0

// Monitor returns seconds since the last user input.
type Monitor interface {
	IdleSeconds() float64
}

// Fallback is used when no platform monitor is available.
type Fallback struct{}

func (Fallback) IdleSeconds() float64 { return Unsupported }

// Activity measures idle time from explicit Touch calls, e.g. key presses
// seen by the terminal UI.
type Activity struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewActivity starts the idle clock at now. A nil now uses time.Now.
func NewActivity(now func() time.Time) *Activity {
	if now == nil {
		now = time.Now
	}
	return &Activity{last: now(), now: now}
}

// Touch records user input.
func (a *Activity) Touch() {
	a.mu.Lock()
	a.last = a.now()
	a.mu.Unlock()
}

func (a *Activity) IdleSeconds() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.now().Sub(a.last).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
