// Package timing provides the clocks that devices read their time from.
package timing

import (
	"sync"
	"time"
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() time.Time
}

// WallClock tells the real time.
type WallClock struct{}

// CurrentTime returns time.Now.
func (WallClock) CurrentTime() time.Time {
	return time.Now()
}

// ManualClock only moves when it is told to. Tests use it to cross timeouts
// without sleeping.
type ManualClock struct {
	lock sync.Mutex
	now  time.Time
}

// NewManualClock creates a ManualClock that starts at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// CurrentTime returns the time the clock is set to.
func (c *ManualClock) CurrentTime() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now = c.now.Add(d)
}
