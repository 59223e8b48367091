package renderer

import "time"

// frameClock measures the time between frames using an injectable time source.
type frameClock struct {
	now   func() time.Time
	last  time.Time
	delta time.Duration
}

// newFrameClock creates a clock reading from now. A nil now uses time.Now.
func newFrameClock(now func() time.Time) *frameClock {
	if now == nil {
		now = time.Now
	}
	return &frameClock{now: now}
}

// seed records the current time as the previous frame so the first update measures from here.
func (c *frameClock) seed() {
	c.last = c.now()
	c.delta = 0
}

// update advances the clock and returns the elapsed time since the previous update.
// A time source that runs backwards yields a zero delta.
func (c *frameClock) update() time.Duration {
	t := c.now()
	if c.last.IsZero() {
		c.last = t
	}
	c.delta = t.Sub(c.last)
	if c.delta < 0 {
		c.delta = 0
	}
	c.last = t
	return c.delta
}
