package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance or Sleep is
// called. Sleep returns immediately after advancing.
type FakeClock struct {
	mu        sync.Mutex
	now       time.Time
	monotonic time.Duration
	sleeps    []time.Duration
}

// Fake returns a FakeClock reading initial with a monotonic reading of
// zero.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{now: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *FakeClock) Monotonic() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.monotonic
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	c.Advance(d)
}

// Advance moves both wall and monotonic time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	c.monotonic += d
}

// SetWall replaces the wall time without touching monotonic time.
func (c *FakeClock) SetWall(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

// Sleeps returns every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)

	return out
}
