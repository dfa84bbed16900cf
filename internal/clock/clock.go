// Package clock abstracts wall time, monotonic time and sleeping so the
// scheduler can be driven by a fake clock in tests.
package clock

import (
	"time"

	"codeberg.org/mutker/envmon/internal/errors"
)

// Clock provides wall and monotonic time.
type Clock interface {
	// Now returns the wall-clock time in the configured location.
	Now() time.Time
	// Monotonic returns time elapsed since an arbitrary fixed origin
	// (system boot on Linux). It never goes backwards.
	Monotonic() time.Duration
	Sleep(d time.Duration)
}

// MinSynchronizedYear is the first year a wall clock is trusted.
const MinSynchronizedYear = 2022

var errFactory = errors.New()

// CheckSynchronized reports a clock fault when t predates
// MinSynchronizedYear, which means the clock was never set.
func CheckSynchronized(t time.Time) error {
	if t.Year() < MinSynchronizedYear {
		return errFactory.WithData(errors.ErrClockFault, struct {
			Now string
		}{
			Now: t.Format(time.RFC3339),
		})
	}

	return nil
}

type realClock struct {
	loc   *time.Location
	start time.Time
}

// Real returns a Clock backed by the operating system. Wall time is
// reported in loc; a nil loc means time.Local.
func Real(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}

	return &realClock{loc: loc, start: time.Now()}
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Monotonic() time.Duration {
	if d, ok := systemMonotonic(); ok {
		return d
	}

	return time.Since(c.start)
}

func (*realClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// LoadLocation resolves a configured time zone name. Empty means local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return loc, nil
}
