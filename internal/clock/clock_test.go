package clock

import (
	"testing"
	"time"

	"codeberg.org/mutker/envmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := Fake(start)

	assert.Equal(t, start, c.Now())
	assert.Zero(t, c.Monotonic())

	c.Sleep(100 * time.Millisecond)
	c.Advance(2 * time.Second)
	c.Advance(-time.Second)

	assert.Equal(t, 2100*time.Millisecond, c.Monotonic())
	assert.Equal(t, start.Add(2100*time.Millisecond), c.Now())
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, c.Sleeps())

	c.SetWall(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2100*time.Millisecond, c.Monotonic(), "wall jumps leave monotonic time alone")
}

func TestCheckSynchronized(t *testing.T) {
	require.NoError(t, CheckSynchronized(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	err := CheckSynchronized(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrClockFault))
}

func TestRealClockMonotonic(t *testing.T) {
	c := Real(time.UTC)

	a := c.Monotonic()
	c.Sleep(time.Millisecond)
	b := c.Monotonic()

	assert.Greater(t, b, a)
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Not/AZone")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}
