package liveness

import (
	"errors"
	"testing"
	"time"

	apperrors "codeberg.org/mutker/envmon/internal/errors"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemdFeedThrottled(t *testing.T) {
	var states []string
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Systemd{
		notify: func(_ bool, state string) (bool, error) {
			states = append(states, state)
			return true, nil
		},
		every: 5 * time.Second,
		now:   func() time.Time { return now },
	}

	// 100 ticks of 100ms: pings at 0s and 5s.
	for range 100 {
		require.NoError(t, s.Feed())
		now = now.Add(100 * time.Millisecond)
	}
	assert.Equal(t, []string{daemon.SdNotifyWatchdog, daemon.SdNotifyWatchdog}, states)
	assert.NoError(t, s.Close())
}

func TestSystemdWithoutWatchdogSec(t *testing.T) {
	calls := 0
	s := &Systemd{
		notify: func(bool, string) (bool, error) {
			calls++
			return true, nil
		},
		now: time.Now,
	}

	require.NoError(t, s.Feed())
	assert.Zero(t, calls)
}

func TestSystemdFeedError(t *testing.T) {
	s := &Systemd{
		notify: func(bool, string) (bool, error) {
			return false, errors.New("socket gone")
		},
		every: time.Second,
		now:   time.Now,
	}

	err := s.Feed()
	assert.True(t, apperrors.HasCode(err, ErrNotify))
}

func TestWatchdogInterval(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "15000000")
	t.Setenv("WATCHDOG_PID", "")
	assert.Equal(t, 15*time.Second, WatchdogInterval())
	assert.Equal(t, 7500*time.Millisecond, NewSystemd().every)

	t.Setenv("WATCHDOG_USEC", "")
	assert.Zero(t, WatchdogInterval())
}

func TestSystemdOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	assert.NoError(t, NewSystemd().Feed(), "no socket is not an error")
}

func TestNew(t *testing.T) {
	f, err := New(KindNone, "", 0)
	require.NoError(t, err)
	assert.NoError(t, f.Feed())

	f, err = New(KindSystemd, "", 0)
	require.NoError(t, err)
	assert.IsType(t, &Systemd{}, f)

	_, err = New("gpio", "", 0)
	assert.True(t, apperrors.HasCode(err, ErrUnknownKind))
}
