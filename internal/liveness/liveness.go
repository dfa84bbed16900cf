// Package liveness tells a supervisor the main loop is still turning.
package liveness

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Feeder is fed once per scheduler tick.
type Feeder interface {
	Feed() error
	Close() error
}

// Feeder kinds accepted by New.
const (
	KindSystemd = "systemd"
	KindDevice  = "device"
	KindNone    = "none"
)

// DefaultTimeout is the hardware watchdog timeout set at startup.
const DefaultTimeout = 15 * time.Second

// New returns the feeder named kind. device and timeout apply to the device
// feeder only.
func New(kind, device string, timeout time.Duration) (Feeder, error) {
	switch kind {
	case KindSystemd:
		return NewSystemd(), nil
	case KindDevice:
		return OpenDevice(device, timeout)
	case KindNone, "":
		return Noop{}, nil
	}

	return nil, errFactory.WithData(ErrUnknownKind, kind)
}

// NotifyFunc sends a state string to the service manager.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Systemd pings the service manager watchdog over sd_notify, at half the
// interval the unit asks for. Without WatchdogSec nothing is sent.
type Systemd struct {
	notify NotifyFunc
	every  time.Duration
	now    func() time.Time
	last   time.Time
}

// NewSystemd returns a Systemd feeder using the real notify socket.
func NewSystemd() *Systemd {
	return &Systemd{
		notify: daemon.SdNotify,
		every:  WatchdogInterval() / 2,
		now:    time.Now,
	}
}

func (s *Systemd) Feed() error {
	if s.every <= 0 {
		return nil
	}

	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.every {
		return nil
	}

	if _, err := s.notify(false, daemon.SdNotifyWatchdog); err != nil {
		return errFactory.Wrap(ErrNotify, err)
	}
	s.last = now

	return nil
}

func (*Systemd) Close() error {
	return nil
}

// NotifyReady reports startup completion. It is a no-op outside systemd.
func NotifyReady() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyStopping reports that shutdown has begun.
func NotifyStopping() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// WatchdogInterval returns the interval systemd expects pings at, or zero
// when the service has no watchdog configured.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}

	return d
}

// Noop is used when no supervisor watches the agent.
type Noop struct{}

func (Noop) Feed() error  { return nil }
func (Noop) Close() error { return nil }
