//go:build !linux

package liveness

import (
	"time"

	"codeberg.org/mutker/envmon/internal/errors"
)

// Device is unsupported on this platform.
type Device struct{}

func OpenDevice(string, time.Duration) (*Device, error) {
	return nil, errFactory.Wrap(ErrDevice, errors.New().New(errors.ErrNotImplemented))
}

func (*Device) Feed() error  { return nil }
func (*Device) Close() error { return nil }
