//go:build !linux

package platform

import "codeberg.org/mutker/envmon/internal/measurement"

// Linux is unavailable on this platform; every attribute is reported
// missing.
type Linux struct{}

// Option configures a Linux source.
type Option func(*Linux)

// NewLinux returns a Source reporting no attributes.
func NewLinux(...Option) *Linux {
	return &Linux{}
}

func (*Linux) CPUs() ([]CPU, error) {
	return nil, nil
}

func (*Linux) DeviceInfo() (measurement.Labels, error) {
	return nil, nil
}
