// Package platform reads host attributes published alongside the sensor
// readings: per-CPU temperature and frequency, and static board identity.
package platform

import (
	stderrors "errors"
	"io/fs"
	"net"

	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/measurement"
)

// CPU is one logical processor. A zero Temperature or Frequency with the
// matching Has flag unset means the attribute is unavailable.
type CPU struct {
	ID             string
	Temperature    float64
	HasTemperature bool
	Frequency      float64
	HasFrequency   bool
}

// Source provides host attributes. Implementations report a missing
// attribute by leaving it out; an error means an accessor failed in an
// unexpected way.
type Source interface {
	CPUs() ([]CPU, error)
	DeviceInfo() (measurement.Labels, error)
}

// IsUnavailable reports whether err means the attribute does not exist on
// this host.
func IsUnavailable(err error) bool {
	return errors.HasCode(err, ErrUnavailable) ||
		stderrors.Is(err, fs.ErrNotExist) ||
		stderrors.Is(err, fs.ErrPermission)
}

// PrimaryIPv4 returns the first IPv4 address of an interface that is up and
// not a loopback.
func PrimaryIPv4() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", errFactory.Wrap(ErrNoAddress, err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
	}

	return "", errFactory.New(ErrNoAddress)
}
