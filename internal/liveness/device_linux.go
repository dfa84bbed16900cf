package liveness

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// magicClose disarms the watchdog on drivers that support it.
const magicClose = "V"

// Device feeds a kernel watchdog device such as /dev/watchdog.
type Device struct {
	f *os.File
}

// OpenDevice opens path and sets its timeout. A zero timeout keeps the
// driver default.
func OpenDevice(path string, timeout time.Duration) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errFactory.Wrap(ErrDevice, err)
	}

	if timeout > 0 {
		if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, int(timeout/time.Second)); err != nil {
			f.Close()
			return nil, errFactory.Wrap(ErrDevice, err)
		}
	}

	return &Device{f: f}, nil
}

func (d *Device) Feed() error {
	if err := unix.IoctlSetInt(int(d.f.Fd()), unix.WDIOC_KEEPALIVE, 0); err != nil {
		return errFactory.Wrap(ErrDevice, err)
	}

	return nil
}

// Close disarms and releases the device.
func (d *Device) Close() error {
	_, werr := d.f.WriteString(magicClose)
	if err := d.f.Close(); err != nil {
		return errFactory.Wrap(ErrDevice, err)
	}
	if werr != nil {
		return errFactory.Wrap(ErrDevice, werr)
	}

	return nil
}
