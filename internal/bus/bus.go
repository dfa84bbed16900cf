// Package bus opens the shared I²C bus through periph.io.
package bus

import (
	"sync"

	"codeberg.org/mutker/envmon/internal/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	ErrHostInit errors.ErrorCode = "bus_host_init_failed"
	ErrOpen     errors.ErrorCode = "bus_open_failed"
)

var errFactory = errors.New()

// Opener opens a fresh handle on the bus.
type Opener interface {
	Open() (i2c.BusCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func() (i2c.BusCloser, error)

func (f OpenerFunc) Open() (i2c.BusCloser, error) {
	return f()
}

// Periph opens a named bus from the periph.io registry. An empty name
// selects the first registered bus.
type Periph struct {
	name string

	initOnce sync.Once
	initErr  error
}

// NewPeriph returns an Opener for the named bus.
func NewPeriph(name string) *Periph {
	return &Periph{name: name}
}

func (p *Periph) Open() (i2c.BusCloser, error) {
	p.initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			p.initErr = errFactory.Wrap(ErrHostInit, err)
		}
	})
	if p.initErr != nil {
		return nil, p.initErr
	}

	b, err := i2creg.Open(p.name)
	if err != nil {
		return nil, errFactory.WithData(ErrOpen, struct {
			Bus   string
			Error string
		}{
			Bus:   p.name,
			Error: err.Error(),
		})
	}

	return b, nil
}

func (p *Periph) String() string {
	if p.name == "" {
		return "i2c:default"
	}

	return "i2c:" + p.name
}
