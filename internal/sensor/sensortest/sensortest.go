// Package sensortest provides stub drivers and buses for exercising the
// sensor manager without hardware.
package sensortest

import (
	"errors"

	"codeberg.org/mutker/envmon/internal/bus"
	"codeberg.org/mutker/envmon/internal/measurement"
	"codeberg.org/mutker/envmon/internal/sensor"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Stub is a scriptable sensor.Driver. The zero value initializes, is
// always ready and returns an empty sample.
type Stub struct {
	InitErr  error
	NotReady bool
	ReadyErr error
	ReadErr  error
	Panic    string
	Sample   sensor.Sample
	Ident    measurement.Labels
	FieldSet []sensor.Field

	Inits  int
	Reads  int
	Closes int
}

// NewStub returns a ready stub reporting temperature, humidity and
// pressure.
func NewStub(temperature, humidity, pressure float64) *Stub {
	return &Stub{
		Sample: sensor.Sample{
			sensor.Temperature: temperature,
			sensor.Humidity:    humidity,
			sensor.Pressure:    pressure,
		},
		FieldSet: []sensor.Field{sensor.Temperature, sensor.Humidity, sensor.Pressure},
		Ident:    measurement.Pairs(measurement.LabelSensorName, "STUB"),
	}
}

func (s *Stub) Init() error {
	s.Inits++
	return s.InitErr
}

func (s *Stub) DataReady() (bool, error) {
	if s.ReadyErr != nil {
		return false, s.ReadyErr
	}

	return !s.NotReady, nil
}

func (s *Stub) Read() (sensor.Sample, error) {
	s.Reads++
	if s.Panic != "" {
		panic(s.Panic)
	}
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	out := make(sensor.Sample, len(s.Sample))
	for k, v := range s.Sample {
		out[k] = v
	}

	return out, nil
}

func (s *Stub) Identity() measurement.Labels {
	return s.Ident
}

func (s *Stub) Fields() []sensor.Field {
	return s.FieldSet
}

func (s *Stub) Close() error {
	s.Closes++
	return nil
}

// Kind registers d under name. Every Open returns the same stub so tests
// can keep scripting it across discovery cycles.
func Kind(name string, d sensor.Driver) sensor.Kind {
	return sensor.Kind{
		Name: name,
		Open: func(i2c.Bus) (sensor.Driver, error) {
			return d, nil
		},
	}
}

// Bus is an i2c.BusCloser that accepts every transaction.
type Bus struct {
	Opens  int
	Closes int
}

func (*Bus) String() string { return "sensortest" }

func (*Bus) Tx(uint16, []byte, []byte) error { return nil }

func (*Bus) SetSpeed(physic.Frequency) error { return nil }

func (b *Bus) Close() error {
	b.Closes++
	return nil
}

// Opener returns an Opener handing out b.
func (b *Bus) Opener() bus.Opener {
	return bus.OpenerFunc(func() (i2c.BusCloser, error) {
		b.Opens++
		return b, nil
	})
}

// ErrNoBus is returned by FailingOpener.
var ErrNoBus = errors.New("no such bus")

// FailingOpener returns an Opener that always fails.
func FailingOpener() bus.Opener {
	return bus.OpenerFunc(func() (i2c.BusCloser, error) {
		return nil, ErrNoBus
	})
}

// Observer records faults.
type Observer struct {
	Faults []Fault
}

// Fault is one recorded OnFault call.
type Fault struct {
	Sensor string
	Phase  string
	Err    error
}

func (o *Observer) OnFault(sensor, phase string, err error) {
	o.Faults = append(o.Faults, Fault{Sensor: sensor, Phase: phase, Err: err})
}
