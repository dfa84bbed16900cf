// Package sensor manages the lifecycle of the attached sensors: discovery on
// a shared bus, fault-isolated reads and a last-known-good cache per sensor.
package sensor

import (
	"fmt"
	"io"
	"time"

	"codeberg.org/mutker/envmon/internal/bus"
	"codeberg.org/mutker/envmon/internal/clock"
	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/logger"
	"codeberg.org/mutker/envmon/internal/measurement"
	"periph.io/x/conn/v3/i2c"
)

// Fault phases reported to observers.
const (
	PhaseBus  = "bus"
	PhaseInit = "init"
	PhaseRead = "read"
)

// FaultObserver is told about every fault the manager absorbs.
type FaultObserver interface {
	OnFault(sensor, phase string, err error)
}

// Snapshot is the reading shown on the display.
type Snapshot struct {
	Sensor      string
	Temperature float64
	Humidity    float64
	Pressure    float64
	HasPressure bool
}

type outcome int

const (
	outcomeFresh outcome = iota
	outcomeNotReady
	outcomeFault
)

type slot struct {
	kind         Kind
	driver       Driver
	identity     measurement.Labels
	cache        measurement.Set
	lastMeasured time.Duration
}

func (s *slot) present() bool {
	return s.driver != nil
}

// Manager owns the bus handle and one slot per registered kind. It is not
// safe for concurrent use; the scheduler loop is its only caller.
type Manager struct {
	opener    bus.Opener
	kinds     []Kind
	clock     clock.Clock
	log       logger.Logger
	observers []FaultObserver

	bus   i2c.BusCloser
	slots []*slot
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for absorbed faults.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithObserver registers a fault observer.
func WithObserver(o FaultObserver) Option {
	return func(m *Manager) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// NewManager returns a Manager for kinds, read in the given order. No bus
// I/O happens until Initialize.
func NewManager(opener bus.Opener, kinds []Kind, clk clock.Clock, opts ...Option) *Manager {
	m := &Manager{
		opener: opener,
		kinds:  kinds,
		clock:  clk,
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Initialize opens the bus and initializes every kind independently. A kind
// whose driver fails to come up leaves its slot absent. Faults are logged
// and reported to observers, never returned.
func (m *Manager) Initialize() {
	if m.bus != nil {
		m.shutdown()
	}

	m.slots = make([]*slot, len(m.kinds))
	for i, k := range m.kinds {
		m.slots[i] = &slot{kind: k}
	}

	b, err := m.opener.Open()
	if err != nil {
		m.fault("", PhaseBus, errFactory.Wrap(ErrBusOpenFailed, err))
		return
	}
	m.bus = b

	for _, s := range m.slots {
		m.initSlot(s)
	}

	m.log.Info().Strs("present", m.Present()).Msg("Sensor discovery complete")
}

// Reinitialize closes every driver and the bus, then runs Initialize.
// Nothing but the hardware identity read during Init survives.
func (m *Manager) Reinitialize() {
	m.shutdown()
	m.Initialize()
}

// Close releases drivers and the bus.
func (m *Manager) Close() error {
	return m.shutdown()
}

// Present lists the kinds whose driver initialized, in registration order.
func (m *Manager) Present() []string {
	names := make([]string, 0, len(m.slots))
	for _, s := range m.slots {
		if s.present() {
			names = append(names, s.kind.Name)
		}
	}

	return names
}

// ReadAll concatenates ReadOne for every present slot in registration
// order.
func (m *Manager) ReadAll() measurement.Set {
	var out measurement.Set
	for _, s := range m.slots {
		out = append(out, m.readSlot(s)...)
	}

	return out
}

// ReadOne reads the slot registered under name. An absent or unknown slot
// yields nil.
func (m *Manager) ReadOne(name string) measurement.Set {
	for _, s := range m.slots {
		if s.kind.Name == name {
			return m.readSlot(s)
		}
	}

	return nil
}

// Snapshot returns the cached temperature and humidity (and pressure, when
// the sensor has one) of the first present slot that has a reading.
func (m *Manager) Snapshot() (Snapshot, bool) {
	for _, s := range m.slots {
		if !s.present() || len(s.cache) == 0 {
			continue
		}

		t, okT := s.cache.Find(measurement.NameTemperature)
		h, okH := s.cache.Find(measurement.NameHumidity)
		if !okT || !okH {
			continue
		}

		snap := Snapshot{
			Sensor:      s.kind.Name,
			Temperature: t.Value,
			Humidity:    h.Value,
		}
		if p, ok := s.cache.Find(measurement.NamePressure); ok {
			snap.Pressure = p.Value
			snap.HasPressure = true
		}

		return snap, true
	}

	return Snapshot{}, false
}

func (m *Manager) readSlot(s *slot) measurement.Set {
	if !s.present() {
		return nil
	}

	var result measurement.Set

	res, sample, cause, err := m.poll(s)
	switch res {
	case outcomeFresh:
		s.cache = m.buildSet(s, sample)
		result = s.cache
	case outcomeNotReady:
		result = s.cache
	case outcomeFault:
		m.fault(s.kind.Name, PhaseRead, err)
		result = append(s.cache.Clone(), measurement.New(
			measurement.NameSensorError,
			"Error: "+cause.Error(),
			1,
			nil,
		))
	}

	return result.WithLabel(measurement.LabelSensorType, s.kind.Name)
}

// poll runs one ready check and read. cause is the driver's own error,
// err the coded error wrapping it.
func (m *Manager) poll(s *slot) (res outcome, sample Sample, cause, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("driver panic: %v", r)
			res, sample, err = outcomeFault, nil, errFactory.Wrap(ErrDriverPanic, cause)
		}
	}()

	ready, cause := s.driver.DataReady()
	if cause != nil {
		return outcomeFault, nil, cause, errFactory.Wrap(ErrSensorReadyFailed, cause)
	}
	if !ready {
		return outcomeNotReady, nil, nil, nil
	}

	sample, cause = s.driver.Read()
	if cause != nil {
		return outcomeFault, nil, cause, errFactory.Wrap(ErrSensorReadFailed, cause)
	}

	for _, f := range s.driver.Fields() {
		if _, ok := sample[f]; !ok {
			cause = fmt.Errorf("incomplete sample: missing %s", f)
			return outcomeFault, nil, cause, errFactory.Wrap(ErrSensorIncomplete, cause)
		}
	}

	return outcomeFresh, sample, nil, nil
}

func (m *Manager) buildSet(s *slot, sample Sample) measurement.Set {
	fields := s.driver.Fields()
	set := make(measurement.Set, 0, len(fields)+2)

	for _, f := range fields {
		set = append(set, measurement.New(f.MetricName(), f.Description(), sample[f], nil))
	}

	s.lastMeasured = m.clock.Monotonic()
	set = append(set,
		measurement.New(measurement.NameLastMeasurementTime, "Last measurement time", s.lastMeasured.Seconds(), nil),
		measurement.New(measurement.NameSensorInfo, "Sensor info", 1, s.identity.Clone()),
	)

	return set
}

func (m *Manager) initSlot(s *slot) {
	driver, identity, err := m.bringUp(s.kind)
	if err != nil {
		m.fault(s.kind.Name, PhaseInit, err)
		return
	}

	s.driver = driver
	s.identity = identity
}

func (m *Manager) bringUp(k Kind) (driver Driver, identity measurement.Labels, err error) {
	defer func() {
		if r := recover(); r != nil {
			if driver != nil {
				closeDriver(driver)
			}
			driver, identity = nil, nil
			err = errFactory.Wrap(ErrDriverPanic, fmt.Errorf("driver panic: %v", r))
		}
	}()

	d, err := k.Open(m.bus)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrSensorInitFailed, err)
	}
	driver = d

	if err := d.Init(); err != nil {
		closeDriver(d)
		return nil, nil, errFactory.Wrap(ErrSensorInitFailed, err)
	}

	return d, d.Identity().Clone(), nil
}

func (m *Manager) shutdown() error {
	for _, s := range m.slots {
		if s.present() {
			if err := closeDriver(s.driver); err != nil {
				m.log.Debug().Str("sensor", s.kind.Name).Err(err).Msg("Failed to close sensor")
			}
			s.driver = nil
		}
	}

	if m.bus == nil {
		return nil
	}

	err := m.bus.Close()
	m.bus = nil
	if err != nil {
		m.log.Debug().Err(err).Msg("Failed to close bus")
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func closeDriver(d Driver) (err error) {
	c, ok := d.(io.Closer)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("driver panic on close: %v", r)
		}
	}()

	return c.Close()
}

func (m *Manager) fault(sensor, phase string, err error) {
	ev := m.log.Warn().Str("phase", phase).Err(err)
	if sensor != "" {
		ev = ev.Str("sensor", sensor)
	}
	ev.Msg("Sensor fault")

	for _, o := range m.observers {
		o.OnFault(sensor, phase, err)
	}
}
