// Package feed assembles the measurements served for one scrape: every
// sensor reading followed by the agent's own host measurements.
package feed

import (
	"time"

	"codeberg.org/mutker/envmon/internal/clock"
	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/exposition"
	"codeberg.org/mutker/envmon/internal/logger"
	"codeberg.org/mutker/envmon/internal/measurement"
	"codeberg.org/mutker/envmon/internal/platform"
)

// Reader is the part of the sensor manager the feed needs.
type Reader interface {
	ReadAll() measurement.Set
}

// Timers are the scheduler's bookkeeping, as monotonic readings.
type Timers struct {
	LastDiscovery     time.Duration
	DiscoveryPeriod   time.Duration
	LastDisplayUpdate time.Duration
}

// Fault source and phase reported for a failed per-CPU read.
const (
	SourcePlatform = "platform"
	PhaseCPU       = "cpu"
)

// FaultObserver is told about host accessor faults the builder absorbs.
type FaultObserver interface {
	OnFault(source, phase string, err error)
}

var errFactory = errors.New()

// Builder produces scrape responses.
type Builder struct {
	reader    Reader
	platform  platform.Source
	clock     clock.Clock
	log       logger.Logger
	observers []FaultObserver
}

// Option configures a Builder.
type Option func(*Builder)

// WithFaultObserver registers an observer for absorbed faults.
func WithFaultObserver(o FaultObserver) Option {
	return func(b *Builder) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// NewBuilder returns a Builder reading sensors from reader and host
// attributes from src.
func NewBuilder(reader Reader, src platform.Source, clk clock.Clock, opts ...Option) *Builder {
	b := &Builder{
		reader:   reader,
		platform: src,
		clock:    clk,
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build reads every sensor and appends the host measurements. Sensor and
// per-CPU faults never fail a build; an unexpected device info fault does.
func (b *Builder) Build(timers Timers) ([]measurement.Measurement, error) {
	start := b.clock.Monotonic()
	ms := []measurement.Measurement(b.reader.ReadAll())
	elapsed := b.clock.Monotonic() - start

	ms = append(ms, measurement.New(
		measurement.NameMeasurementTime, "Time to measure metrics in seconds", elapsed.Seconds(), nil))

	cpus, err := b.platform.CPUs()
	if err != nil && !platform.IsUnavailable(err) {
		b.cpuFault(err)
	}

	for _, cpu := range cpus {
		if cpu.HasTemperature {
			ms = append(ms, measurement.New(measurement.NameCPUTemperature, "Temperature in Celsius",
				cpu.Temperature, measurement.Pairs(measurement.LabelCPU, cpu.ID)))
		}
		if cpu.HasFrequency {
			ms = append(ms, measurement.New(measurement.NameCPUFrequency, "Frequency in hertz",
				cpu.Frequency, measurement.Pairs(measurement.LabelCPU, cpu.ID)).
				WithFormat(measurement.FormatInteger))
		}
	}

	now := b.clock.Monotonic()
	ms = append(ms,
		measurement.New(measurement.NameLastDiscovery, "Last discovery time in seconds",
			timers.LastDiscovery.Seconds(), nil),
		measurement.New(measurement.NameNextDiscovery, "Next discovery time in seconds",
			(timers.DiscoveryPeriod - (now - timers.LastDiscovery)).Seconds(), nil),
		measurement.New(measurement.NameLastScreenUpdate, "Last screen update time in seconds",
			timers.LastDisplayUpdate.Seconds(), nil),
	)

	info, err := b.platform.DeviceInfo()
	if err != nil && !platform.IsUnavailable(err) {
		return nil, errFactory.Wrap(errors.ErrDeviceInfo, err)
	}
	ms = append(ms, measurement.New(measurement.NameMicrocontrollerInfo, "Microcontroller info", 1, info))

	return exposition.Group(ms), nil
}

func (b *Builder) cpuFault(err error) {
	code, ok := errors.CodeOf(err)
	if !ok {
		code = platform.ErrAccessor
		err = errFactory.Wrap(code, err)
	}
	b.log.Warn().Str("error_code", string(code)).Err(err).Msg("Failed to read CPU attributes")

	for _, o := range b.observers {
		o.OnFault(SourcePlatform, PhaseCPU, err)
	}
}

// Render builds and renders one response body.
func (b *Builder) Render(timers Timers) ([]byte, error) {
	ms, err := b.Build(timers)
	if err != nil {
		return nil, err
	}

	return []byte(exposition.Render(ms)), nil
}
