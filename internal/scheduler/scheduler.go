// Package scheduler runs the agent's single cooperative loop. One goroutine
// owns the sensor bus, the display and the liveness feeder; scrapes reach
// it through a non-blocking poll of the HTTP side.
package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/envmon/internal/clock"
	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/feed"
	"codeberg.org/mutker/envmon/internal/liveness"
	"codeberg.org/mutker/envmon/internal/logger"
	"codeberg.org/mutker/envmon/internal/sensor"
)

const (
	DefaultDiscoveryPeriod = 360 * time.Second
	DefaultDisplayInterval = 10 * time.Second
	DefaultTickDelay       = 100 * time.Millisecond
)

// Sources of faults the loop reports to its fault observer.
const (
	SourceNetwork  = "network"
	SourcePlatform = "platform"
	SourceLiveness = "liveness"
	PhasePoll      = "poll"
	PhaseFeed      = "feed"
)

// Manager is the part of the sensor manager the loop drives.
type Manager interface {
	Reinitialize()
	Snapshot() (sensor.Snapshot, bool)
}

// Transport hands pending scrapes to the loop.
type Transport interface {
	Poll(handle func() ([]byte, error)) (bool, error)
}

// Renderer renders one scrape response.
type Renderer interface {
	Render(timers feed.Timers) ([]byte, error)
}

// Display shows the latest reading.
type Display interface {
	SetAddress(addr string) error
	Update(snap sensor.Snapshot, ok bool, now time.Time) error
}

// Metrics is the loop's self-instrumentation.
type Metrics interface {
	ObserveScrape(elapsed time.Duration)
	Discovery()
	DisplayUpdate()
	PollFault()
}

// Config holds the loop periods.
type Config struct {
	DiscoveryPeriod time.Duration
	DisplayInterval time.Duration
	TickDelay       time.Duration
}

// DefaultConfig returns the standard loop periods.
func DefaultConfig() Config {
	return Config{
		DiscoveryPeriod: DefaultDiscoveryPeriod,
		DisplayInterval: DefaultDisplayInterval,
		TickDelay:       DefaultTickDelay,
	}
}

var errFactory = errors.New()

// Scheduler bundles the loop's collaborators and timers. It is not safe
// for concurrent use; Run and Tick belong to one goroutine.
type Scheduler struct {
	cfg       Config
	manager   Manager
	transport Transport
	renderer  Renderer
	display   Display
	liveness  liveness.Feeder
	clock     clock.Clock

	address string
	metrics Metrics
	faults  sensor.FaultObserver
	log     logger.Logger

	lastDiscovery     time.Duration
	lastDisplayUpdate time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithAddress sets the network address shown on the display.
func WithAddress(addr string) Option {
	return func(s *Scheduler) {
		s.address = addr
	}
}

// WithMetrics reports loop activity to m.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithFaultObserver reports poll faults to o.
func WithFaultObserver(o sensor.FaultObserver) Option {
	return func(s *Scheduler) {
		s.faults = o
	}
}

// WithLogger sets the loop's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// New returns a Scheduler whose discovery and display timers start now.
func New(cfg Config, manager Manager, transport Transport, renderer Renderer,
	display Display, feeder liveness.Feeder, clk clock.Clock, opts ...Option,
) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		manager:   manager,
		transport: transport,
		renderer:  renderer,
		display:   display,
		liveness:  feeder,
		clock:     clk,
		metrics:   noopMetrics{},
		faults:    noopObserver{},
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	now := clk.Monotonic()
	s.lastDiscovery = now
	s.lastDisplayUpdate = now

	return s
}

// Run shows the address, then ticks until ctx is cancelled or a tick fails.
// A nil return means ctx was cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.display.SetAddress(s.address); err != nil {
		return errFactory.Wrap(errors.ErrDisplayFault, err)
	}

	s.log.Info().
		Dur("discovery_period", s.cfg.DiscoveryPeriod).
		Dur("display_interval", s.cfg.DisplayInterval).
		Dur("tick_delay", s.cfg.TickDelay).
		Msg("Main loop started")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.Tick(); err != nil {
			return err
		}
	}
}

// Tick runs one loop iteration: rediscovery when due, at most one scrape,
// display refresh when due, a liveness feed, then the tick delay. Only a
// display or wall clock fault is returned.
func (s *Scheduler) Tick() error {
	now := s.clock.Monotonic()

	if now-s.lastDiscovery >= s.cfg.DiscoveryPeriod {
		s.log.Debug().Msg("Rediscovering sensors")
		s.manager.Reinitialize()
		s.lastDiscovery = now
		s.metrics.Discovery()
	}

	if _, err := s.transport.Poll(s.render); err != nil {
		s.pollFault(err)
	}

	if now-s.lastDisplayUpdate >= s.cfg.DisplayInterval {
		if err := s.refreshDisplay(); err != nil {
			return err
		}
		s.lastDisplayUpdate = now
		s.metrics.DisplayUpdate()
	}

	if err := s.liveness.Feed(); err != nil {
		err = errFactory.Wrap(errors.ErrLivenessFailed, err)
		s.faults.OnFault(SourceLiveness, PhaseFeed, err)
		s.log.Warn().Str("error_code", string(errors.ErrLivenessFailed)).Err(err).Msg("Failed to feed liveness")
	}

	s.clock.Sleep(s.cfg.TickDelay)

	return nil
}

// Timers returns the loop's bookkeeping as published in the exposition.
func (s *Scheduler) Timers() feed.Timers {
	return feed.Timers{
		LastDiscovery:     s.lastDiscovery,
		DiscoveryPeriod:   s.cfg.DiscoveryPeriod,
		LastDisplayUpdate: s.lastDisplayUpdate,
	}
}

func (s *Scheduler) render() ([]byte, error) {
	start := s.clock.Monotonic()
	body, err := s.renderer.Render(s.Timers())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveScrape(s.clock.Monotonic() - start)

	return body, nil
}

func (s *Scheduler) pollFault(err error) {
	s.metrics.PollFault()

	if errors.HasCode(err, errors.ErrDeviceInfo) {
		s.faults.OnFault(SourcePlatform, PhasePoll, err)
		var coded errors.Error
		if errors.As(err, &coded) {
			s.log.ErrorWithContext(coded, SourcePlatform, "device_info").Msg("Failed to read device info")
			return
		}
		s.log.Error().Err(err).Msg("Failed to read device info")
		return
	}

	err = errFactory.Wrap(errors.ErrPollFailed, err)
	s.faults.OnFault(SourceNetwork, PhasePoll, err)
	s.log.Warn().Str("error_code", string(errors.ErrPollFailed)).Err(err).Msg("Network poll failed")
}

func (s *Scheduler) refreshDisplay() error {
	wall := s.clock.Now()
	if err := clock.CheckSynchronized(wall); err != nil {
		return err
	}

	snap, ok := s.manager.Snapshot()
	if err := s.display.Update(snap, ok, wall); err != nil {
		return errFactory.Wrap(errors.ErrDisplayFault, err)
	}

	return nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveScrape(time.Duration) {}
func (noopMetrics) Discovery()                  {}
func (noopMetrics) DisplayUpdate()              {}
func (noopMetrics) PollFault()                  {}

type noopObserver struct{}

func (noopObserver) OnFault(string, string, error) {}
