package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeberg.org/mutker/envmon/internal/bus"
	"codeberg.org/mutker/envmon/internal/clock"
	"codeberg.org/mutker/envmon/internal/config"
	"codeberg.org/mutker/envmon/internal/display"
	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/feed"
	"codeberg.org/mutker/envmon/internal/journal"
	"codeberg.org/mutker/envmon/internal/liveness"
	"codeberg.org/mutker/envmon/internal/logger"
	"codeberg.org/mutker/envmon/internal/pid"
	"codeberg.org/mutker/envmon/internal/platform"
	"codeberg.org/mutker/envmon/internal/scheduler"
	"codeberg.org/mutker/envmon/internal/sensor"
	"codeberg.org/mutker/envmon/internal/sensor/bme680"
	"codeberg.org/mutker/envmon/internal/sensor/scd4x"
	"codeberg.org/mutker/envmon/internal/server"
	"codeberg.org/mutker/envmon/internal/telemetry"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const noAddress = "no network"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stdout, "Usage: envmon [flags]\n\n%s", config.Usage())
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	if cfg.Once {
		// stdout carries the exposition
		logger.InitWithOutput(os.Stderr, cfg.Debug, cfg.Verbose, logger.IsService())
	} else {
		logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	}
	if !cfg.Debug && !cfg.Verbose {
		if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
			logger.SetLogLevel(level)
		}
	}
	logger.Debug().Msg("Config loaded")

	if err := run(cfg); err != nil {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.FatalWithCode(coded).Msg("Agent stopped")
		}
		logger.Fatal().Err(err).Msg("Agent stopped")
	}
}

func run(cfg *config.Config) error {
	errFactory := errors.New()

	guard, err := pid.Acquire(cfg.PIDFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := guard.Release(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.Real(loc)

	registry := sensor.NewRegistry(
		bme680.Kind(bme680.WithSleep(clk.Sleep), bme680.WithAddress(cfg.BME680Address)),
		scd4x.Kind(scd4x.WithSleep(clk.Sleep)),
	)
	kinds, err := registry.Select(cfg.Sensors)
	if err != nil {
		return err
	}

	metrics, err := telemetry.New()
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	faults, err := journal.New(journal.Config{
		DBPath:       cfg.JournalDB,
		BackupDir:    filepath.Join(filepath.Dir(cfg.JournalDB), "backups"),
		BatchSize:    journal.DefaultConfig().BatchSize,
		BatchTimeout: journal.DefaultConfig().BatchTimeout,
		Enabled:      cfg.Journal,
	}, journal.WithClock(clk.Now))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := faults.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close fault journal")
		}
	}()

	manager := sensor.NewManager(bus.NewPeriph(cfg.I2CBus), kinds, clk,
		sensor.WithObserver(metrics),
		sensor.WithObserver(faults),
	)
	manager.Initialize()
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close sensors")
		}
	}()

	builder := feed.NewBuilder(manager, platform.NewLinux(), clk, feed.WithFaultObserver(faults))

	if cfg.Once {
		now := clk.Monotonic()
		body, err := builder.Render(feed.Timers{
			LastDiscovery:     now,
			DiscoveryPeriod:   cfg.DiscoveryPeriod,
			LastDisplayUpdate: now,
		})
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(body)
		return err
	}

	return serve(cfg, clk, manager, builder, metrics, faults)
}

func serve(cfg *config.Config, clk clock.Clock, manager *sensor.Manager, builder *feed.Builder,
	metrics *telemetry.Collector, faults journal.Journal,
) error {
	errFactory := errors.New()

	// The log shares stdout, so a panel only goes there on a console.
	interactive := !logger.IsService() && display.Interactive(os.Stdout)
	adapter, err := display.New(cfg.Display, cfg.DisplayOutput, interactive)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	panel := display.NewPanel(adapter)
	defer func() {
		if err := panel.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close display")
		}
	}()

	feeder, err := liveness.New(cfg.Watchdog, cfg.WatchdogDevice, cfg.WatchdogTimeout)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := feeder.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close liveness feeder")
		}
	}()

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.ListenAddress
	srvCfg.RateLimit = rate.Limit(cfg.RateLimit)
	srvCfg.RateLimitBurst = cfg.RateBurst
	srv := server.New(srvCfg,
		server.WithAgentMetrics(metrics.Handler()),
		server.WithFaults(faults),
		server.WithObserver(metrics),
	)

	sched := scheduler.New(scheduler.Config{
		DiscoveryPeriod: cfg.DiscoveryPeriod,
		DisplayInterval: cfg.DisplayInterval,
		TickDelay:       cfg.TickDelay,
	}, manager, srv, builder, panel, feeder, clk,
		scheduler.WithAddress(address(cfg)),
		scheduler.WithMetrics(metrics),
		scheduler.WithFaultObserver(faults),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if _, err := liveness.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify readiness")
	}
	logger.Info().
		Strs("sensors", manager.Present()).
		Str("listen", cfg.ListenAddress).
		Msg("Agent started")

	err = g.Wait()

	if _, nerr := liveness.NotifyStopping(); nerr != nil {
		logger.Warn().Err(nerr).Msg("Failed to notify stopping")
	}
	logger.Info().Msg("Exiting...")

	return err
}

// address returns the configured display address, or the host's first
// IPv4 address.
func address(cfg *config.Config) string {
	if cfg.Address != "" {
		return cfg.Address
	}

	addr, err := platform.PrimaryIPv4()
	if err != nil {
		logger.Warn().Err(err).Msg("No network address to display")
		return noAddress
	}

	return addr
}
