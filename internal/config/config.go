// Package config loads the agent settings from defaults, a TOML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/envmon/internal/clock"
	"codeberg.org/mutker/envmon/internal/display"
	"codeberg.org/mutker/envmon/internal/liveness"
	"codeberg.org/mutker/envmon/internal/scheduler"
	"codeberg.org/mutker/envmon/internal/sensor/bme680"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix     = "ENVMON"
	DefaultConfigName    = "envmon"
	DefaultConfigDir     = "/etc"
	DefaultListenAddress = ":9100"
	DefaultI2CBus        = ""
	DefaultDisplay       = display.KindAuto
	DefaultWatchdog      = liveness.KindSystemd
	DefaultWatchdogDev   = "/dev/watchdog"
	DefaultJournalDB     = "/var/lib/envmon/faults.db"
	DefaultPIDFile       = "/run/envmon/envmon.pid"
	DefaultLogLevel      = LogLevelInfo
)

const (
	DefaultRateLimit = 10.0
	DefaultRateBurst = 20
)

// Config holds every agent setting.
type Config struct {
	ListenAddress   string
	TickDelay       time.Duration
	DiscoveryPeriod time.Duration
	DisplayInterval time.Duration
	Display         string
	DisplayOutput   string
	Timezone        string
	Address         string
	I2CBus          string
	Sensors         []string
	BME680Address   uint16
	Watchdog        string
	WatchdogDevice  string
	WatchdogTimeout time.Duration
	RateLimit       float64
	RateBurst       int
	Journal         bool
	JournalDB       string
	PIDFile         string
	LogLevel        string
	Debug           bool
	Verbose         bool
	Once            bool
}

type flagSpec struct {
	key   string
	usage string
}

// Flag names use dashes; viper keys use underscores.
var flagSpecs = []flagSpec{
	{"listen_address", "HTTP listen address"},
	{"tick_delay", "Main loop delay"},
	{"discovery_period", "Interval between sensor rediscoveries"},
	{"display_interval", "Interval between display refreshes"},
	{"display", "Display adapter: auto, terminal, file or none"},
	{"display_output", "Output path for the file display, or console device for the terminal"},
	{"timezone", "Time zone for the displayed clock"},
	{"address", "Network address shown on the display (default: first IPv4)"},
	{"i2c_bus", "I2C bus name (default: first bus)"},
	{"sensors", "Sensor kinds to probe (default: all)"},
	{"bme680_address", "BME680 bus address (0x76 or 0x77)"},
	{"watchdog", "Liveness feeder: systemd, device or none"},
	{"watchdog_device", "Hardware watchdog device"},
	{"watchdog_timeout", "Hardware watchdog timeout"},
	{"rate_limit", "Requests per second allowed on HTTP endpoints"},
	{"rate_burst", "Burst size for the HTTP rate limiter"},
	{"journal", "Record faults in the sqlite journal"},
	{"journal_db", "Path to the fault journal database"},
	{"pid_file", "Path to the PID file"},
	{"log_level", "Log level: debug, info, warning or error"},
	{"debug", "Enable debugging mode"},
	{"verbose", "Enable verbose logging"},
	{"once", "Render one exposition to stdout and exit"},
}

func setDefaults(v *viper.Viper) {
	sched := scheduler.DefaultConfig()

	v.SetDefault("listen_address", DefaultListenAddress)
	v.SetDefault("tick_delay", sched.TickDelay)
	v.SetDefault("discovery_period", sched.DiscoveryPeriod)
	v.SetDefault("display_interval", sched.DisplayInterval)
	v.SetDefault("display", DefaultDisplay)
	v.SetDefault("display_output", "")
	v.SetDefault("timezone", "")
	v.SetDefault("address", "")
	v.SetDefault("i2c_bus", DefaultI2CBus)
	v.SetDefault("sensors", []string{})
	v.SetDefault("bme680_address", int(bme680.DefaultAddress))
	v.SetDefault("watchdog", DefaultWatchdog)
	v.SetDefault("watchdog_device", DefaultWatchdogDev)
	v.SetDefault("watchdog_timeout", liveness.DefaultTimeout)
	v.SetDefault("rate_limit", DefaultRateLimit)
	v.SetDefault("rate_burst", DefaultRateBurst)
	v.SetDefault("journal", false)
	v.SetDefault("journal_db", DefaultJournalDB)
	v.SetDefault("pid_file", DefaultPIDFile)
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("once", false)
}

// newFlagSet declares one flag per key. Flag defaults are never consulted:
// viper only takes a flag value when it was set on the command line.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("envmon", pflag.ContinueOnError)
	fs.SortFlags = false

	for _, spec := range flagSpecs {
		name := strings.ReplaceAll(spec.key, "_", "-")
		switch spec.key {
		case "tick_delay", "discovery_period", "display_interval", "watchdog_timeout":
			fs.Duration(name, 0, spec.usage)
		case "sensors":
			fs.StringSlice(name, nil, spec.usage)
		case "rate_limit":
			fs.Float64(name, 0, spec.usage)
		case "rate_burst", "bme680_address":
			fs.Int(name, 0, spec.usage)
		case "journal", "debug", "verbose", "once":
			fs.Bool(name, false, spec.usage)
		default:
			fs.String(name, "", spec.usage)
		}
	}

	return fs
}

// Load parses args (without the program name) and merges them over the
// environment, the config file and the defaults.
func Load(args []string, opts ...Option) (*Config, error) {
	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(ErrParseFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	for _, spec := range flagSpecs {
		if err := v.BindPFlag(spec.key, fs.Lookup(strings.ReplaceAll(spec.key, "_", "-"))); err != nil {
			return nil, errFactory.Wrap(ErrBindFlags, err)
		}
	}

	if err := readConfigFile(v, o); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:   v.GetString("listen_address"),
		TickDelay:       v.GetDuration("tick_delay"),
		DiscoveryPeriod: v.GetDuration("discovery_period"),
		DisplayInterval: v.GetDuration("display_interval"),
		Display:         v.GetString("display"),
		DisplayOutput:   v.GetString("display_output"),
		Timezone:        v.GetString("timezone"),
		Address:         v.GetString("address"),
		I2CBus:          v.GetString("i2c_bus"),
		Sensors:         splitList(v.GetStringSlice("sensors")),
		BME680Address:   uint16(v.GetUint("bme680_address")),
		Watchdog:        v.GetString("watchdog"),
		WatchdogDevice:  v.GetString("watchdog_device"),
		WatchdogTimeout: v.GetDuration("watchdog_timeout"),
		RateLimit:       v.GetFloat64("rate_limit"),
		RateBurst:       v.GetInt("rate_burst"),
		Journal:         v.GetBool("journal"),
		JournalDB:       v.GetString("journal_db"),
		PIDFile:         v.GetString("pid_file"),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		Debug:           v.GetBool("debug"),
		Verbose:         v.GetBool("verbose"),
		Once:            v.GetBool("once"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile reads the explicit file (option, then <PREFIX>_CONFIG) or
// falls back to an optional /etc/envmon.toml.
func readConfigFile(v *viper.Viper, o *options) error {
	path := o.configPath
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.AddConfigPath(DefaultConfigDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(ErrReadConfig, err)
		}
	}

	return nil
}

// splitList accepts both list values and comma-separated strings, as
// environment variables arrive.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"tick_delay", c.TickDelay},
		{"discovery_period", c.DiscoveryPeriod},
		{"display_interval", c.DisplayInterval},
		{"watchdog_timeout", c.WatchdogTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return errFactory.WithData(ErrInvalidInterval, struct {
				Field string
				Value string
			}{
				Field: d.name,
				Value: d.value.String(),
			})
		}
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(ErrInvalidLogLevel, c.LogLevel)
	}

	switch c.Display {
	case display.KindAuto, display.KindTerminal, display.KindNone:
	case display.KindFile:
		if c.DisplayOutput == "" {
			return invalid("display_output", "required for the file display")
		}
	default:
		return invalid("display", c.Display)
	}

	switch c.Watchdog {
	case liveness.KindSystemd, liveness.KindNone:
	case liveness.KindDevice:
		if c.WatchdogDevice == "" {
			return invalid("watchdog_device", "required for the device watchdog")
		}
	default:
		return invalid("watchdog", c.Watchdog)
	}

	if c.BME680Address != bme680.DefaultAddress && c.BME680Address != bme680.AlternateAddress {
		return invalid("bme680_address", c.BME680Address)
	}

	if c.RateLimit <= 0 {
		return invalid("rate_limit", c.RateLimit)
	}
	if c.RateBurst < 1 {
		return invalid("rate_burst", c.RateBurst)
	}
	if c.ListenAddress == "" {
		return invalid("listen_address", c.ListenAddress)
	}
	if c.Journal && c.JournalDB == "" {
		return invalid("journal_db", "required when the journal is enabled")
	}

	if _, err := clock.LoadLocation(c.Timezone); err != nil {
		return err
	}

	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return clock.LoadLocation(c.Timezone)
}

func invalid(field string, value any) error {
	return errFactory.WithData(ErrInvalidConfig, struct {
		Field string
		Value any
	}{
		Field: field,
		Value: value,
	})
}

// Usage returns the flag help text.
func Usage() string {
	return newFlagSet().FlagUsages()
}
