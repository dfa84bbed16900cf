package server

import (
	"time"

	"golang.org/x/time/rate"
)

// Config holds the HTTP transport settings.
type Config struct {
	Address         string
	RateLimit       rate.Limit
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// ReplyTimeout bounds how long a scrape waits for the scheduler loop.
	ReplyTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Address:         ":9100",
		RateLimit:       10,
		RateLimitBurst:  20,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		ReplyTimeout:    10 * time.Second,
	}
}
