// Package server is the HTTP side of the agent. Scrapes of /metrics are
// handed to the scheduler loop, which renders them between its other
// duties; the remaining endpoints are served directly.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/envmon/internal/journal"
	"codeberg.org/mutker/envmon/internal/logger"
	"golang.org/x/time/rate"
)

// Observer is told about every completed request.
type Observer interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration)
}

// FaultLister returns recent fault journal entries.
type FaultLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Event, error)
}

type reply struct {
	body []byte
	err  error
}

type request struct {
	ctx   context.Context
	reply chan reply
}

// Server represents the HTTP server
type Server struct {
	config      *Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	requests    chan *request
	log         logger.Logger

	agentMetrics http.Handler
	faults       FaultLister
	observer     Observer

	mu    sync.RWMutex
	ready bool
	addr  net.Addr
}

// Option configures a Server.
type Option func(*Server)

// WithAgentMetrics serves h on /agent/metrics.
func WithAgentMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.agentMetrics = h
	}
}

// WithFaults serves the fault journal on /agent/faults.
func WithFaults(f FaultLister) Option {
	return func(s *Server) {
		s.faults = f
	}
}

// WithObserver reports completed requests to o.
func WithObserver(o Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a new server instance
func New(config *Config, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:      config,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		requests:    make(chan *request),
		log:         logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.withMiddleware(s.handleMetrics))
	mux.HandleFunc("/metrics/{$}", s.withMiddleware(s.handleMetrics))

	if s.agentMetrics != nil {
		mux.Handle("/agent/metrics", s.agentMetrics)
	}
	if s.faults != nil {
		mux.HandleFunc("/agent/faults", s.withMiddleware(s.handleFaults))
	}

	return mux
}

// Poll serves at most one pending scrape without blocking. handle renders
// the response body; it runs on the caller's goroutine. served reports
// whether a request was taken; err is the render error or a delivery fault.
func (s *Server) Poll(handle func() ([]byte, error)) (served bool, err error) {
	var req *request
	select {
	case req = <-s.requests:
	default:
		return false, nil
	}

	if err := req.ctx.Err(); err != nil {
		return true, errFactory.Wrap(ErrClientGone, err)
	}

	body, err := handle()
	req.reply <- reply{body: body, err: err}

	return true, err
}

// SetReady marks the server as ready to serve traffic
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errFactory.Wrap(ErrListen, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.ready = true
	s.mu.Unlock()

	s.log.Info().Str("address", ln.Addr().String()).Msg("Serving metrics")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return errFactory.Wrap(ErrListen, err)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info().Msg("Shutting down server")
	return s.httpServer.Shutdown(shutdownCtx)
}
