// Package journal keeps a sqlite log of faults the agent absorbed, so an
// operator can see what went wrong between scrapes.
package journal

import (
	"context"
	"time"

	"codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/logger"
)

type service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

// No-op implementation
type noopJournal struct{}

// Option configures the journal service.
type Option func(*service)

// WithClock stamps events with now instead of time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the journal's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *service) {
		s.log = l
	}
}

// New opens the journal described by cfg. A disabled journal is a no-op
// that records nothing and lists nothing.
func New(cfg Config, opts ...Option) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Fault journal disabled, using no-op journal")
		return noopJournal{}, nil
	}

	s := &service{
		log: logger.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	repo, err := NewRepository(cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.repo = repo

	return s, nil
}

func (s *service) Record(ctx context.Context, event Event) error {
	errFactory := errors.New()

	if event.Source == "" || event.Phase == "" {
		return errFactory.WithData(ErrInvalidEvent, event)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	if err := s.repo.Record(event); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New().Wrap(ErrOperationTimeout, err)
	}

	return s.repo.Recent(limit)
}

// OnFault journals a fault absorbed elsewhere in the agent. Storage
// failures are logged, not returned.
func (s *service) OnFault(source, phase string, err error) {
	event := Event{
		Timestamp: s.now(),
		Source:    source,
		Phase:     phase,
	}
	if err != nil {
		event.Message = err.Error()
		if code, ok := errors.CodeOf(err); ok {
			event.Code = string(code)
		}
	}

	if err := s.Record(context.Background(), event); err != nil {
		s.log.Warn().Err(err).Str("source", source).Msg("Failed to journal fault")
	}
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func (noopJournal) Record(context.Context, Event) error { return nil }
func (noopJournal) OnFault(string, string, error)       {}
func (noopJournal) Close() error                        { return nil }

func (noopJournal) Recent(context.Context, int) ([]Event, error) {
	return []Event{}, nil
}
