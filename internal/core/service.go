package core

import (
	"context"
	"fmt"
	"time"

	"neocore/pkg/domain"
)

// Service exposes instrumented catalog operations over a linked Database.
type Service struct {
	db      *Database
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger wires a logger; the default discards all output.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics wires a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer wires a tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock overrides the service clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service over the supplied database.
func NewService(db *Database, opts ...Option) *Service {
	s := &Service{
		db:     db,
		logger: noopLogger{},
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Database returns the underlying linked database.
func (s *Service) Database() *Database { return s.db }

// ErrNotFound is returned when a lookup matches no NEO.
type ErrNotFound struct {
	Field string // "designation" or "name"
	Value string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no NEO with %s %q", e.Field, e.Value)
}

// instrument runs fn under the configured tracer, metrics recorder, and
// logger.
func (s *Service) instrument(ctx context.Context, operation string, fn func() error) error {
	start := s.nowFn()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn()
	elapsed := s.nowFn().Sub(start)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, elapsed)
	}
	if err != nil {
		s.logger.Debug("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation complete", "operation", operation, "duration", elapsed)
	}
	return err
}

// LookupDesignation fetches an NEO by primary designation.
func (s *Service) LookupDesignation(ctx context.Context, designation string) (*domain.NearEarthObject, error) {
	var neo *domain.NearEarthObject
	err := s.instrument(ctx, "lookup_designation", func() error {
		n, ok := s.db.GetByDesignation(designation)
		if !ok {
			return ErrNotFound{Field: "designation", Value: designation}
		}
		neo = n
		return nil
	})
	return neo, err
}

// LookupName fetches an NEO by IAU name.
func (s *Service) LookupName(ctx context.Context, name string) (*domain.NearEarthObject, error) {
	var neo *domain.NearEarthObject
	err := s.instrument(ctx, "lookup_name", func() error {
		n, ok := s.db.GetByName(name)
		if !ok {
			return ErrNotFound{Field: "name", Value: name}
		}
		neo = n
		return nil
	})
	return neo, err
}

// Query materializes up to limit approaches matching the filter set; a limit
// of zero or less means no limit.
func (s *Service) Query(ctx context.Context, filters domain.Filters, limit int) []*domain.CloseApproach {
	var out []*domain.CloseApproach
	_ = s.instrument(ctx, "query", func() error {
		out = s.db.QueryLimit(filters, limit)
		return nil
	})
	s.logger.Info("query complete", "matches", len(out), "limited", limit > 0)
	return out
}
