package core

import (
	"context"
	"fmt"
	"time"

	"foundrycore/pkg/domain"

	"github.com/rs/zerolog"
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// Service exposes the tenant-scoped operations of the record store. Every
// record-touching method takes the caller principal resolved by the external
// identity layer; access to another principal's private record fails with
// NotFound so existence is never revealed.
type Service struct {
	store   PersistentStore
	engine  *RulesEngine
	log     zerolog.Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   func() time.Time
}

// ServiceOption customizes a Service at construction time.
type ServiceOption func(*Service)

// WithLogger attaches a structured logger. The default logger discards.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithMetrics attaches a metrics recorder observing every operation.
func WithMetrics(rec MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer attaches a tracer wrapping every operation in a span.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

// WithClock overrides the wall clock used for operation timing.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// NewService constructs a service over the supplied store and rules engine.
func NewService(store PersistentStore, engine *RulesEngine, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		log:    zerolog.Nop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store wired to
// the default rule set. Intended for tests and ephemeral deployments.
func NewInMemoryService(opts ...ServiceOption) *Service {
	engine := NewDefaultRulesEngine()
	return NewService(newMemoryStore(engine), engine, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// instrument wraps an operation with tracing, metrics, and logging.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := s.clock()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	elapsed := s.clock().Sub(start)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, elapsed)
	}
	if err != nil {
		s.log.Error().Str("operation", operation).Dur("elapsed", elapsed).Err(err).Msg("operation failed")
	} else {
		s.log.Info().Str("operation", operation).Dur("elapsed", elapsed).Msg("operation complete")
	}
	return err
}

func requireCaller(caller Principal) error {
	if caller == "" {
		return fmt.Errorf("caller principal required")
	}
	return nil
}

// Health reports process liveness.
func (s *Service) Health() string { return "ok" }

// ServiceStats aggregates record counts derived from store sizes.
type ServiceStats struct {
	Captures   int `json:"captures"`
	Sprints    int `json:"sprints"`
	Workspaces int `json:"workspaces"`
	Documents  int `json:"documents"`
	Templates  int `json:"templates"`
	Owners     int `json:"owners"`
}

// Stats returns aggregate counts per entity type plus the distinct owner count.
func (s *Service) Stats(ctx context.Context) (ServiceStats, error) {
	var stats ServiceStats
	err := s.instrument(ctx, "stats", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			owners := make(map[Principal]struct{})
			for _, c := range view.ListCaptures() {
				owners[c.Owner] = struct{}{}
				stats.Captures++
			}
			for _, sp := range view.ListSprints() {
				owners[sp.Owner] = struct{}{}
				stats.Sprints++
			}
			for _, w := range view.ListWorkspaces() {
				owners[w.Owner] = struct{}{}
				stats.Workspaces++
			}
			for _, d := range view.ListDocuments() {
				owners[d.Owner] = struct{}{}
				stats.Documents++
			}
			for _, t := range view.ListTemplates() {
				owners[t.Owner] = struct{}{}
				stats.Templates++
			}
			stats.Owners = len(owners)
			return nil
		})
	})
	return stats, err
}

// Audit evaluates every registered rule against committed state and returns
// the violation set. Detects cross-cutting corruption such as dangling
// references introduced by a bad import.
func (s *Service) Audit(ctx context.Context) (Result, error) {
	var res Result
	err := s.instrument(ctx, "audit", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			var evalErr error
			res, evalErr = s.engine.Evaluate(ctx, view, nil)
			return evalErr
		})
	})
	return res, err
}
