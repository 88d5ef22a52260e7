package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/observability"
	"github.com/aretw0/manifold/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.EntityStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every store call at debug level and failures,
// other than not-found and version conflicts, at error level.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	logger = logger.With("component", "entity_store")
	return func(next ports.EntityStore) ports.EntityStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op, id string, start time.Time, err error) {
	attrs := []any{"op", op, "duration", time.Since(start)}
	if id != "" {
		attrs = append(attrs, "entity_id", id)
	}
	switch {
	case err == nil:
		m.logger.DebugContext(ctx, "store call", attrs...)
	case isExpected(err):
		m.logger.DebugContext(ctx, "store call", append(attrs, "error", err)...)
	default:
		m.logger.ErrorContext(ctx, "store call failed", append(attrs, "error", err)...)
	}
}

func (m *loggingMiddleware) Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error) {
	start := time.Now()
	v, err := m.next.Save(ctx, entity, expectedVersion)
	m.log(ctx, "save", entity.ID, start, err)
	return v, err
}

func (m *loggingMiddleware) Load(ctx context.Context, id string) (*domain.Entity, error) {
	start := time.Now()
	e, err := m.next.Load(ctx, id)
	m.log(ctx, "load", id, start, err)
	return e, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.log(ctx, "delete", id, start, err)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.log(ctx, "list", "", start, err)
	return ids, err
}

type metricsMiddleware struct {
	next    ports.EntityStore
	metrics *observability.Metrics
}

// NewMetricsMiddleware records the count and latency of every store call.
func NewMetricsMiddleware(metrics *observability.Metrics) Middleware {
	return func(next ports.EntityStore) ports.EntityStore {
		return &metricsMiddleware{next: next, metrics: metrics}
	}
}

func (m *metricsMiddleware) Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error) {
	start := time.Now()
	v, err := m.next.Save(ctx, entity, expectedVersion)
	m.metrics.StoreOperation("save", err, time.Since(start))
	return v, err
}

func (m *metricsMiddleware) Load(ctx context.Context, id string) (*domain.Entity, error) {
	start := time.Now()
	e, err := m.next.Load(ctx, id)
	m.metrics.StoreOperation("load", err, time.Since(start))
	return e, err
}

func (m *metricsMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.metrics.StoreOperation("delete", err, time.Since(start))
	return err
}

func (m *metricsMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.metrics.StoreOperation("list", err, time.Since(start))
	return ids, err
}

func isExpected(err error) bool {
	return errors.Is(err, domain.ErrEntityNotFound) || errors.Is(err, domain.ErrVersionConflict)
}
