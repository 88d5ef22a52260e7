package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/manifold/internal/cache"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/observability"
	"github.com/aretw0/manifold/pkg/registry"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache injects the AST cache. Orchestrators that share a cache share
// compiled manifests.
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithMachine replaces the workflow engine.
func WithMachine(m Machine) Option {
	return func(o *Orchestrator) {
		o.machine = m
	}
}

// WithRegistry sets the action hook registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.lifecycle = hooks
	}
}

// WithMetrics records transition and cache metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
