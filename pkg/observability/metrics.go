package observability

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "manifold"

// Metrics holds the Prometheus collectors of the engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheRequests      *prometheus.CounterVec
	cacheEvictions     prometheus.Counter
	transitions        *prometheus.CounterVec
	rejections         *prometheus.CounterVec
	hookFailures       *prometheus.CounterVec
	storeOperations    *prometheus.CounterVec
	storeOperationTime *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registerer creates unregistered collectors, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: DefaultNamespace,
				Subsystem: "ast_cache",
				Name:      "requests_total",
				Help:      "Manifest AST cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		cacheEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: DefaultNamespace,
				Subsystem: "ast_cache",
				Name:      "evictions_total",
				Help:      "Manifest ASTs evicted from the cache.",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: DefaultNamespace,
				Name:      "transitions_total",
				Help:      "Committed transitions by source and target state.",
			},
			[]string{"from", "to"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: DefaultNamespace,
				Name:      "transitions_rejected_total",
				Help:      "Rejected transitions by error kind.",
			},
			[]string{"kind"},
		),
		hookFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: DefaultNamespace,
				Name:      "hook_failures_total",
				Help:      "Action hooks that returned an error or panicked.",
			},
			[]string{"action", "phase"},
		),
		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: DefaultNamespace,
				Subsystem: "entity_store",
				Name:      "operations_total",
				Help:      "Entity store operations by operation and result.",
			},
			[]string{"op", "result"},
		),
		storeOperationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: DefaultNamespace,
				Subsystem: "entity_store",
				Name:      "operation_duration_seconds",
				Help:      "Entity store operation latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.cacheRequests,
		m.cacheEvictions,
		m.transitions,
		m.rejections,
		m.hookFailures,
		m.storeOperations,
		m.storeOperationTime,
	}
}

// CacheHit records a cache lookup served from memory.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss records a cache lookup that required a build.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

// CacheEvicted records n evicted entries.
func (m *Metrics) CacheEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvictions.Add(float64(n))
}

// TransitionApplied records a committed transition.
func (m *Metrics) TransitionApplied(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// TransitionRejected records a refused transition by error kind.
func (m *Metrics) TransitionRejected(kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind).Inc()
}

// HookFailed records an absorbed hook failure.
func (m *Metrics) HookFailed(action, phase string) {
	if m == nil {
		return
	}
	m.hookFailures.WithLabelValues(action, phase).Inc()
}

// StoreOperation records one entity store call.
func (m *Metrics) StoreOperation(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEntityNotFound):
			result = "not_found"
		case errors.Is(err, domain.ErrVersionConflict):
			result = "conflict"
		default:
			result = domain.ErrorKind(err)
		}
	}
	m.storeOperations.WithLabelValues(op, result).Inc()
	m.storeOperationTime.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Hooks returns lifecycle hooks that feed m. Existing hooks in next are
// called after the metric is recorded.
func (m *Metrics) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.TransitionApplied(e.From, e.To)
			if next.OnTransition != nil {
				next.OnTransition(ctx, e)
			}
		},
		OnRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			m.TransitionRejected(e.Kind)
			if next.OnRejected != nil {
				next.OnRejected(ctx, e)
			}
		},
		OnHookFailed: func(ctx context.Context, e *domain.HookEvent) {
			m.HookFailed(e.Action, e.Phase)
			if next.OnHookFailed != nil {
				next.OnHookFailed(ctx, e)
			}
		},
	}
}
