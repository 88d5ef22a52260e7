package manifold

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/manifold/internal/cache"
	"github.com/aretw0/manifold/internal/runtime"
	"github.com/aretw0/manifold/pkg/adapters/file"
	"github.com/aretw0/manifold/pkg/adapters/memory"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/observability"
	"github.com/aretw0/manifold/pkg/persistence/middleware"
	"github.com/aretw0/manifold/pkg/ports"
	"github.com/aretw0/manifold/pkg/registry"
	"github.com/aretw0/manifold/pkg/workflow"
)

// Engine is the high-level entry point for the Manifold library.
// It wraps the internal orchestrator and provides a simplified API for consumers.
type Engine struct {
	orchestrator *runtime.Orchestrator
	provider     ports.ManifestProvider
	store        ports.EntityStore
	middlewares  []middleware.Middleware
	cacheSize    int
	metrics      *observability.Metrics
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	Name         string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithProvider injects a custom ManifestProvider, bypassing the default directory provider.
func WithProvider(p ports.ManifestProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithStore injects the EntityStore. The default is an in-memory store.
func WithStore(s ports.EntityStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithStoreMiddleware wraps the entity store. The first middleware is the outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, mws...)
	}
}

// WithCacheSize bounds the number of compiled manifest versions kept in memory.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithMetrics records engine metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Manifold Engine.
// By default, manifests are read from <manifestDir>/<version>.yaml.
// If WithProvider is given, manifestDir can be empty.
func New(manifestDir string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if eng.provider == nil {
		if manifestDir == "" {
			return nil, fmt.Errorf("manifestDir is required when no custom provider is provided")
		}
		absPath, err := filepath.Abs(manifestDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.provider = file.NewProvider(absPath, file.WithLogger(eng.logger))
	} else if manifestDir != "" {
		eng.Name = filepath.Base(manifestDir)
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("manifests", eng.Name)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	eng.store = middleware.Chain(eng.store, eng.middlewares...)

	cacheOpts := []cache.Option{cache.WithLogger(eng.logger), cache.WithMetrics(eng.metrics)}
	if eng.cacheSize > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxSize(eng.cacheSize))
	}

	reg := registry.NewRegistry(registry.WithLogger(eng.logger))
	reg.Register(registry.ActionLogTransition, registry.LogTransition(eng.logger))

	eng.orchestrator = runtime.NewOrchestrator(eng.provider, eng.store,
		runtime.WithCache(cache.New(cacheOpts...)),
		runtime.WithRegistry(reg),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithMetrics(eng.metrics),
		runtime.WithLogger(eng.logger),
	)

	return eng, nil
}

// Transition validates req against the entity's manifest and commits it.
func (e *Engine) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.TransitionResult, error) {
	return e.orchestrator.Transition(ctx, req)
}

// PermittedTriggers lists the transitions currently available to an entity.
func (e *Engine) PermittedTriggers(ctx context.Context, entityID string) ([]workflow.Trigger, error) {
	return e.orchestrator.PermittedTriggers(ctx, entityID)
}

// Create stores a new entity in its workflow's initial state.
func (e *Engine) Create(ctx context.Context, entity *domain.Entity) (*domain.Entity, error) {
	return e.orchestrator.Create(ctx, entity)
}

// Get loads an entity from the store.
func (e *Engine) Get(ctx context.Context, entityID string) (*domain.Entity, error) {
	return e.store.Load(ctx, entityID)
}

// InitialState returns the state new entities of a type start in.
func (e *Engine) InitialState(ctx context.Context, version, typeKind, typeID string) (string, error) {
	return e.orchestrator.InitialState(ctx, version, typeKind, typeID)
}

// IsValidParentChild reports whether parent may contain child.
func (e *Engine) IsValidParentChild(ctx context.Context, version, typeKind, parent, child string) (bool, error) {
	return e.orchestrator.IsValidParentChild(ctx, version, typeKind, parent, child)
}

// Workflow returns the workflow bound to an entity type.
func (e *Engine) Workflow(ctx context.Context, version, typeKind, typeID string) (*manifest.WorkflowDef, error) {
	return e.orchestrator.Workflow(ctx, version, typeKind, typeID)
}

// RegisterAction binds an action name used in on_enter/on_leave lists to a hook.
func (e *Engine) RegisterAction(name string, fn registry.HookFunc) {
	e.orchestrator.Registry().Register(name, fn)
}

// Watch returns a channel that signals new manifest versions.
// Returns error if the provider does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.provider.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current provider does not support watching")
}

// Provider returns the underlying ManifestProvider used by the engine.
func (e *Engine) Provider() ports.ManifestProvider {
	return e.provider
}
