// Package registry maps action names declared on workflow edges to hook functions.
//
// Hooks are best-effort notifications: an unregistered name is skipped, and a
// hook that fails or panics is logged without stopping the ones after it.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/manifold/internal/logging"
)

// Action names understood by the default hook set.
const (
	ActionNotifyAssignee = "notify_assignee"
	ActionLogTransition  = "log_transition"
)

// Keys of the context map passed to every hook.
const (
	KeyEntityID  = "entity_id"
	KeyFromState = "from_state"
	KeyToState   = "to_state"
	KeyTrigger   = "trigger"
	KeyPhase     = "phase"
	KeyRoles     = "roles"
)

// HookFunc defines the signature for an action hook.
// It receives a context and the shared transition context map.
type HookFunc func(ctx context.Context, hookCtx map[string]any) error

// Failure describes a hook that returned an error or panicked.
type Failure struct {
	Action string
	Err    error
}

// Registry manages the available hooks.
type Registry struct {
	mu     sync.RWMutex
	hooks  map[string]HookFunc
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		hooks:  make(map[string]HookFunc),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a hook to the registry.
// If a hook with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hooks[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run invokes the hooks for names in order with the shared hookCtx.
// It never fails; the returned slice lists the hooks that did.
func (r *Registry) Run(ctx context.Context, names []string, hookCtx map[string]any) []Failure {
	var failures []Failure
	for _, name := range names {
		r.mu.RLock()
		fn, ok := r.hooks[name]
		r.mu.RUnlock()

		if !ok {
			r.logger.Debug("action not registered, skipping", "action", name)
			continue
		}
		if err := r.invoke(ctx, fn, hookCtx); err != nil {
			r.logger.Warn("action hook failed", "action", name, "error", err)
			failures = append(failures, Failure{Action: name, Err: err})
		}
	}
	return failures
}

func (r *Registry) invoke(ctx context.Context, fn HookFunc, hookCtx map[string]any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook panicked: %v", rec)
		}
	}()
	return fn(ctx, hookCtx)
}

// LogTransition returns a hook that writes the transition context to logger.
func LogTransition(logger *slog.Logger) HookFunc {
	return func(ctx context.Context, hookCtx map[string]any) error {
		logger.InfoContext(ctx, "transition",
			"entity_id", hookCtx[KeyEntityID],
			"from", hookCtx[KeyFromState],
			"to", hookCtx[KeyToState],
			"phase", hookCtx[KeyPhase],
		)
		return nil
	}
}
