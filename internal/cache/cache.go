// Package cache holds parsed manifest ASTs keyed by immutable version id.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/manifold/internal/compiler"
	"github.com/aretw0/manifold/internal/logging"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/observability"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxSize is the number of ASTs kept before eviction kicks in.
const DefaultMaxSize = 128

// LoadFunc fetches the raw bundle for a version on a cache miss.
type LoadFunc func(ctx context.Context) (*manifest.Bundle, error)

// Cache maps a manifest version id to its compiled Ast.
//
// A version id is assumed to identify its content permanently: once an entry
// exists, the bundle passed for that id is never inspected again. When the
// cache grows past its maximum, the oldest half of the entries (by insertion
// order, not recency) is dropped.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*manifest.Ast
	order   []string

	group   singleflight.Group
	parser  *compiler.Parser
	maxSize int
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxSize sets the eviction threshold. Values below 1 are ignored.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithMetrics records hits, misses and evictions.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*manifest.Ast),
		parser:  compiler.NewParser(),
		maxSize: DefaultMaxSize,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "ast_cache")
	return c
}

// GetOrBuild returns the Ast for version, compiling bundle on a miss.
func (c *Cache) GetOrBuild(version string, bundle *manifest.Bundle) (*manifest.Ast, error) {
	return c.GetOrLoad(context.Background(), version, func(context.Context) (*manifest.Bundle, error) {
		return bundle, nil
	})
}

// GetOrLoad returns the Ast for version, calling load only on a miss.
// Concurrent misses for the same version share one load and one build. The
// shared load keeps ctx's values but not its cancellation, so a caller that
// gives up does not fail the others waiting on the same version.
// Failed builds are not cached.
func (c *Cache) GetOrLoad(ctx context.Context, version string, load LoadFunc) (*manifest.Ast, error) {
	if ast, ok := c.get(version); ok {
		c.metrics.CacheHit()
		return ast, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(version, func() (any, error) {
		// Another flight may have finished between our read and this call.
		if ast, ok := c.get(version); ok {
			return ast, nil
		}
		c.metrics.CacheMiss()

		bundle, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		ast, err := c.parser.Compile(bundle)
		if err != nil {
			c.logger.Warn("manifest rejected", "version", version, "error", err)
			return nil, err
		}
		return c.insert(version, ast), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*manifest.Ast), nil
}

func (c *Cache) get(version string) (*manifest.Ast, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ast, ok := c.entries[version]
	return ast, ok
}

// insert stores ast unless an entry already exists, in which case the
// existing entry wins and is returned.
func (c *Cache) insert(version string, ast *manifest.Ast) *manifest.Ast {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[version]; ok {
		return existing
	}
	c.entries[version] = ast
	c.order = append(c.order, version)

	if len(c.entries) > c.maxSize {
		c.evictOldestHalf()
	}
	return ast
}

// evictOldestHalf must be called with mu held.
func (c *Cache) evictOldestHalf() {
	n := len(c.order) / 2
	for _, v := range c.order[:n] {
		delete(c.entries, v)
	}
	c.order = append([]string(nil), c.order[n:]...)

	c.metrics.CacheEvicted(n)
	c.logger.Debug("evicted manifest versions", "count", n, "remaining", len(c.order))
}

// Len returns the number of cached versions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Contains reports whether version is cached.
func (c *Cache) Contains(version string) bool {
	_, ok := c.get(version)
	return ok
}
