package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/manifold/internal/compiler"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
)

// Provider implements ports.ManifestProvider using an in-memory map.
// Versions are write-once.
type Provider struct {
	mu       sync.RWMutex
	versions map[string]*manifest.Bundle
}

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{versions: make(map[string]*manifest.Bundle)}
}

// NewProviderFromYAML creates a provider from raw manifest documents keyed by version.
// This handles decoding automatically, improving DX for tests.
func NewProviderFromYAML(docs map[string]string) (*Provider, error) {
	p := NewProvider()
	parser := compiler.NewParser()
	for version, doc := range docs {
		bundle, err := parser.Decode([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", version, err)
		}
		if err := p.Put(version, bundle); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Put publishes bundle under version. Publishing an existing version fails:
// a new edit must always produce a new version.
func (p *Provider) Put(version string, bundle *manifest.Bundle) error {
	if version == "" {
		return fmt.Errorf("manifest version is required")
	}
	if bundle == nil {
		return fmt.Errorf("manifest %s: bundle is nil", version)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.versions[version]; exists {
		return fmt.Errorf("manifest version %s already exists", version)
	}
	p.versions[version] = bundle
	return nil
}

// Get retrieves the bundle stored under version.
func (p *Provider) Get(ctx context.Context, version string) (*manifest.Bundle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	bundle, ok := p.versions[version]
	if !ok {
		return nil, fmt.Errorf("manifest %s: %w", version, domain.ErrManifestNotFound)
	}
	return bundle, nil
}

// Versions returns all available version ids.
func (p *Provider) Versions(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.versions))
	for k := range p.versions {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
