package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	backend "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultManifestPrefix namespaces manifest keys.
const DefaultManifestPrefix = "manifold:manifest:"

// Provider implements ports.ManifestProvider on Redis.
// Bundles are stored as YAML documents and published with SETNX, so a
// version can never be overwritten.
type Provider struct {
	client *backend.Client
	prefix string
}

// NewProvider creates a provider on an existing client. An empty prefix
// selects DefaultManifestPrefix.
func NewProvider(client *backend.Client, prefix string) *Provider {
	if prefix == "" {
		prefix = DefaultManifestPrefix
	}
	return &Provider{client: client, prefix: prefix}
}

func (p *Provider) key(version string) string {
	return p.prefix + version
}

func (p *Provider) indexKey() string {
	return p.prefix + "versions"
}

// Put publishes bundle under version. It fails if the version exists.
func (p *Provider) Put(ctx context.Context, version string, bundle *manifest.Bundle) error {
	data, err := yaml.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	ok, err := p.client.SetNX(ctx, p.key(version), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to publish manifest: %w", err)
	}
	if !ok {
		return fmt.Errorf("manifest version %s already exists", version)
	}
	if err := p.client.SAdd(ctx, p.indexKey(), version).Err(); err != nil {
		return fmt.Errorf("failed to index manifest: %w", err)
	}
	return nil
}

// Get retrieves the bundle stored under version.
func (p *Provider) Get(ctx context.Context, version string) (*manifest.Bundle, error) {
	val, err := p.client.Get(ctx, p.key(version)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, fmt.Errorf("manifest %s: %w", version, domain.ErrManifestNotFound)
		}
		return nil, fmt.Errorf("failed to get manifest from redis: %w", err)
	}

	var bundle manifest.Bundle
	if err := yaml.Unmarshal(val, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest %s: %w", version, err)
	}
	return &bundle, nil
}

// Versions returns all published version ids, sorted.
func (p *Provider) Versions(ctx context.Context) ([]string, error) {
	versions, err := p.client.SMembers(ctx, p.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	sort.Strings(versions)
	return versions, nil
}
