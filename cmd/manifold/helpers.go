package main

import (
	"context"
	"fmt"

	"github.com/aretw0/manifold/internal/cache"
	"github.com/aretw0/manifold/pkg/adapters/file"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/spf13/cobra"
)

// manifests bundles the provider and cache a command works with.
type manifests struct {
	provider *file.Provider
	cache    *cache.Cache
}

func openManifests(cmd *cobra.Command) (*manifests, error) {
	logger, err := loggerFrom(cmd)
	if err != nil {
		return nil, err
	}
	dir, _ := cmd.Flags().GetString("dir")
	return &manifests{
		provider: file.NewProvider(dir, file.WithLogger(logger)),
		cache:    cache.New(cache.WithLogger(logger)),
	}, nil
}

func (m *manifests) ast(ctx context.Context, version string) (*manifest.Ast, error) {
	ast, err := m.cache.GetOrLoad(ctx, version, func(ctx context.Context) (*manifest.Bundle, error) {
		return m.provider.Get(ctx, version)
	})
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", version, err)
	}
	return ast, nil
}
