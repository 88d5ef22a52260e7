package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/ports"
)

// ManifestProviderContractTest is a reusable test suite that verifies if an adapter complies with ports.ManifestProvider.
// setupData maps each version the provider was seeded with to the number of defs it holds.
func ManifestProviderContractTest(t *testing.T, provider ports.ManifestProvider, setupData map[string]int) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get_Success", func(t *testing.T) {
		for version, defs := range setupData {
			bundle, err := provider.Get(ctx, version)
			if err != nil {
				t.Fatalf("unexpected error getting version %s: %v", version, err)
			}
			if len(bundle.Defs) != defs {
				t.Errorf("def count mismatch for %s. got %d, want %d", version, len(bundle.Defs), defs)
			}
		}
	})

	t.Run("Get_Stable", func(t *testing.T) {
		for version := range setupData {
			a, err := provider.Get(ctx, version)
			if err != nil {
				t.Fatal(err)
			}
			b, err := provider.Get(ctx, version)
			if err != nil {
				t.Fatal(err)
			}
			if !sameKeys(a, b) {
				t.Errorf("version %s returned different content on second Get", version)
			}
		}
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := provider.Get(ctx, "non-existent-version")
		if !errors.Is(err, domain.ErrManifestNotFound) {
			t.Errorf("expected ErrManifestNotFound, got %v", err)
		}
	})

	t.Run("Versions", func(t *testing.T) {
		versions, err := provider.Versions(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing versions: %v", err)
		}

		if len(versions) != len(setupData) {
			t.Errorf("expected %d versions, got %d", len(setupData), len(versions))
		}

		lookup := make(map[string]bool)
		for _, v := range versions {
			lookup[v] = true
		}

		for v := range setupData {
			if !lookup[v] {
				t.Errorf("version %s missing from list", v)
			}
		}
	})
}

func sameKeys(a, b *manifest.Bundle) bool {
	if len(a.Defs) != len(b.Defs) {
		return false
	}
	for i := range a.Defs {
		if a.Defs[i].Kind != b.Defs[i].Kind || a.Defs[i].ID != b.Defs[i].ID {
			return false
		}
	}
	return true
}
