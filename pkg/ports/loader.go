package ports

import (
	"context"

	"github.com/aretw0/manifold/pkg/manifest"
)

// ManifestProvider retrieves manifest bundles by version id.
// A version id permanently identifies its content; providers must never
// return different content for the same id.
type ManifestProvider interface {
	// Get returns the bundle stored under version.
	// Returns domain.ErrManifestNotFound if the version does not exist.
	Get(ctx context.Context, version string) (*manifest.Bundle, error)

	// Versions lists the known version ids.
	// This is used for introspection and tooling (e.g. 'manifold validate').
	Versions(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for providers that can notify about backend changes.
// This is typically used for dev-mode tooling.
type Watchable interface {
	// Watch returns a channel that receives the version id of every new or changed manifest.
	Watch(ctx context.Context) (<-chan string, error)
}
