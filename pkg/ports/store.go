package ports

import (
	"context"

	"github.com/aretw0/manifold/pkg/domain"
)

// EntityStore persists entities under optimistic concurrency.
type EntityStore interface {
	// Load retrieves an entity.
	// Returns domain.ErrEntityNotFound if the entity does not exist.
	Load(ctx context.Context, id string) (*domain.Entity, error)

	// Save writes entity and returns its new version token.
	// When expectedVersion is non-empty and differs from the stored token, nothing
	// is written and domain.ErrVersionConflict is returned. An empty
	// expectedVersion writes unconditionally.
	// The Version field of entity is ignored.
	Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error)

	// Delete removes an entity. Deleting a missing entity is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored entities.
	List(ctx context.Context) ([]string, error)
}

// Authorizer is an external, event-based ACL that callers may consult before
// asking for a transition. The engine never calls it; its reasons are meant to
// be merged into a domain.PolicyDeniedError.
type Authorizer interface {
	// Authorize returns the reasons the request is denied, or none.
	Authorize(ctx context.Context, req *domain.TransitionRequest, entity *domain.Entity) []string
}
