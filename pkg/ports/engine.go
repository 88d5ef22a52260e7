package ports

import (
	"context"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/workflow"
)

// TransitionService is the use case exposed to adapters (CLI, HTTP handlers in
// the host application). It is implemented by the orchestrator.
type TransitionService interface {
	// Transition validates and applies req, returning the committed result.
	Transition(ctx context.Context, req domain.TransitionRequest) (*domain.TransitionResult, error)

	// PermittedTriggers lists the transitions currently available to an entity.
	PermittedTriggers(ctx context.Context, entityID string) ([]workflow.Trigger, error)
}
