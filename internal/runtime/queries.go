package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/workflow"
)

// PermittedTriggers lists the transitions currently available to the entity,
// in declaration order, filtered by their guards.
func (o *Orchestrator) PermittedTriggers(ctx context.Context, entityID string) ([]workflow.Trigger, error) {
	entity, err := o.load(ctx, entityID)
	if err != nil {
		return nil, err
	}
	wf, err := o.Workflow(ctx, entity.ManifestVersion, entity.TypeKind, entity.TypeID)
	if err != nil {
		return nil, err
	}
	from := entity.Snapshot.State
	if from == "" {
		from = o.machine.InitialState(wf)
	}
	return o.machine.PermittedTriggers(wf, from, entity.Snapshot), nil
}

// Workflow resolves the workflow bound to an entity type in a manifest version.
func (o *Orchestrator) Workflow(ctx context.Context, version, typeKind, typeID string) (*manifest.WorkflowDef, error) {
	ast, err := o.ast(ctx, version)
	if err != nil {
		return nil, err
	}
	return o.resolve(ast, typeKind, typeID)
}

// InitialState returns the state new entities of the type start in.
func (o *Orchestrator) InitialState(ctx context.Context, version, typeKind, typeID string) (string, error) {
	wf, err := o.Workflow(ctx, version, typeKind, typeID)
	if err != nil {
		return "", err
	}
	return o.machine.InitialState(wf), nil
}

// IsValidParentChild reports whether parent may contain child in a manifest version.
func (o *Orchestrator) IsValidParentChild(ctx context.Context, version, typeKind, parent, child string) (bool, error) {
	ast, err := o.ast(ctx, version)
	if err != nil {
		return false, err
	}
	return o.machine.IsValidParentChild(ast, typeKind, parent, child), nil
}

// Create stores a new entity in its workflow's initial state.
// A non-empty snapshot state must be declared by the workflow. Create fails
// with a ValidationError when the id is already taken; the existence check and
// the write are not atomic.
func (o *Orchestrator) Create(ctx context.Context, entity *domain.Entity) (*domain.Entity, error) {
	if entity == nil || entity.ID == "" {
		return nil, domain.NewValidationError("entity id is required")
	}
	if entity.ManifestVersion == "" {
		return nil, &domain.ValidationError{Field: "manifest_version", Message: "is required"}
	}

	wf, err := o.Workflow(ctx, entity.ManifestVersion, entity.TypeKind, entity.TypeID)
	if err != nil {
		return nil, err
	}

	if _, err := o.store.Load(ctx, entity.ID); err == nil {
		return nil, &domain.ValidationError{Field: "id", Message: fmt.Sprintf("entity %q already exists", entity.ID)}
	} else if !errors.Is(err, domain.ErrEntityNotFound) {
		return nil, fmt.Errorf("failed to load entity %q: %w", entity.ID, err)
	}

	next := entity.Clone()
	switch {
	case next.Snapshot.State == "":
		next.Snapshot.State = o.machine.InitialState(wf)
	case !wf.HasState(next.Snapshot.State):
		return nil, &domain.ValidationError{
			Field:   domain.FieldState,
			Message: fmt.Sprintf("state %q is not declared by workflow %q", next.Snapshot.State, wf.ID),
		}
	}

	version, err := o.store.Save(ctx, next, "")
	if err != nil {
		return nil, fmt.Errorf("failed to save entity %q: %w", entity.ID, err)
	}
	next.Version = version
	o.logger.Info("entity created", "entity_id", next.ID, "state", next.Snapshot.State, "version", version)
	return next, nil
}
