package workflow

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/manifold/internal/logging"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
)

// Engine resolves and queries workflows.
type Engine struct {
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a workflow engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Actions are the hook names bound to an edge.
type Actions struct {
	OnEnter []string
	OnLeave []string
}

// Trigger is a transition available from a state.
type Trigger struct {
	Trigger string `json:"trigger"`
	To      string `json:"to"`
	Label   string `json:"label"`
}

// Target selects the destination of a transition, either explicitly or by trigger name.
// Exactly one field is expected to be set.
type Target struct {
	NewState string
	Trigger  string
}

// Resolve returns the workflow bound to the entity type (typeKind, typeID).
// A missing type or workflow yields a *domain.NotFoundError.
func (e *Engine) Resolve(ast *manifest.Ast, typeKind, typeID string) (*manifest.WorkflowDef, error) {
	typ, ok := ast.EntityType(typeKind, typeID)
	if !ok {
		return nil, &domain.NotFoundError{Resource: "type", ID: typeKind + "/" + typeID}
	}
	wf, ok := ast.Workflow(typ.WorkflowID)
	if !ok {
		return nil, &domain.NotFoundError{Resource: "workflow", ID: typ.WorkflowID}
	}
	return wf, nil
}

// InitialState returns the declared initial state, or the first state when
// the declared one is missing or unknown.
func (e *Engine) InitialState(wf *manifest.WorkflowDef) string {
	if wf.HasState(wf.Initial) {
		return wf.Initial
	}
	if len(wf.States) == 0 {
		return ""
	}
	return wf.States[0]
}

// Edge returns the first declared edge from -> to. The returned edge always
// carries a guard.
func (e *Engine) Edge(wf *manifest.WorkflowDef, from, to string) (manifest.TransitionEdge, bool) {
	for _, edge := range wf.Transitions {
		if edge.From == from && edge.To == to {
			edge.Guard = guardOf(edge)
			return edge, true
		}
	}
	return manifest.TransitionEdge{}, false
}

// IsValidTransition reports whether (from, to) is a declared edge.
func (e *Engine) IsValidTransition(wf *manifest.WorkflowDef, from, to string) bool {
	_, ok := e.Edge(wf, from, to)
	return ok
}

// TransitionActions returns the hooks of the edge from -> to, or empty lists.
func (e *Engine) TransitionActions(wf *manifest.WorkflowDef, from, to string) Actions {
	edge, ok := e.Edge(wf, from, to)
	if !ok {
		return Actions{OnEnter: []string{}, OnLeave: []string{}}
	}
	return Actions{
		OnEnter: append([]string{}, edge.OnEnter...),
		OnLeave: append([]string{}, edge.OnLeave...),
	}
}

// PermittedTriggers lists the edges leaving from whose guard passes against
// snapshot, in declaration order.
func (e *Engine) PermittedTriggers(wf *manifest.WorkflowDef, from string, snapshot domain.EntitySnapshot) []Trigger {
	triggers := make([]Trigger, 0)
	for _, edge := range wf.Transitions {
		if edge.From != from {
			continue
		}
		if !guard.Evaluate(guardOf(edge), snapshot) {
			e.logger.Debug("trigger hidden by guard",
				"workflow", wf.ID,
				"trigger", edge.Trigger,
				"guard", guard.Describe(guardOf(edge)),
			)
			continue
		}
		triggers = append(triggers, Trigger{Trigger: edge.Trigger, To: edge.To, Label: edge.TriggerLabel})
	}
	return triggers
}

// TriggerEdge returns the first edge leaving from whose trigger is trigger.
// Parallel edges between the same states are told apart by their triggers.
// The returned edge always carries a guard.
func (e *Engine) TriggerEdge(wf *manifest.WorkflowDef, from, trigger string) (manifest.TransitionEdge, bool) {
	for _, edge := range wf.Transitions {
		if edge.From == from && edge.Trigger == trigger {
			edge.Guard = guardOf(edge)
			return edge, true
		}
	}
	return manifest.TransitionEdge{}, false
}

// ResolveTransitionTarget returns the destination state for target.
// An explicit NewState is returned unchanged; its validity is checked by
// IsValidTransition. A Trigger is matched against the edges leaving from.
func (e *Engine) ResolveTransitionTarget(wf *manifest.WorkflowDef, from string, target Target) (string, error) {
	switch {
	case target.NewState != "" && target.Trigger != "":
		return "", &domain.ValidationError{
			Field:   "new_state|trigger",
			Message: "exactly one of new_state or trigger must be set",
		}
	case target.NewState != "":
		return target.NewState, nil
	case target.Trigger != "":
		if edge, ok := e.TriggerEdge(wf, from, target.Trigger); ok {
			return edge.To, nil
		}
		return "", &domain.ValidationError{
			Field:   "trigger",
			Message: fmt.Sprintf("trigger %q not permitted from current state %q", target.Trigger, from),
		}
	default:
		return "", &domain.ValidationError{
			Field:   "new_state|trigger",
			Message: "exactly one of new_state or trigger must be set",
		}
	}
}

// TargetEdge returns the edge a request moves along. A trigger selects the
// edge it names; an explicit NewState selects the first edge from -> NewState.
func (e *Engine) TargetEdge(wf *manifest.WorkflowDef, from string, target Target) (manifest.TransitionEdge, error) {
	to, err := e.ResolveTransitionTarget(wf, from, target)
	if err != nil {
		return manifest.TransitionEdge{}, err
	}
	if target.Trigger != "" {
		edge, _ := e.TriggerEdge(wf, from, target.Trigger)
		return edge, nil
	}
	edge, ok := e.Edge(wf, from, to)
	if !ok {
		return manifest.TransitionEdge{}, &domain.ValidationError{
			Field:   "new_state",
			Message: fmt.Sprintf("transition from %q to %q is not allowed", from, to),
		}
	}
	return edge, nil
}

// guardOf treats a missing guard as None. Compiled edges always carry one,
// but edges built by hand may not.
func guardOf(edge manifest.TransitionEdge) guard.Spec {
	if edge.Guard == nil {
		return guard.None{}
	}
	return edge.Guard
}
