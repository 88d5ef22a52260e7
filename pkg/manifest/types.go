package manifest

import "github.com/aretw0/manifold/pkg/guard"

// Option is one entry of a closed vocabulary (state reasons, resolutions).
type Option struct {
	ID    string `json:"id" mapstructure:"id"`
	Label string `json:"label" mapstructure:"label"`
}

// WorkflowDef is a finite state machine.
type WorkflowDef struct {
	ID string

	// States is an ordered set of state ids.
	States []string

	// Initial is always a member of States (the first state when the manifest omits it or names an unknown state).
	Initial string

	// Transitions in declaration order.
	Transitions []TransitionEdge

	StateReasonOptions []Option
	ResolutionOptions  []Option
}

// HasState reports whether state is declared.
func (w *WorkflowDef) HasState(state string) bool {
	for _, s := range w.States {
		if s == state {
			return true
		}
	}
	return false
}

// TransitionEdge is a declared (from, to) pair.
type TransitionEdge struct {
	From string
	To   string

	// Trigger defaults to To when the manifest omits it.
	Trigger string
	// TriggerLabel defaults to Trigger.
	TriggerLabel string

	// Guard is never nil; edges without a guard carry guard.None.
	Guard guard.Spec

	OnEnter []string
	OnLeave []string
}

// TransitionPolicyDef requires a snapshot field to be set when entering a state.
type TransitionPolicyDef struct {
	ID        string
	WhenState string
	Require   string
}

// FieldDecl declares a custom field on an entity type.
type FieldDecl struct {
	Name     string `json:"name" mapstructure:"name"`
	Type     string `json:"type" mapstructure:"type"`
	Required bool   `json:"required" mapstructure:"required"`
}

// EntityTypeDef binds an entity type to its workflow and hierarchy constraints.
type EntityTypeDef struct {
	Kind       string
	ID         string
	WorkflowID string

	// ParentTypes and ChildTypes are nil when the manifest declares no constraint.
	// A declared empty list is non-nil.
	ParentTypes []string
	ChildTypes  []string

	Fields []FieldDecl
}

// DeclaresParents reports whether the type constrains its parents.
func (t *EntityTypeDef) DeclaresParents() bool { return t.ParentTypes != nil }

// DeclaresChildren reports whether the type constrains its children.
func (t *EntityTypeDef) DeclaresChildren() bool { return t.ChildTypes != nil }

// OpaqueDef is a definition of a kind this engine does not interpret.
type OpaqueDef struct {
	Kind  string
	ID    string
	Props map[string]any
}
