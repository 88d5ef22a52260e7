package dsl

import (
	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
)

// WorkflowBuilder provides a fluent API for configuring a workflow.
type WorkflowBuilder struct {
	id          string
	states      []string
	initial     string
	reasons     []string
	resolutions []string
	edges       []*EdgeBuilder
	builder     *Builder
}

// States appends states in order.
func (w *WorkflowBuilder) States(states ...string) *WorkflowBuilder {
	w.states = append(w.states, states...)
	return w
}

// Initial sets the initial state. Without it the first state is used.
func (w *WorkflowBuilder) Initial(state string) *WorkflowBuilder {
	w.initial = state
	return w
}

// StateReasons declares the closed state reason vocabulary.
func (w *WorkflowBuilder) StateReasons(ids ...string) *WorkflowBuilder {
	w.reasons = append(w.reasons, ids...)
	return w
}

// Resolutions declares the closed resolution vocabulary.
func (w *WorkflowBuilder) Resolutions(ids ...string) *WorkflowBuilder {
	w.resolutions = append(w.resolutions, ids...)
	return w
}

// Edge declares a transition from -> to.
func (w *WorkflowBuilder) Edge(from, to string) *EdgeBuilder {
	eb := &EdgeBuilder{from: from, to: to, workflow: w}
	w.edges = append(w.edges, eb)
	return eb
}

// End returns to the manifest builder.
func (w *WorkflowBuilder) End() *Builder {
	return w.builder
}

func (w *WorkflowBuilder) def() manifest.Def {
	props := map[string]any{
		"states": append([]string(nil), w.states...),
	}
	if w.initial != "" {
		props["initial"] = w.initial
	}
	if len(w.reasons) > 0 {
		props["state_reason_options"] = append([]string(nil), w.reasons...)
	}
	if len(w.resolutions) > 0 {
		props["resolution_options"] = append([]string(nil), w.resolutions...)
	}
	transitions := make([]any, 0, len(w.edges))
	for _, e := range w.edges {
		transitions = append(transitions, e.props())
	}
	props["transitions"] = transitions
	return manifest.Def{Kind: manifest.KindWorkflow, ID: w.id, Props: props}
}

// EdgeBuilder provides a fluent API for configuring a transition edge.
type EdgeBuilder struct {
	from, to string
	trigger  string
	label    string
	guard    any
	onEnter  []string
	onLeave  []string
	workflow *WorkflowBuilder
}

// Trigger names the edge. Without it the trigger is the target state.
func (e *EdgeBuilder) Trigger(name string) *EdgeBuilder {
	e.trigger = name
	return e
}

// Label sets the human-readable trigger label.
func (e *EdgeBuilder) Label(label string) *EdgeBuilder {
	e.label = label
	return e
}

// RequireAssignee guards the edge on a non-empty assignee.
func (e *EdgeBuilder) RequireAssignee() *EdgeBuilder {
	e.guard = string(guard.KindAssigneeRequired)
	return e
}

// RequireField guards the edge on a non-empty snapshot field.
func (e *EdgeBuilder) RequireField(field string) *EdgeBuilder {
	e.guard = map[string]any{"kind": string(guard.KindFieldPresent), "field": field}
	return e
}

// RequireEquals guards the edge on a snapshot field equal to value.
func (e *EdgeBuilder) RequireEquals(field string, value any) *EdgeBuilder {
	e.guard = map[string]any{"kind": string(guard.KindFieldEquals), "field": field, "value": value}
	return e
}

// OnEnter appends actions run after the transition is committed.
func (e *EdgeBuilder) OnEnter(actions ...string) *EdgeBuilder {
	e.onEnter = append(e.onEnter, actions...)
	return e
}

// OnLeave appends actions run before the transition is committed.
func (e *EdgeBuilder) OnLeave(actions ...string) *EdgeBuilder {
	e.onLeave = append(e.onLeave, actions...)
	return e
}

// Edge declares another transition on the same workflow.
func (e *EdgeBuilder) Edge(from, to string) *EdgeBuilder {
	return e.workflow.Edge(from, to)
}

// End returns to the manifest builder.
func (e *EdgeBuilder) End() *Builder {
	return e.workflow.builder
}

func (e *EdgeBuilder) props() map[string]any {
	p := map[string]any{"from": e.from, "to": e.to}
	if e.trigger != "" {
		p["trigger"] = e.trigger
	}
	if e.label != "" {
		p["trigger_label"] = e.label
	}
	if e.guard != nil {
		p["guard"] = e.guard
	}
	if len(e.onEnter) > 0 {
		p["on_enter"] = append([]string(nil), e.onEnter...)
	}
	if len(e.onLeave) > 0 {
		p["on_leave"] = append([]string(nil), e.onLeave...)
	}
	return p
}
