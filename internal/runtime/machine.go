package runtime

import (
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/workflow"
)

// Machine is the workflow capability the orchestrator depends on.
// *workflow.Engine is its only production implementation; it is chosen once,
// when the orchestrator is built.
type Machine interface {
	Resolve(ast *manifest.Ast, typeKind, typeID string) (*manifest.WorkflowDef, error)
	InitialState(wf *manifest.WorkflowDef) string
	Edge(wf *manifest.WorkflowDef, from, to string) (manifest.TransitionEdge, bool)
	IsValidTransition(wf *manifest.WorkflowDef, from, to string) bool
	TransitionActions(wf *manifest.WorkflowDef, from, to string) workflow.Actions
	PermittedTriggers(wf *manifest.WorkflowDef, from string, snapshot domain.EntitySnapshot) []workflow.Trigger
	ResolveTransitionTarget(wf *manifest.WorkflowDef, from string, target workflow.Target) (string, error)
	TargetEdge(wf *manifest.WorkflowDef, from string, target workflow.Target) (manifest.TransitionEdge, error)
	IsValidParentChild(ast *manifest.Ast, typeKind, parent, child string) bool
}

var _ Machine = (*workflow.Engine)(nil)
