package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
)

// Severity ranks an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Lint.
type Issue struct {
	Severity Severity
	Kind     string
	ID       string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s/%s: %s", i.Severity, i.Kind, i.ID, i.Message)
}

// Lint inspects a compiled manifest for references the engine cannot honor at
// transition time. Compilation accepts all of these; they only surface as
// rejected transitions.
func Lint(ast *manifest.Ast) []Issue {
	if ast == nil {
		return nil
	}
	var issues []Issue
	for _, wf := range ast.Workflows() {
		issues = append(issues, lintWorkflow(wf)...)
	}
	for _, et := range ast.EntityTypes() {
		issues = append(issues, lintEntityType(ast, et)...)
	}
	issues = append(issues, lintPolicies(ast)...)
	return issues
}

// ValidateManifest returns an error listing every error-level issue.
func ValidateManifest(ast *manifest.Ast) error {
	var errs []string
	for _, issue := range Lint(ast) {
		if issue.Severity == SeverityError {
			errs = append(errs, fmt.Sprintf("%s/%s: %s", issue.Kind, issue.ID, issue.Message))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

func lintWorkflow(wf *manifest.WorkflowDef) []Issue {
	var issues []Issue
	report := func(sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Kind: manifest.KindWorkflow, ID: wf.ID, Message: fmt.Sprintf(format, args...)})
	}

	type fromTrigger struct{ from, trigger string }
	triggers := make(map[fromTrigger]bool)
	for i, edge := range wf.Transitions {
		if !wf.HasState(edge.From) {
			report(SeverityError, "transitions[%d] leaves undeclared state %q", i, edge.From)
		}
		if !wf.HasState(edge.To) {
			report(SeverityError, "transitions[%d] enters undeclared state %q", i, edge.To)
		}
		if u, ok := edge.Guard.(guard.Unrecognized); ok {
			report(SeverityError, "transitions[%d] guard can never pass: %s", i, u.Reason)
		}
		key := fromTrigger{edge.From, edge.Trigger}
		if triggers[key] {
			report(SeverityWarning, "trigger %q is declared twice from state %q; the first edge wins", edge.Trigger, edge.From)
		}
		triggers[key] = true
	}

	reached := reachable(wf)
	for _, s := range wf.States {
		if !reached[s] {
			report(SeverityWarning, "state %q is unreachable from initial state %q", s, wf.Initial)
		}
	}
	return issues
}

// reachable walks the edges breadth-first from the initial state.
func reachable(wf *manifest.WorkflowDef) map[string]bool {
	visited := map[string]bool{wf.Initial: true}
	queue := []string{wf.Initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range wf.Transitions {
			if edge.From == current && !visited[edge.To] {
				visited[edge.To] = true
				queue = append(queue, edge.To)
			}
		}
	}
	return visited
}

func lintEntityType(ast *manifest.Ast, et *manifest.EntityTypeDef) []Issue {
	var issues []Issue
	report := func(format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Kind: et.Kind, ID: et.ID, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case et.WorkflowID == "":
		report("workflow_id is not set")
	default:
		if _, ok := ast.Workflow(et.WorkflowID); !ok {
			report("workflow %q is not defined", et.WorkflowID)
		}
	}
	for _, p := range et.ParentTypes {
		if _, ok := ast.EntityType(et.Kind, p); !ok {
			report("parent type %q is not defined", p)
		}
	}
	for _, c := range et.ChildTypes {
		if _, ok := ast.EntityType(et.Kind, c); !ok {
			report("child type %q is not defined", c)
		}
	}
	return issues
}

func lintPolicies(ast *manifest.Ast) []Issue {
	states := make(map[string]bool)
	for _, wf := range ast.Workflows() {
		for _, s := range wf.States {
			states[s] = true
		}
	}

	var issues []Issue
	for _, p := range ast.Policies() {
		switch {
		case p.WhenState == "":
			issues = append(issues, Issue{Severity: SeverityWarning, Kind: manifest.KindTransitionPolicy, ID: p.ID, Message: "when.state is not set; the policy never applies"})
		case !states[p.WhenState]:
			issues = append(issues, Issue{Severity: SeverityWarning, Kind: manifest.KindTransitionPolicy, ID: p.ID, Message: fmt.Sprintf("state %q is not declared by any workflow", p.WhenState)})
		}
		if p.Require != "" && !guard.ValidField(p.Require) {
			issues = append(issues, Issue{Severity: SeverityError, Kind: manifest.KindTransitionPolicy, ID: p.ID, Message: fmt.Sprintf("field %q cannot be addressed; the policy always fails", p.Require)})
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
	return issues
}
