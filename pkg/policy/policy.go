// Package policy checks cross-cutting transition policies: rules keyed on the
// target state rather than on a single edge.
package policy

import (
	"fmt"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
)

// Violation is one failed policy.
type Violation struct {
	Policy  string `json:"policy"`
	Field   string `json:"field"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// Check evaluates every TransitionPolicy whose target state is targetState
// against snapshot. All violations are returned; an empty slice means the
// transition is allowed. Check never fails and never mutates snapshot.
//
// A policy requiring a field that cannot be addressed on a snapshot is
// treated as unsatisfied.
func Check(ast *manifest.Ast, targetState string, snapshot domain.EntitySnapshot) []Violation {
	violations := make([]Violation, 0)
	if ast == nil {
		return violations
	}
	for _, p := range ast.Policies() {
		if p.WhenState != targetState || p.Require == "" {
			continue
		}
		v, ok := guard.ResolveField(snapshot, p.Require)
		if ok && !guard.IsEmpty(v) {
			continue
		}
		violations = append(violations, Violation{
			Policy:  p.ID,
			Field:   p.Require,
			State:   targetState,
			Message: fmt.Sprintf("field %q is required when entering state %q", p.Require, targetState),
		})
	}
	return violations
}

// Messages extracts the human-readable messages of violations.
func Messages(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Message)
	}
	return out
}
