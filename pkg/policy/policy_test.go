package policy_test

import (
	"testing"

	"github.com/aretw0/manifold/internal/compiler"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const policies = `
- {kind: Workflow, id: wf, states: [new, active, resolved]}
- kind: TransitionPolicy
  id: assignee-on-active
  when: {state: active}
  require: assignee
- kind: TransitionPolicy
  id: severity-on-active
  when: {state: active}
  require: custom_fields.severity
- kind: TransitionPolicy
  id: reason-on-resolved
  when: {state: resolved}
  require: state_reason
- kind: TransitionPolicy
  id: unconstrained
  when: {state: resolved}
- kind: TransitionPolicy
  id: bogus-field
  when: {state: new}
  require: title
`

func TestCheck(t *testing.T) {
	ast, err := compiler.NewParser().Parse([]byte(policies))
	require.NoError(t, err)

	t.Run("collects every violation", func(t *testing.T) {
		got := policy.Check(ast, "active", domain.EntitySnapshot{State: "new"})
		require.Len(t, got, 2)
		assert.Equal(t, "assignee-on-active", got[0].Policy)
		assert.Contains(t, got[0].Message, "assignee")
		assert.Contains(t, got[0].Message, "active")
		assert.Equal(t, "custom_fields.severity", got[1].Field)
	})

	t.Run("satisfied", func(t *testing.T) {
		snap := domain.EntitySnapshot{AssigneeID: "u1", CustomFields: map[string]any{"severity": 2}}
		assert.Empty(t, policy.Check(ast, "active", snap))
	})

	t.Run("empty values do not count", func(t *testing.T) {
		snap := domain.EntitySnapshot{AssigneeID: "", CustomFields: map[string]any{"severity": ""}}
		assert.Len(t, policy.Check(ast, "active", snap), 2)
	})

	t.Run("whitespace is a value", func(t *testing.T) {
		snap := domain.EntitySnapshot{AssigneeID: "  ", CustomFields: map[string]any{"severity": " "}}
		assert.Empty(t, policy.Check(ast, "active", snap))
	})

	t.Run("policy without require is ignored", func(t *testing.T) {
		got := policy.Check(ast, "resolved", domain.EntitySnapshot{})
		require.Len(t, got, 1)
		assert.Equal(t, "reason-on-resolved", got[0].Policy)
	})

	t.Run("no policy for state", func(t *testing.T) {
		got := policy.Check(ast, "closed", domain.EntitySnapshot{})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unaddressable field is unsatisfied", func(t *testing.T) {
		assert.Len(t, policy.Check(ast, "new", domain.EntitySnapshot{}), 1)
	})

	t.Run("nil ast", func(t *testing.T) {
		assert.Empty(t, policy.Check(nil, "active", domain.EntitySnapshot{}))
	})
}

func TestMessages(t *testing.T) {
	msgs := policy.Messages([]policy.Violation{{Message: "a"}, {Message: "b"}})
	assert.Equal(t, []string{"a", "b"}, msgs)
	assert.Empty(t, policy.Messages(nil))
}
