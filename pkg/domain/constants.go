package domain

// Snapshot field names addressable by guards and transition policies.
const (
	FieldState       = "state"
	FieldAssigneeID  = "assignee_id"
	FieldAssignee    = "assignee" // alias of assignee_id
	FieldStateReason = "state_reason"
	FieldResolution  = "resolution"

	// CustomFieldsPrefix namespaces tenant-defined fields, e.g. "custom_fields.severity".
	CustomFieldsPrefix = "custom_fields."
)

// ResolvedLikeStates are the target states that require a resolution when the
// workflow declares a resolution vocabulary.
var ResolvedLikeStates = map[string]bool{
	"resolved": true,
	"closed":   true,
	"done":     true,
}

// IsResolvedLike reports whether state belongs to the fixed resolved-like set.
func IsResolvedLike(state string) bool {
	return ResolvedLikeStates[state]
}
