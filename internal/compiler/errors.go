package compiler

import "fmt"

// CompileError describes a structurally malformed manifest definition.
type CompileError struct {
	Index   int    // position of the Def in the bundle, -1 when not applicable
	Kind    string // Def kind, if known
	ID      string // Def id, if known
	Field   string // offending property path, e.g. "transitions[2].to"
	Message string
}

func (e *CompileError) Error() string {
	loc := fmt.Sprintf("defs[%d]", e.Index)
	if e.Index < 0 {
		loc = "manifest"
	}
	if e.Kind != "" || e.ID != "" {
		loc = fmt.Sprintf("%s (%s/%s)", loc, e.Kind, e.ID)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", loc, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}
