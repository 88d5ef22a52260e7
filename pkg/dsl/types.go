package dsl

import "github.com/aretw0/manifold/pkg/manifest"

// TypeBuilder provides a fluent API for configuring an entity type.
type TypeBuilder struct {
	kind, id   string
	workflowID string
	parents    *[]string
	children   *[]string
	fields     []manifest.FieldDecl
}

// Uses binds the type to a workflow.
func (t *TypeBuilder) Uses(workflowID string) *TypeBuilder {
	t.workflowID = workflowID
	return t
}

// Parents declares the allowed parent types. Calling it with no arguments
// declares that the type has no allowed parent.
func (t *TypeBuilder) Parents(types ...string) *TypeBuilder {
	list := append([]string{}, types...)
	t.parents = &list
	return t
}

// Children declares the allowed child types. Calling it with no arguments
// declares that the type has no allowed child.
func (t *TypeBuilder) Children(types ...string) *TypeBuilder {
	list := append([]string{}, types...)
	t.children = &list
	return t
}

// Field declares a custom field.
func (t *TypeBuilder) Field(name, typ string, required bool) *TypeBuilder {
	t.fields = append(t.fields, manifest.FieldDecl{Name: name, Type: typ, Required: required})
	return t
}

func (t *TypeBuilder) def() manifest.Def {
	props := map[string]any{}
	if t.workflowID != "" {
		props["workflow_id"] = t.workflowID
	}
	if t.parents != nil {
		props["parent_types"] = *t.parents
	}
	if t.children != nil {
		props["child_types"] = *t.children
	}
	if len(t.fields) > 0 {
		fields := make([]any, 0, len(t.fields))
		for _, f := range t.fields {
			fields = append(fields, map[string]any{"name": f.Name, "type": f.Type, "required": f.Required})
		}
		props["fields"] = fields
	}
	return manifest.Def{Kind: t.kind, ID: t.id, Props: props}
}
