package workflow

import (
	"slices"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
)

// LookupType returns the entity type definition for (typeKind, typeID).
func (e *Engine) LookupType(ast *manifest.Ast, typeKind, typeID string) (*manifest.EntityTypeDef, error) {
	typ, ok := ast.EntityType(typeKind, typeID)
	if !ok {
		return nil, &domain.NotFoundError{Resource: "type", ID: typeKind + "/" + typeID}
	}
	return typ, nil
}

// Fields returns the custom field declarations of an entity type.
func (e *Engine) Fields(ast *manifest.Ast, typeKind, typeID string) ([]manifest.FieldDecl, error) {
	typ, err := e.LookupType(ast, typeKind, typeID)
	if err != nil {
		return nil, err
	}
	return typ.Fields, nil
}

// IsValidParentChild reports whether an entity of type child may be nested
// under an entity of type parent. Both types must exist under typeKind, at
// least one side must declare the relationship, and neither side may exclude it.
func (e *Engine) IsValidParentChild(ast *manifest.Ast, typeKind, parent, child string) bool {
	parentDef, ok := ast.EntityType(typeKind, parent)
	if !ok {
		return false
	}
	childDef, ok := ast.EntityType(typeKind, child)
	if !ok {
		return false
	}

	if !childDef.DeclaresParents() && !parentDef.DeclaresChildren() {
		return false
	}
	if childDef.DeclaresParents() && !slices.Contains(childDef.ParentTypes, parent) {
		return false
	}
	if parentDef.DeclaresChildren() && !slices.Contains(parentDef.ChildTypes, child) {
		return false
	}
	return true
}
