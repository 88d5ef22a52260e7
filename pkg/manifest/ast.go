package manifest

// Ast is the parsed, typed form of a Bundle, indexed by (kind, id).
// It is read-only once built; accessors return pointers into shared state that
// callers must not modify.
type Ast struct {
	workflows   map[string]*WorkflowDef
	entityTypes map[Key]*EntityTypeDef
	policies    []*TransitionPolicyDef
	opaque      map[Key]*OpaqueDef
	order       []Key
}

// NewAst assembles an Ast. It is used by the compiler; the slices and maps
// passed in are owned by the Ast afterwards.
func NewAst(
	workflows map[string]*WorkflowDef,
	entityTypes map[Key]*EntityTypeDef,
	policies []*TransitionPolicyDef,
	opaque map[Key]*OpaqueDef,
	order []Key,
) *Ast {
	return &Ast{
		workflows:   workflows,
		entityTypes: entityTypes,
		policies:    policies,
		opaque:      opaque,
		order:       order,
	}
}

// Workflow returns the workflow with the given id.
func (a *Ast) Workflow(id string) (*WorkflowDef, bool) {
	w, ok := a.workflows[id]
	return w, ok
}

// EntityType returns the entity type definition for (kind, id).
func (a *Ast) EntityType(kind, id string) (*EntityTypeDef, bool) {
	t, ok := a.entityTypes[Key{Kind: kind, ID: id}]
	return t, ok
}

// Policies returns all transition policies in declaration order.
func (a *Ast) Policies() []*TransitionPolicyDef {
	return a.policies
}

// Opaque returns a definition of an uninterpreted kind.
func (a *Ast) Opaque(kind, id string) (*OpaqueDef, bool) {
	d, ok := a.opaque[Key{Kind: kind, ID: id}]
	return d, ok
}

// Has reports whether any definition exists under (kind, id).
func (a *Ast) Has(kind, id string) bool {
	key := Key{Kind: kind, ID: id}
	switch {
	case kind == KindWorkflow:
		_, ok := a.workflows[id]
		return ok
	case IsEntityTypeKind(kind):
		_, ok := a.entityTypes[key]
		return ok
	case kind == KindTransitionPolicy:
		for _, p := range a.policies {
			if p.ID == id {
				return true
			}
		}
		return false
	default:
		_, ok := a.opaque[key]
		return ok
	}
}

// Keys lists every definition in declaration order.
func (a *Ast) Keys() []Key {
	return a.order
}

// Workflows lists workflows in declaration order.
func (a *Ast) Workflows() []*WorkflowDef {
	out := make([]*WorkflowDef, 0, len(a.workflows))
	for _, k := range a.order {
		if k.Kind == KindWorkflow {
			out = append(out, a.workflows[k.ID])
		}
	}
	return out
}

// EntityTypes lists entity types in declaration order.
func (a *Ast) EntityTypes() []*EntityTypeDef {
	out := make([]*EntityTypeDef, 0, len(a.entityTypes))
	for _, k := range a.order {
		if t, ok := a.entityTypes[k]; ok {
			out = append(out, t)
		}
	}
	return out
}
