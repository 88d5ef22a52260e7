package dsl

import (
	"fmt"

	"github.com/aretw0/manifold/pkg/adapters/memory"
	"github.com/aretw0/manifold/pkg/manifest"
)

// definer is implemented by every builder that contributes one Def.
type definer interface {
	def() manifest.Def
}

// Builder manages the manifest construction.
type Builder struct {
	defs      []definer
	workflows map[string]*WorkflowBuilder
	types     map[manifest.Key]*TypeBuilder
}

// New creates a new manifest builder.
func New() *Builder {
	return &Builder{
		workflows: make(map[string]*WorkflowBuilder),
		types:     make(map[manifest.Key]*TypeBuilder),
	}
}

// Workflow adds a workflow to the manifest.
// If the workflow already exists, it returns the existing builder.
func (b *Builder) Workflow(id string) *WorkflowBuilder {
	if wb, ok := b.workflows[id]; ok {
		return wb
	}
	wb := &WorkflowBuilder{id: id, builder: b}
	b.workflows[id] = wb
	b.defs = append(b.defs, wb)
	return wb
}

// Type adds an entity type of the given kind (TaskType, ProjectType, ...).
// If the type already exists, it returns the existing builder.
func (b *Builder) Type(kind, id string) *TypeBuilder {
	key := manifest.Key{Kind: kind, ID: id}
	if tb, ok := b.types[key]; ok {
		return tb
	}
	tb := &TypeBuilder{kind: kind, id: id}
	b.types[key] = tb
	b.defs = append(b.defs, tb)
	return tb
}

// TaskType is shorthand for Type(manifest.KindTaskType, id).
func (b *Builder) TaskType(id string) *TypeBuilder {
	return b.Type(manifest.KindTaskType, id)
}

// Policy adds a transition policy requiring field when entering state.
func (b *Builder) Policy(id, state, field string) *Builder {
	b.defs = append(b.defs, policyDef{id: id, state: state, field: field})
	return b
}

// Raw adds a definition of a kind the engine does not interpret.
func (b *Builder) Raw(kind, id string, props map[string]any) *Builder {
	b.defs = append(b.defs, rawDef{manifest.Def{Kind: kind, ID: id, Props: props}})
	return b
}

// Bundle returns the manifest document built so far.
func (b *Builder) Bundle() *manifest.Bundle {
	bundle := &manifest.Bundle{Defs: make([]manifest.Def, 0, len(b.defs))}
	for _, d := range b.defs {
		bundle.Defs = append(bundle.Defs, d.def())
	}
	return bundle
}

// Build stores the manifest under version in a new in-memory provider.
func (b *Builder) Build(version string) (*memory.Provider, error) {
	provider := memory.NewProvider()
	if err := provider.Put(version, b.Bundle()); err != nil {
		return nil, fmt.Errorf("failed to build memory provider: %w", err)
	}
	return provider, nil
}

type policyDef struct {
	id, state, field string
}

func (p policyDef) def() manifest.Def {
	return manifest.Def{
		Kind: manifest.KindTransitionPolicy,
		ID:   p.id,
		Props: map[string]any{
			"when":    map[string]any{"state": p.state},
			"require": p.field,
		},
	}
}

type rawDef struct {
	d manifest.Def
}

func (r rawDef) def() manifest.Def { return r.d }
