package compiler

import (
	"fmt"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw manifest documents into Bundles and
// Bundles into typed Asts.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes and compiles a raw manifest document in one step.
func (p *Parser) Parse(data []byte) (*manifest.Ast, error) {
	bundle, err := p.Decode(data)
	if err != nil {
		return nil, err
	}
	return p.Compile(bundle)
}

// Decode turns a YAML (or JSON) manifest document into a Bundle.
//
// The document is either a list of definitions or a map with a "defs" list.
// Each definition carries "kind" and "id"; its remaining keys (or the content
// of a nested "props" map) become the definition's properties.
func (p *Parser) Decode(data []byte) (*manifest.Bundle, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("failed to parse manifest: %v", err), Err: err}
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["defs"].([]any)
		if !ok {
			return nil, invalid(&CompileError{Index: -1, Field: "defs", Message: "must be a list of definitions"})
		}
		items = list
	case nil:
		return &manifest.Bundle{}, nil
	default:
		return nil, invalid(&CompileError{Index: -1, Message: fmt.Sprintf("unexpected document of type %T", doc)})
	}

	bundle := &manifest.Bundle{Defs: make([]manifest.Def, 0, len(items))}
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalid(&CompileError{Index: i, Message: fmt.Sprintf("definition must be a map, got %T", item)})
		}
		def, err := decodeDef(i, m)
		if err != nil {
			return nil, err
		}
		bundle.Defs = append(bundle.Defs, def)
	}
	return bundle, nil
}

func decodeDef(index int, m map[string]any) (manifest.Def, error) {
	kind, err := requiredString(index, m, "kind")
	if err != nil {
		return manifest.Def{}, err
	}
	id, err := requiredString(index, m, "id")
	if err != nil {
		return manifest.Def{}, err
	}

	props := make(map[string]any, len(m))
	if nested, ok := m["props"].(map[string]any); ok {
		for k, v := range nested {
			props[k] = v
		}
	}
	for k, v := range m {
		switch k {
		case "kind", "id", "props":
			continue
		}
		props[k] = v
	}

	return manifest.Def{Kind: kind, ID: id, Props: props}, nil
}

func requiredString(index int, m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", invalid(&CompileError{Index: index, Field: key, Message: "is required"})
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", invalid(&CompileError{Index: index, Field: key, Message: "must be a non-empty string"})
	}
	return s, nil
}

func invalid(ce *CompileError) error {
	return &domain.ValidationError{Message: ce.Error(), Err: ce}
}
