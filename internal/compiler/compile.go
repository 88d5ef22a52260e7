package compiler

import (
	"fmt"
	"reflect"

	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/mitchellh/mapstructure"
)

// rawWorkflow mirrors the manifest shape of a Workflow definition.
type rawWorkflow struct {
	States             []string          `mapstructure:"states"`
	Initial            string            `mapstructure:"initial"`
	Transitions        []rawEdge         `mapstructure:"transitions"`
	StateReasonOptions []manifest.Option `mapstructure:"state_reason_options"`
	ResolutionOptions  []manifest.Option `mapstructure:"resolution_options"`
}

type rawEdge struct {
	From         string   `mapstructure:"from"`
	To           string   `mapstructure:"to"`
	Trigger      string   `mapstructure:"trigger"`
	TriggerLabel string   `mapstructure:"trigger_label"`
	Label        string   `mapstructure:"label"`
	Guard        any      `mapstructure:"guard"`
	OnEnter      []string `mapstructure:"on_enter"`
	OnLeave      []string `mapstructure:"on_leave"`
}

type rawPolicy struct {
	When struct {
		State string `mapstructure:"state"`
	} `mapstructure:"when"`
	Require string `mapstructure:"require"`
}

type rawEntityType struct {
	WorkflowID  string               `mapstructure:"workflow_id"`
	ParentTypes *[]string            `mapstructure:"parent_types"`
	ChildTypes  *[]string            `mapstructure:"child_types"`
	Fields      []manifest.FieldDecl `mapstructure:"fields"`
}

// Compile parses a Bundle into an Ast.
//
// Kinds it does not interpret are kept as OpaqueDefs. Compile fails only on
// structurally malformed input: a Def without kind or id, a duplicate
// (kind, id), or properties of the wrong shape for an interpreted kind.
func (p *Parser) Compile(bundle *manifest.Bundle) (*manifest.Ast, error) {
	if bundle == nil {
		return nil, invalid(&CompileError{Index: -1, Message: "bundle is nil"})
	}

	workflows := make(map[string]*manifest.WorkflowDef)
	entityTypes := make(map[manifest.Key]*manifest.EntityTypeDef)
	opaque := make(map[manifest.Key]*manifest.OpaqueDef)
	var policies []*manifest.TransitionPolicyDef
	order := make([]manifest.Key, 0, len(bundle.Defs))
	seen := make(map[manifest.Key]bool, len(bundle.Defs))

	for i, def := range bundle.Defs {
		if def.Kind == "" {
			return nil, invalid(&CompileError{Index: i, ID: def.ID, Field: "kind", Message: "is required"})
		}
		if def.ID == "" {
			return nil, invalid(&CompileError{Index: i, Kind: def.Kind, Field: "id", Message: "is required"})
		}

		key := manifest.Key{Kind: def.Kind, ID: def.ID}
		if seen[key] {
			return nil, invalid(&CompileError{Index: i, Kind: def.Kind, ID: def.ID, Message: "duplicate definition"})
		}
		seen[key] = true
		order = append(order, key)

		switch {
		case def.Kind == manifest.KindWorkflow:
			wf, err := compileWorkflow(i, def)
			if err != nil {
				return nil, err
			}
			workflows[def.ID] = wf
		case def.Kind == manifest.KindTransitionPolicy:
			pol, err := compilePolicy(i, def)
			if err != nil {
				return nil, err
			}
			policies = append(policies, pol)
		case manifest.IsEntityTypeKind(def.Kind):
			et, err := compileEntityType(i, def)
			if err != nil {
				return nil, err
			}
			entityTypes[key] = et
		default:
			opaque[key] = &manifest.OpaqueDef{Kind: def.Kind, ID: def.ID, Props: def.Props}
		}
	}

	return manifest.NewAst(workflows, entityTypes, policies, opaque, order), nil
}

func compileWorkflow(index int, def manifest.Def) (*manifest.WorkflowDef, error) {
	var raw rawWorkflow
	if err := decode(def.Props, &raw); err != nil {
		return nil, invalid(&CompileError{Index: index, Kind: def.Kind, ID: def.ID, Message: err.Error()})
	}

	states := uniqueStates(raw.States)
	if len(states) == 0 {
		return nil, invalid(&CompileError{Index: index, Kind: def.Kind, ID: def.ID, Field: "states", Message: "at least one state is required"})
	}

	wf := &manifest.WorkflowDef{
		ID:                 def.ID,
		States:             states,
		Initial:            raw.Initial,
		Transitions:        make([]manifest.TransitionEdge, 0, len(raw.Transitions)),
		StateReasonOptions: normalizeOptions(raw.StateReasonOptions),
		ResolutionOptions:  normalizeOptions(raw.ResolutionOptions),
	}
	if !wf.HasState(wf.Initial) {
		wf.Initial = states[0]
	}

	for j, re := range raw.Transitions {
		if re.From == "" || re.To == "" {
			return nil, invalid(&CompileError{
				Index:   index,
				Kind:    def.Kind,
				ID:      def.ID,
				Field:   fmt.Sprintf("transitions[%d]", j),
				Message: "from and to are required",
			})
		}
		wf.Transitions = append(wf.Transitions, compileEdge(re))
	}

	return wf, nil
}

func compileEdge(re rawEdge) manifest.TransitionEdge {
	trigger := re.Trigger
	if trigger == "" {
		trigger = re.To
	}
	label := re.TriggerLabel
	if label == "" {
		label = re.Label
	}
	if label == "" {
		label = trigger
	}
	return manifest.TransitionEdge{
		From:         re.From,
		To:           re.To,
		Trigger:      trigger,
		TriggerLabel: label,
		Guard:        guard.Parse(re.Guard),
		OnEnter:      re.OnEnter,
		OnLeave:      re.OnLeave,
	}
}

func compilePolicy(index int, def manifest.Def) (*manifest.TransitionPolicyDef, error) {
	var raw rawPolicy
	if err := decode(def.Props, &raw); err != nil {
		return nil, invalid(&CompileError{Index: index, Kind: def.Kind, ID: def.ID, Message: err.Error()})
	}
	return &manifest.TransitionPolicyDef{
		ID:        def.ID,
		WhenState: raw.When.State,
		Require:   raw.Require,
	}, nil
}

func compileEntityType(index int, def manifest.Def) (*manifest.EntityTypeDef, error) {
	var raw rawEntityType
	if err := decode(def.Props, &raw); err != nil {
		return nil, invalid(&CompileError{Index: index, Kind: def.Kind, ID: def.ID, Message: err.Error()})
	}
	return &manifest.EntityTypeDef{
		Kind:        def.Kind,
		ID:          def.ID,
		WorkflowID:  raw.WorkflowID,
		ParentTypes: declaredList(raw.ParentTypes),
		ChildTypes:  declaredList(raw.ChildTypes),
		Fields:      raw.Fields,
	}, nil
}

// declaredList keeps the nil / declared-empty distinction of a hierarchy list.
func declaredList(v *[]string) []string {
	if v == nil {
		return nil
	}
	if *v == nil {
		return []string{}
	}
	return *v
}

func uniqueStates(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func normalizeOptions(in []manifest.Option) []manifest.Option {
	if in == nil {
		return nil
	}
	out := make([]manifest.Option, 0, len(in))
	for _, o := range in {
		if o.ID == "" {
			continue
		}
		if o.Label == "" {
			o.Label = o.ID
		}
		out = append(out, o)
	}
	return out
}

func decode(props map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: stringToOptionHook,
		Result:     out,
		TagName:    "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(props)
}

var optionType = reflect.TypeOf(manifest.Option{})

// stringToOptionHook lets vocabularies be written as plain ids: [fixed, wont_fix].
func stringToOptionHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != optionType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	return manifest.Option{ID: s, Label: s}, nil
}
