package guard

import (
	"fmt"
	"strings"
)

// Parse converts a guard value taken from a manifest into a Spec.
// It never fails: input it cannot interpret becomes Unrecognized, which
// evaluates to false.
//
// Accepted shapes:
//
//	guard: assignee_required
//	guard: {kind: field_present, field: custom_fields.severity}
//	guard: {kind: field_equals, field: state_reason, value: duplicate}
func Parse(raw any) Spec {
	switch v := raw.(type) {
	case nil:
		return None{}
	case string:
		return parseKind(Kind(strings.TrimSpace(v)), nil, raw)
	case map[string]any:
		return parseMap(v)
	default:
		return Unrecognized{Reason: fmt.Sprintf("unsupported guard value of type %T", raw), Raw: raw}
	}
}

func parseMap(m map[string]any) Spec {
	kindVal, ok := m["kind"]
	if !ok {
		kindVal, ok = m["type"]
	}
	if !ok {
		return Unrecognized{Reason: "guard is missing kind", Raw: m}
	}
	kind, ok := kindVal.(string)
	if !ok {
		return Unrecognized{Reason: "guard kind must be a string", Raw: m}
	}
	return parseKind(Kind(strings.TrimSpace(kind)), m, m)
}

func parseKind(kind Kind, params map[string]any, raw any) Spec {
	switch kind {
	case "", KindNone:
		return None{}
	case KindAssigneeRequired:
		return AssigneeRequired{}
	case KindFieldPresent:
		field, ok := fieldParam(params)
		if !ok {
			return Unrecognized{Reason: "field_present requires a whitelisted field", Raw: raw}
		}
		return FieldPresent{Field: field}
	case KindFieldEquals:
		field, ok := fieldParam(params)
		if !ok {
			return Unrecognized{Reason: "field_equals requires a whitelisted field", Raw: raw}
		}
		value, ok := params["value"]
		if !ok {
			return Unrecognized{Reason: "field_equals requires a value", Raw: raw}
		}
		return FieldEquals{Field: field, Value: Normalize(value)}
	default:
		return Unrecognized{Reason: fmt.Sprintf("unknown guard kind %q", kind), Raw: raw}
	}
}

func fieldParam(params map[string]any) (string, bool) {
	if params == nil {
		return "", false
	}
	field, ok := params["field"].(string)
	if !ok || !ValidField(field) {
		return "", false
	}
	return field, true
}

// Describe renders spec for diagnostics and policy-denied messages.
func Describe(spec Spec) string {
	switch g := spec.(type) {
	case nil, None:
		return "none"
	case AssigneeRequired:
		return "assignee required"
	case FieldPresent:
		return fmt.Sprintf("field %q must be set", g.Field)
	case FieldEquals:
		return fmt.Sprintf("field %q must equal %v", g.Field, g.Value)
	case Unrecognized:
		return "unrecognized guard: " + g.Reason
	default:
		return string(spec.Kind())
	}
}
