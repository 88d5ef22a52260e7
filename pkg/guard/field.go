package guard

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/aretw0/manifold/pkg/domain"
)

var customKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidField reports whether field is an addressable snapshot key:
// one of the whitelisted top-level keys or custom_fields.<key> with <key> in [A-Za-z0-9_]+.
func ValidField(field string) bool {
	switch field {
	case domain.FieldState, domain.FieldAssigneeID, domain.FieldAssignee,
		domain.FieldStateReason, domain.FieldResolution:
		return true
	}
	key, ok := strings.CutPrefix(field, domain.CustomFieldsPrefix)
	return ok && customKeyPattern.MatchString(key)
}

// ResolveField looks up field on snapshot. The boolean is false when the field
// is not addressable or, for custom fields, not set.
func ResolveField(snapshot domain.EntitySnapshot, field string) (any, bool) {
	switch field {
	case domain.FieldState:
		return snapshot.State, true
	case domain.FieldAssigneeID, domain.FieldAssignee:
		return snapshot.AssigneeID, true
	case domain.FieldStateReason:
		return snapshot.StateReason, true
	case domain.FieldResolution:
		return snapshot.Resolution, true
	}

	key, ok := strings.CutPrefix(field, domain.CustomFieldsPrefix)
	if !ok || !customKeyPattern.MatchString(key) {
		return nil, false
	}
	v, ok := snapshot.CustomFields[key]
	return v, ok
}

// IsEmpty reports whether v counts as "not set": nil, "" or an empty collection.
// Whitespace is a value.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Normalize returns v with every number widened to float64, recursing into
// []any and map[string]any. YAML manifests decode integers as int while JSON
// backed stores return float64; both compare equal after Normalize.
// Strings are never converted to numbers.
func Normalize(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
