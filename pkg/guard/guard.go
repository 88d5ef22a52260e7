package guard

import (
	"reflect"

	"github.com/aretw0/manifold/pkg/domain"
)

// Kind names a guard variant as written in a manifest.
type Kind string

const (
	KindNone             Kind = "none"
	KindAssigneeRequired Kind = "assignee_required"
	KindFieldPresent     Kind = "field_present"
	KindFieldEquals      Kind = "field_equals"
)

// Spec is a guard predicate. The variant set is closed: only the types in this
// package implement it.
type Spec interface {
	Kind() Kind
	isGuard()
}

// None always passes.
type None struct{}

// AssigneeRequired passes when the snapshot has a non-empty assignee.
type AssigneeRequired struct{}

// FieldPresent passes when the referenced field resolves to a non-empty value.
type FieldPresent struct {
	Field string
}

// FieldEquals passes when the referenced field resolves to exactly Value.
type FieldEquals struct {
	Field string
	Value any
}

// Unrecognized holds a guard the manifest declared but this package cannot
// interpret. It always evaluates to false.
type Unrecognized struct {
	Reason string
	Raw    any
}

func (None) Kind() Kind             { return KindNone }
func (AssigneeRequired) Kind() Kind { return KindAssigneeRequired }
func (FieldPresent) Kind() Kind     { return KindFieldPresent }
func (FieldEquals) Kind() Kind      { return KindFieldEquals }
func (Unrecognized) Kind() Kind     { return "unrecognized" }

func (None) isGuard()             {}
func (AssigneeRequired) isGuard() {}
func (FieldPresent) isGuard()     {}
func (FieldEquals) isGuard()      {}
func (Unrecognized) isGuard()     {}

// Evaluate reports whether spec passes for snapshot.
// It is pure and total: a nil, unrecognized or malformed spec yields false.
func Evaluate(spec Spec, snapshot domain.EntitySnapshot) (ok bool) {
	defer func() {
		// FieldEquals compares manifest-supplied values; never let a comparison panic escape.
		if r := recover(); r != nil {
			ok = false
		}
	}()

	switch g := spec.(type) {
	case None:
		return true
	case *None:
		return g != nil
	case AssigneeRequired:
		return !IsEmpty(snapshot.AssigneeID)
	case *AssigneeRequired:
		return g != nil && !IsEmpty(snapshot.AssigneeID)
	case FieldPresent:
		return fieldPresent(g, snapshot)
	case *FieldPresent:
		return g != nil && fieldPresent(*g, snapshot)
	case FieldEquals:
		return fieldEquals(g, snapshot)
	case *FieldEquals:
		return g != nil && fieldEquals(*g, snapshot)
	default:
		return false
	}
}

func fieldPresent(g FieldPresent, snapshot domain.EntitySnapshot) bool {
	v, ok := ResolveField(snapshot, g.Field)
	return ok && !IsEmpty(v)
}

func fieldEquals(g FieldEquals, snapshot domain.EntitySnapshot) bool {
	v, ok := ResolveField(snapshot, g.Field)
	if !ok {
		return false
	}
	// Numbers compare by value whatever their Go type; "1" != 1.
	return reflect.DeepEqual(Normalize(v), Normalize(g.Value))
}
