package domain

import (
	"reflect"
)

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for audit trails and partial updates on clients.
type SnapshotDiff struct {
	State       *string `json:"state,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	StateReason *string `json:"state_reason,omitempty"`
	Resolution  *string `json:"resolution,omitempty"`

	// CustomFields contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap EntitySnapshot) *SnapshotDiff {
	diff := &SnapshotDiff{
		State:        changed(oldSnap.State, newSnap.State),
		AssigneeID:   changed(oldSnap.AssigneeID, newSnap.AssigneeID),
		StateReason:  changed(oldSnap.StateReason, newSnap.StateReason),
		Resolution:   changed(oldSnap.Resolution, newSnap.Resolution),
		CustomFields: diffFields(oldSnap.CustomFields, newSnap.CustomFields),
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func changed(oldVal, newVal string) *string {
	if oldVal == newVal {
		return nil
	}
	return &newVal
}

func diffFields(old, new map[string]any) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.State == nil &&
		d.AssigneeID == nil &&
		d.StateReason == nil &&
		d.Resolution == nil &&
		len(d.CustomFields) == 0
}
