package domain

// EntitySnapshot is the read-only projection of a work item exposed to guards and policies.
type EntitySnapshot struct {
	State        string         `json:"state" yaml:"state"`
	AssigneeID   string         `json:"assignee_id,omitempty" yaml:"assignee_id,omitempty"`
	StateReason  string         `json:"state_reason,omitempty" yaml:"state_reason,omitempty"`
	Resolution   string         `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
}

// Clone returns a copy of the snapshot whose CustomFields map can be mutated safely.
func (s EntitySnapshot) Clone() EntitySnapshot {
	next := s
	if s.CustomFields != nil {
		next.CustomFields = make(map[string]any, len(s.CustomFields))
		for k, v := range s.CustomFields {
			next.CustomFields[k] = v
		}
	}
	return next
}

// Entity is the record held by an EntityStore.
type Entity struct {
	// ID identifies the work item.
	ID string `json:"id"`

	// TypeKind and TypeID address the EntityTypeDef in the manifest (e.g. "TaskType", "bug").
	TypeKind string `json:"type_kind"`
	TypeID   string `json:"type_id"`

	// ManifestVersion is the immutable manifest version the entity's template is pinned to.
	ManifestVersion string `json:"manifest_version"`

	Snapshot EntitySnapshot `json:"snapshot"`

	// Version is the opaque optimistic-concurrency token assigned by the store.
	Version string `json:"version"`
}

// Clone returns a deep-enough copy of the entity for safe mutation.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	next := *e
	next.Snapshot = e.Snapshot.Clone()
	return &next
}
