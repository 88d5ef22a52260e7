package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransitionApplied  EventType = "transition_applied"
	EventTransitionRejected EventType = "transition_rejected"
	EventHookFailed         EventType = "hook_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
}

// TransitionEvent describes a committed state change.
type TransitionEvent struct {
	EventBase
	From    string        `json:"from"`
	To      string        `json:"to"`
	Trigger string        `json:"trigger,omitempty"`
	Version string        `json:"version"`
	Diff    *SnapshotDiff `json:"diff,omitempty"`
}

// RejectionEvent describes a transition that was refused.
type RejectionEvent struct {
	EventBase
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Kind  string `json:"kind"` // validation, conflict, policy_denied, not_found
	Error error  `json:"-"`
}

// HookEvent describes an action hook that failed. Hook failures never abort a transition.
type HookEvent struct {
	EventBase
	Action string `json:"action"`
	Phase  string `json:"phase"` // on_leave, on_enter
	Error  error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// All fields are optional.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnRejected   func(context.Context, *RejectionEvent)
	OnHookFailed func(context.Context, *HookEvent)
}

// ErrorKind classifies err into one of the taxonomy names used by RejectionEvent.
func ErrorKind(err error) string {
	switch {
	case IsConflict(err):
		return "conflict"
	case IsPolicyDenied(err):
		return "policy_denied"
	case IsNotFound(err):
		return "not_found"
	case IsValidation(err):
		return "validation"
	default:
		return "internal"
	}
}
