package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEntityNotFound is returned by an EntityStore when the entity does not exist.
var ErrEntityNotFound = errors.New("entity not found")

// ErrVersionConflict is returned by an EntityStore when the expected version token is stale.
var ErrVersionConflict = errors.New("version conflict")

// ErrManifestNotFound is returned by a ManifestProvider when the version is unknown.
var ErrManifestNotFound = errors.New("manifest not found")

// ValidationError reports an unknown type/workflow, a malformed request,
// an invalid transition edge or trigger, or a value outside a declared vocabulary.
type ValidationError struct {
	Field   string // Optional field name the failure relates to
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports an optimistic-concurrency token mismatch.
// It is the only error kind a caller is expected to retry, after reloading the entity.
type ConflictError struct {
	EntityID string
	Expected string
	Actual   string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("conflict: entity %q was modified concurrently (expected version %q)", e.EntityID, e.Expected)
	}
	return fmt.Sprintf("conflict: entity %q is at version %q, expected %q", e.EntityID, e.Actual, e.Expected)
}

func (e *ConflictError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrVersionConflict
}

// PolicyDeniedError reports one or more guard or transition-policy failures.
type PolicyDeniedError struct {
	Reasons []string
}

// NewPolicyDeniedError creates a PolicyDeniedError from the given reasons.
func NewPolicyDeniedError(reasons ...string) *PolicyDeniedError {
	return &PolicyDeniedError{Reasons: reasons}
}

func (e *PolicyDeniedError) Error() string {
	return "policy denied: " + strings.Join(e.Reasons, "; ")
}

// Merge appends reasons from an external authorizer, returning the receiver.
// A nil receiver yields a new error when reasons is non-empty.
func (e *PolicyDeniedError) Merge(reasons ...string) *PolicyDeniedError {
	if len(reasons) == 0 {
		return e
	}
	if e == nil {
		return NewPolicyDeniedError(reasons...)
	}
	e.Reasons = append(e.Reasons, reasons...)
	return e
}

// NotFoundError reports a missing entity, workflow, or type.
type NotFoundError struct {
	Resource string // "entity", "workflow", "type", "manifest"
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConflict returns true if err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsPolicyDenied returns true if err is (or wraps) a PolicyDeniedError.
func IsPolicyDenied(err error) bool {
	var e *PolicyDeniedError
	return errors.As(err, &e)
}

// IsNotFound returns true if err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
