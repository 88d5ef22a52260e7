package domain

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// TransitionRequest asks the orchestrator to move an entity to a new state.
// Exactly one of NewState or Trigger must be set.
type TransitionRequest struct {
	EntityID string `json:"entity_id" validate:"required"`

	NewState string `json:"new_state,omitempty" validate:"required_without=Trigger,excluded_with=Trigger"`
	Trigger  string `json:"trigger,omitempty" validate:"required_without=NewState"`

	StateReason string `json:"state_reason,omitempty"`
	Resolution  string `json:"resolution,omitempty"`

	// ExpectedVersion is the caller's last-known version token.
	// Nil selects overwrite mode: no concurrency check is made.
	ExpectedVersion *string `json:"expected_version,omitempty"`

	// Roles of the caller, passed through to action hooks.
	Roles []string `json:"roles,omitempty"`

	// BypassResolution skips the "resolution required" rule for resolved-like states.
	BypassResolution bool `json:"bypass_resolution,omitempty"`
}

var (
	requestValidator     *validator.Validate
	requestValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	requestValidatorOnce.Do(func() {
		requestValidator = validator.New(validator.WithRequiredStructEnabled())
		requestValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return requestValidator
}

// Validate checks the request shape. It returns a *ValidationError.
func (r *TransitionRequest) Validate() error {
	if r == nil {
		return NewValidationError("transition request is nil")
	}
	err := getValidator().Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: err.Error(), Err: err}
	}

	msgs := make([]string, 0, len(fieldErrs))
	field := ""
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required_without", "excluded_with":
			field = "new_state|trigger"
			msgs = append(msgs, "exactly one of new_state or trigger must be set")
		case "required":
			field = fe.Field()
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	msgs = dedupe(msgs)
	if len(msgs) > 1 {
		field = ""
	}
	return &ValidationError{Field: field, Message: strings.Join(msgs, "; "), Err: err}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// TransitionResult is the committed outcome of a successful transition.
type TransitionResult struct {
	EntityID string         `json:"entity_id"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Trigger  string         `json:"trigger,omitempty"`
	Snapshot EntitySnapshot `json:"snapshot"`
	Version  string         `json:"version"`
}
