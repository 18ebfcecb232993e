package actionable

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	// ErrUnknownType is returned when a record's type is not registered.
	ErrUnknownType = errors.New("unknown actionable type")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrAlreadyRegistered is returned when registering a duplicate type.
	ErrAlreadyRegistered = errors.New("actionable type already registered")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// ValidationError reports why a record failed closed-world validation.
// It wraps ErrUnknownType or ErrMissingField for errors.Is checks.
type ValidationError struct {
	Type  TypeTag
	Field string // set for ErrMissingField
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%v: %q (type %s)", e.Err, e.Field, e.Type)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Type)
}

func (e *ValidationError) Unwrap() error { return e.Err }
