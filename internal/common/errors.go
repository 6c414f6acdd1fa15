// Package common defines shared sentinel errors used across the store, round
// engine, and HTTP layers. Callers should match these values with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// Store-level errors.
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// Auth errors. ErrUnauthorized covers both an unknown username and a bad
	// password so callers cannot probe which accounts exist.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")

	// Round engine errors.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrValidation is the target for errors.Is against any ValidationError.
	ErrValidation = errors.New("validation error")

	// Internal invariant violations. Surfaced, never silently swallowed.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports which field failed and which constraint it broke,
// so a client can correct input without guessing.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Constraint)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single field constraint.
func NewValidationError(field, constraint string) error {
	return &ValidationError{Field: field, Constraint: constraint}
}
