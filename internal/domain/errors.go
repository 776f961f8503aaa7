package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist,
	// or exists outside the caller's academy (indistinguishable on purpose).
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller lacks the role or ownership
	// required for the operation, including a missing academy scope.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is returned for client mistakes: window violations,
	// attempt limits, bad references, wrong lifecycle state.
	ErrValidation = errors.New("validation failed")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Forbiddenf wraps ErrForbidden with a formatted message.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, args...)...)
}

// Invalidf wraps ErrValidation with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
