// Package domain holds error types shared by the domain packages.
package domain

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrUpstreamUnavailable is matched by every error produced when the
// authoritative store could not be read or written. Stock-gated operations
// fail closed on it.
var ErrUpstreamUnavailable = errors.New("authoritative store unavailable")

// UpstreamError wraps a failed call to the authoritative store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrUpstreamUnavailable, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports ErrUpstreamUnavailable as the sentinel for every UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// Unavailable wraps err as an UpstreamError for operation op. A nil err
// yields nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}

// ValidationError reports user input that must be corrected before the
// operation can be retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
