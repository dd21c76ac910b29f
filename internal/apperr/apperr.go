// Package apperr defines the error kinds shared by the CRM services.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookups for identities that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks malformed or missing input.
	ErrInvalid = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%s: %w", entity, ErrNotFound)
}

// Invalid wraps ErrInvalid with a reason suitable for the caller.
func Invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalid)...)
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalid reports whether err is an ErrInvalid.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }
