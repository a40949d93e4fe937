package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so the transport layer can map them with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

// Error is a classified error with a message that is safe to show to the
// caller.
type Error struct {
	Kind    error
	Message string

	// Fields holds per-field problems for validation errors.
	Fields map[string]string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrInvalidCredentials  = &Error{Kind: ErrUnauthenticated, Message: "invalid credentials"}
	ErrMissingRefreshToken = &Error{Kind: ErrUnauthenticated, Message: "missing refresh token"}
	ErrInvalidRefreshToken = &Error{Kind: ErrUnauthenticated, Message: "invalid refresh token"}
	ErrRefreshTokenRevoked = &Error{Kind: ErrUnauthenticated, Message: "refresh token revoked or superseded"}
	ErrAccountExists       = &Error{Kind: ErrConflict, Message: "account already exists"}
	ErrEmailTaken          = &Error{Kind: ErrConflict, Message: "email already in use"}
	ErrAccountNotFound     = &Error{Kind: ErrNotFound, Message: "account not found"}
)

// validationError collects field problems. Nil when there are none.
type validationError map[string]string

func (v validationError) add(field, problem string) { v[field] = problem }

func (v validationError) err() error {
	if len(v) == 0 {
		return nil
	}
	return &Error{Kind: ErrValidation, Message: "invalid request", Fields: v}
}

// internal wraps an infrastructure failure. The cause is kept for logs and
// errors.Is, never for the caller.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
