package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Error carries a caller-facing message and unwraps to one of the sentinels above,
// so errors.Is(err, ErrConflict) keeps working after a message has been attached.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports malformed, missing or out-of-range input.
func NewValidationError(format string, args ...any) error {
	return newError(ErrBadRequest, format, args...)
}

// NewNotFoundError reports a referenced entity that does not exist.
func NewNotFoundError(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// NewConflictError reports a state-invariant violation.
func NewConflictError(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// NewAuthenticationError reports bad credentials or a bad token.
func NewAuthenticationError(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

// NewAuthorizationError reports an actor that is not permitted to act.
func NewAuthorizationError(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

// ErrorMessage returns the caller-facing message of err, or fallback when err
// carries none.
func ErrorMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
