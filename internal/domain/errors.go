package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBackend marks every failure coming from the record store
	ErrBackend = errors.New("backend error")
	// ErrValidation marks malformed user input
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned by repositories when a key has no row
	ErrNotFound = errors.New("not found")
	// ErrSuperseded is returned for list results discarded because a newer request was issued
	ErrSuperseded = errors.New("request superseded by a newer one")
	// ErrUnauthorized is returned when credentials are rejected
	ErrUnauthorized = errors.New("unauthorized")
)

// BackendError is the single error kind surfaced by the record store adapter
type BackendError struct {
	Op      string
	Table   string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Table != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Table, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// NewBackendError wraps err. A nil err yields nil.
func NewBackendError(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}

	var be *BackendError
	if errors.As(err, &be) {
		return be
	}

	return &BackendError{
		Op:      op,
		Table:   kind.Table(),
		Message: err.Error(),
		Err:     err,
	}
}

// ValidationError describes a rejected field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
