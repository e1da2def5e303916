package patients

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("patient not found")
	ErrAlreadyRegistered = errors.New("an account with this email already exists")
	ErrInvalidInput      = errors.New("invalid input")
)

// ValidationError names the offending field. It matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
