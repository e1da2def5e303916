package healthdata

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every ValidationError.
var ErrInvalidInput = errors.New("invalid health data")

// ValidationError rejects one metric of a submitted record.
type ValidationError struct {
	Metric  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Metric, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
