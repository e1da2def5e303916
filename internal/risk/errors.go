package risk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRefused is the parent of every classification refusal.
	ErrRefused = errors.New("classification refused")
	// ErrMissingData means a required lab value or demographic is absent.
	ErrMissingData = fmt.Errorf("%w: missing data", ErrRefused)
	// ErrInvalidDOB means the date of birth could not be turned into an age.
	ErrInvalidDOB = fmt.Errorf("%w: invalid date of birth", ErrRefused)
	// ErrInvalidSex means a sex is recorded but is neither male nor female.
	ErrInvalidSex = fmt.Errorf("%w: unrecognized sex", ErrRefused)
)

// MissingDataError lists the inputs that prevented classification.
type MissingDataError struct {
	Fields []string
}

func (e *MissingDataError) Error() string {
	return "classification refused: missing " + strings.Join(e.Fields, ", ")
}

func (e *MissingDataError) Unwrap() error { return ErrMissingData }
