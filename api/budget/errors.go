package budget

import (
	"errors"
	"fmt"
)

// ValidationError marks user input that is outside the contract. Handlers
// surface it as a 4xx response and never retry it.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...interface{}) error {
	if len(args) == 0 {
		return &ValidationError{Msg: format}
	}
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
