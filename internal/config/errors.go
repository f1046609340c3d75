package config

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed parameter set. It is detected at
// construction time; mapping never starts with invalid parameters.
type ValidationError struct {
	Code    string
	Message string
}

const (
	// ErrCodeBadParam indicates a scalar parameter outside its domain.
	ErrCodeBadParam = "BAD_PARAM"

	// ErrCodeNonMonotonic indicates a threshold table whose lengths do
	// not ascend or whose probabilities increase with length.
	ErrCodeNonMonotonic = "NON_MONOTONIC_TABLE"

	// ErrCodeEmptyTable indicates a missing threshold table.
	ErrCodeEmptyTable = "EMPTY_TABLE"
)

func newValidationError(code, msg string) *ValidationError {
	return &ValidationError{Code: code, Message: msg}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is a configuration validation
// failure. Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the validation failure from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
