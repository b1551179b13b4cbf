package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
)

type AppError struct {
	Err     error    // actual error
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Details []string // Optional: every violation, in the order they were found
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Details: []string{message},
	}
}

// Conflict reports that a resource with the same unique key already exists.
// key is the value that collided (an email address for contacts).
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with key %s", resource, key),
	}
}

// DetailsOf returns the validation messages carried by err, or nil if err
// is not a validation error.
func DetailsOf(err error) []string {
	var appErr *AppError
	if !errors.As(err, &appErr) || !errors.Is(appErr.Err, ErrValidation) {
		return nil
	}
	if len(appErr.Details) > 0 {
		return appErr.Details
	}
	return []string{appErr.Message}
}
