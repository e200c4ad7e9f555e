package model

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrCapacity   = errors.New("event is full")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
)

// ValidationError names the offending field; it matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Msg
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
