// Package errclass defines the stable, machine-readable error classes returned by regis.
package errclass

import (
	"errors"
	"fmt"
)

// RegisError is a stable, machine-readable error class with an optional cause.
type RegisError struct {
	Code    string
	Message string
	Err     error
}

func (e *RegisError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if msg == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Is reports whether target carries the same code.
func (e *RegisError) Is(target error) bool {
	t, ok := target.(*RegisError)
	return ok && e.Code == t.Code
}

// Unwrap returns the underlying cause, if any.
func (e *RegisError) Unwrap() error {
	return e.Err
}

// WithMessage returns a new RegisError with the same Code but a specific message.
func (e *RegisError) WithMessage(msg string) *RegisError {
	return &RegisError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new RegisError with a formatted message.
func (e *RegisError) WithMessagef(format string, args ...any) *RegisError {
	return &RegisError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a new RegisError with the same Code that wraps cause.
func (e *RegisError) Wrap(cause error, format string, args ...any) *RegisError {
	return &RegisError{Code: e.Code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Error classes.
var (
	ErrNotFound          = &RegisError{Code: "E_NOT_FOUND"}
	ErrOutOfRange        = &RegisError{Code: "E_OUT_OF_RANGE"}
	ErrValidation        = &RegisError{Code: "E_VALIDATION"}
	ErrAuthFailure       = &RegisError{Code: "E_AUTH_FAILURE"}
	ErrIOFailure         = &RegisError{Code: "E_IO_FAILURE"}
	ErrPermissionDenied  = &RegisError{Code: "E_PERMISSION_DENIED"}
	ErrNotLoggedIn       = &RegisError{Code: "E_NOT_LOGGED_IN"}
	ErrFormatUnsupported = &RegisError{Code: "E_FORMAT_UNSUPPORTED"}
	ErrConfigInvalid     = &RegisError{Code: "E_CONFIG_INVALID"}
)

// Code extracts the class code from err, or "" when err carries none.
func Code(err error) string {
	var re *RegisError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
