// Package apperr defines the error kinds shared by the recipe, vote and
// ingredient stores and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrConflict      = errors.New("conflict")
)

// Error carries a user facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...any) error {
	return &Error{Kind: ErrAccessDenied, Message: fmt.Sprintf(format, args...)}
}

func LimitExceeded(format string, args ...any) error {
	return &Error{Kind: ErrLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Status maps err onto the HTTP status code used in error responses.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that is safe to show to a client. Unclassified
// errors collapse to fallback so storage details never leak.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	var kinded interface{ Is(error) bool }
	if errors.As(err, &kinded) && Status(err) != http.StatusInternalServerError {
		return err.Error()
	}
	return fallback
}
