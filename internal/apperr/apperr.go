// Package apperr defines the error taxonomy the HTTP layer projects onto
// status codes. Failures are classified by kind so handlers never have to
// string-match messages.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExternal     = errors.New("external service failure")
)

// Error carries a user-facing message, the kind it belongs to and an
// optional structured payload (conflict responses include the existing
// record so the caller can decide its next action).
type Error struct {
	Kind    error
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// InvalidInput builds a 400-class error.
func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

// NotFound builds a 404-class error.
func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Conflict builds a 409-class error carrying the conflicting state.
func Conflict(msg string, details map[string]any) *Error {
	return &Error{Kind: ErrConflict, Message: msg, Details: details}
}

// External wraps a provider or transport failure; the underlying error text
// is preserved in the response body, never swallowed.
func External(msg string, cause error) *Error {
	return &Error{Kind: ErrExternal, Message: msg, cause: cause}
}

// StatusCode maps an error to the HTTP status the response should carry.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
