// Package apperror carries the kind of a failure from the logic layer up to
// the HTTP boundary, where it is translated into a status code exactly once.
package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	Unauthorized Kind = "unauthorized"
	Invalid      Kind = "invalid"
	NotFound     Kind = "not_found"
	Internal     Kind = "internal"
)

// Error is a failure with a kind and a message that is safe to show callers.
// Err holds the underlying cause for logging and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewUnauthorized() *Error {
	return New(Unauthorized, "Unauthorized")
}

func NewInvalid(message string) *Error {
	return New(Invalid, message)
}

func NewNotFound(message string) *Error {
	return New(NotFound, message)
}

func NewInternal(message string, err error) *Error {
	return Wrap(Internal, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// HTTPStatus maps err to the status code returned to HTTP callers.
// A missing referenced record is reported as 400, not 404.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthorized:
		return http.StatusUnauthorized
	case Invalid, NotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text shown to HTTP callers. Internal failures
// collapse to a generic message.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Internal {
		return appErr.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
