// Package apperr carries HTTP-facing errors: a status code, a client message,
// optional details and the wrapped cause.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

type Error struct {
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func Validation(message string, fields ...FieldError) *Error {
	e := &Error{Status: http.StatusBadRequest, Message: message}
	if len(fields) > 0 {
		e.Details = fields
	}
	return e
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}

func Unavailable(message string, err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: message, Err: err}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

// From converts any error into an *Error, translating domain sentinels.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return &Error{Status: http.StatusNotFound, Message: notFoundMessage(err), Err: err}
	case errors.Is(err, domain.ErrDuplicate):
		return &Error{Status: http.StatusConflict, Message: "a record with the same unique value already exists", Err: err}
	case errors.Is(err, domain.ErrInsufficientStock):
		return &Error{Status: http.StatusConflict, Message: "insufficient stock", Err: err}
	case errors.Is(err, domain.ErrInvalidTransition):
		return &Error{Status: http.StatusConflict, Message: "invalid status transition", Err: err}
	case errors.Is(err, domain.ErrReferenceMissing):
		return &Error{Status: http.StatusBadRequest, Message: "referenced record does not exist", Err: err}
	case errors.Is(err, domain.ErrValueTooLong):
		return &Error{Status: http.StatusBadRequest, Message: "a field exceeds its maximum length", Err: err}
	case errors.Is(err, domain.ErrConstraint), errors.Is(err, domain.ErrInvalidInput):
		return &Error{Status: http.StatusBadRequest, Message: "invalid data", Err: err}
	case errors.Is(err, domain.ErrPoolExhausted):
		return Unavailable("service busy, retry later", err)
	}
	return Internal(err)
}

// notFoundMessage keeps the entity name from wraps like "order 12: not found".
func notFoundMessage(err error) string {
	var target *notFound
	if errors.As(err, &target) {
		return target.entity + " not found"
	}
	return "resource not found"
}

type notFound struct {
	entity string
}

func (n *notFound) Error() string { return n.entity + " not found" }

func (n *notFound) Unwrap() error { return domain.ErrNotFound }

// NotFoundEntity returns an error that matches domain.ErrNotFound and renders
// as "<entity> not found".
func NotFoundEntity(entity string) error {
	return &notFound{entity: entity}
}
