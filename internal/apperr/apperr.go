// Package apperr defines the error kinds shared by the store, the scheduling core
// and the transports, plus their mapping onto HTTP and gRPC status codes.
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
)

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindUnavailable
	KindRateLimited
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func Invalid(field, msg string) *Error {
	return Validation(FieldError{Field: field, Message: msg})
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "database busy, try again", Err: err}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "too many requests"}
}

func Store(err error) *Error {
	return &Error{Kind: KindStore, Message: "internal server error", Err: err}
}

// KindOf reports the kind of err; anything that is not an *Error is a store failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Public returns the message that may be shown to a client.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStore {
		return e.Message
	}
	return "internal server error"
}

func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func GRPCCode(err error) codes.Code {
	switch KindOf(err) {
	case KindValidation:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindUnauthorized:
		return codes.Unauthenticated
	case KindForbidden:
		return codes.PermissionDenied
	case KindUnavailable:
		return codes.Unavailable
	case KindRateLimited:
		return codes.ResourceExhausted
	}
	return codes.Internal
}
