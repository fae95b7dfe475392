// Package apperr is the error taxonomy shared by every module. Services
// return *Error values and httpkit turns them into responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a request, application, report, payment or certificate is missing.
	KindNotFound
	// KindValidation: input was rejected before anything was written.
	KindValidation
	// KindConflict: the stored state moved on, e.g. a payment that is no longer pending.
	KindConflict
	// KindForbidden: the caller may not touch this record.
	KindForbidden
	KindUnauthorized
	// KindBadRequest: the payload could not be used, e.g. an unreadable receipt upload.
	KindBadRequest
	KindInternal
)

var kindNames = map[Kind]string{
	KindNotFound:     "not_found",
	KindValidation:   "validation",
	KindConflict:     "conflict",
	KindForbidden:    "forbidden",
	KindUnauthorized: "unauthorized",
	KindBadRequest:   "bad_request",
	KindInternal:     "internal",
}

var kindStatus = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindValidation:   http.StatusBadRequest,
	KindConflict:     http.StatusConflict,
	KindForbidden:    http.StatusForbidden,
	KindUnauthorized: http.StatusUnauthorized,
	KindBadRequest:   http.StatusBadRequest,
	KindInternal:     http.StatusInternalServerError,
}

// String is the machine-readable code sent to clients and written to logs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error carries a Kind, a client-safe Message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Details is serialized into the response, e.g. []FieldError.
	Details any
}

// FieldError is the detail payload attached to validation failures.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
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

// HTTPStatus maps the kind to a status code. Unknown kinds are a 400.
func (e *Error) HTTPStatus() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap keeps err as the cause. Only message reaches the client.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// FieldInvalid is a validation error naming the offending field.
func FieldInvalid(field, message string) *Error {
	return Validation(message).WithDetails([]FieldError{{Field: field, Message: message}})
}

// GetKind returns the kind of the first *Error in err's chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
