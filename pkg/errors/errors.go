package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error kind surfaced in API error envelopes.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeStateConflict   Code = "STATE_CONFLICT"
	CodeBookUnavailable Code = "BOOK_UNAVAILABLE"
	CodeRateLimit       Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeDependency      Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered to clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func clientFault(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details}
}

func serverFault(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details, Retryable: true}
}

// Duplicate emails and phone numbers are input errors for this API, so
// CodeConflict answers 400 rather than 409.
var metadataByCode = map[Code]Metadata{
	CodeValidation:      clientFault(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:    clientFault(http.StatusUnauthorized, "authentication required", false),
	CodeNotFound:        clientFault(http.StatusNotFound, "resource not found", false),
	CodeConflict:        clientFault(http.StatusBadRequest, "conflict detected", true),
	CodeStateConflict:   clientFault(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeBookUnavailable: clientFault(http.StatusConflict, "book unavailable", true),
	CodeRateLimit:       clientFault(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInternal:        serverFault(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:      serverFault(http.StatusServiceUnavailable, "dependency unavailable", true),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded application error with an optional client-facing detail
// payload and an optional wrapped cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches details in place and returns the receiver for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	return As(err).codeIs(code)
}

func (e *Error) codeIs(code Code) bool {
	return e != nil && e.code == code
}
