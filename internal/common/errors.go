package common

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation           Code = "validation_failed"
	CodeNotFound             Code = "not_found"
	CodePreconditionFailed   Code = "precondition_failed"
	CodeAlreadyResponded     Code = "already_responded"
	CodeTransportUnavailable Code = "transport_unavailable"
	CodeConflict             Code = "conflict"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeRateLimited          Code = "rate_limited"
	CodeInternal             Code = "internal"
)

// Error is the typed error carried from repositories and services up to the
// HTTP layer. Err is kept for logging and is never rendered to clients.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	return "internal error"
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}
