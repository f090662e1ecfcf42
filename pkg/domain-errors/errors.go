// Package domainerrors defines the typed error taxonomy shared by all
// services. Codes map one-to-one to HTTP statuses and user-visible messages
// so transport layers never invent their own translations.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Services return these; transports map
// them to status codes and stable message strings.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeUnauthorized        Code = "unauthorized"
	CodeForbidden           Code = "forbidden"
	CodeInvalidAction       Code = "invalid_action"
	CodeInvalidTransition   Code = "invalid_transition"
	CodeRateLimited         Code = "rate_limited"
	CodeIdempotentDuplicate Code = "idempotent_duplicate"
	CodeValidation          Code = "validation_error"
	CodeConflict            Code = "conflict"
	CodeInvalidInput        Code = "invalid_input"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

// Error carries a code plus an operator-facing message. The wrapped cause, if
// any, is preserved for errors.Is / errors.As chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for plain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidAction, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeInvalidTransition, CodeConflict, CodeIdempotentDuplicate:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage maps a code to the stable end-user message for that class of
// failure. Internal details never leak here.
func UserMessage(code Code) string {
	switch code {
	case CodeNotFound:
		return "not found"
	case CodeUnauthorized:
		return "authentication required"
	case CodeForbidden:
		return "you are not allowed to perform this action"
	case CodeInvalidAction:
		return "unknown action"
	case CodeInvalidTransition:
		return "cannot perform this action at this stage"
	case CodeRateLimited:
		return "too many requests"
	case CodeIdempotentDuplicate:
		return "already processed"
	case CodeValidation, CodeInvalidInput:
		return "invalid request"
	case CodeConflict:
		return "conflicting update, retry"
	case CodeTimeout:
		return "request timed out"
	default:
		return "internal error"
	}
}
