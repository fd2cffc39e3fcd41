// Package errors provides standardized domain errors with codes for ReaderSync.
//
// Usage:
//
//	// In the remote client - classify transport failures
//	if isTimeout(err) {
//	    return errors.Unreachable("backend unreachable")
//	}
//
//	// In the sync engine - branch on the taxonomy
//	if errors.Is(err, errors.ErrUnreachable) {
//	    return Result{Success: true, Message: "offline - sync skipped"}
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
//
// The sync-facing codes follow a strict severity ordering:
// UNREACHABLE is a benign offline condition, UNAUTHENTICATED is
// user-actionable, SERVER_ERROR and CODEC are hard failures.
const (
	CodeNotConfigured   Code = "NOT_CONFIGURED"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUnreachable     Code = "UNREACHABLE"
	CodeServer          Code = "SERVER_ERROR"
	CodeCodec           Code = "CODEC"
	CodeBusy            Code = "BUSY"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidation      Code = "VALIDATION"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
// Used by the local control API when surfacing domain errors to the UI.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeValidation, CodeCodec:
		return http.StatusBadRequest
	case CodeBusy:
		return http.StatusConflict
	case CodeNotConfigured:
		return http.StatusPreconditionFailed
	case CodeUnreachable:
		return http.StatusServiceUnavailable
	case CodeServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotConfigured   = &Error{Code: CodeNotConfigured, Message: "backend not configured"}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "not authenticated"}
	ErrUnreachable     = &Error{Code: CodeUnreachable, Message: "backend unreachable"}
	ErrServer          = &Error{Code: CodeServer, Message: "server error"}
	ErrCodec           = &Error{Code: CodeCodec, Message: "malformed binary payload"}
	ErrBusy            = &Error{Code: CodeBusy, Message: "operation already in progress"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotConfigured creates a not configured error.
func NotConfigured(msg string) *Error {
	return &Error{Code: CodeNotConfigured, Message: msg}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// Unreachable creates an unreachable error.
func Unreachable(msg string) *Error {
	return &Error{Code: CodeUnreachable, Message: msg}
}

// Unreachablef creates an unreachable error with formatted message.
func Unreachablef(format string, args ...any) *Error {
	return &Error{Code: CodeUnreachable, Message: fmt.Sprintf(format, args...)}
}

// Server creates a server error.
func Server(msg string) *Error {
	return &Error{Code: CodeServer, Message: msg}
}

// Serverf creates a server error with formatted message.
func Serverf(format string, args ...any) *Error {
	return &Error{Code: CodeServer, Message: fmt.Sprintf(format, args...)}
}

// Codec creates a codec error.
func Codec(msg string) *Error {
	return &Error{Code: CodeCodec, Message: msg}
}

// Codecf creates a codec error with formatted message.
func Codecf(format string, args ...any) *Error {
	return &Error{Code: CodeCodec, Message: fmt.Sprintf(format, args...)}
}

// Busy creates a busy error.
func Busy(msg string) *Error {
	return &Error{Code: CodeBusy, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf extracts the Code from err, or CodeInternal if err carries no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
