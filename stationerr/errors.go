// Package stationerr defines the station-wide error codes from spec.md §7
// and the structured *Error type every engine package returns them as. The
// flat sentinel-per-case style is the teacher's own (see core/errors'
// stake.go); stationerr adds the {code, message, field} payload spec.md's
// error catalogue requires (ValidationError{info}, AlreadyExists{field},
// External{reason}, Failed{reason}) that a bare sentinel can't carry.
package stationerr

import (
	"errors"
	"fmt"
)

// Code enumerates the error kinds spec.md §7 says are "surfaced verbatim by
// code".
type Code string

const (
	CodeValidation    Code = "validation"
	CodeAlreadyExists Code = "already_exists"
	CodeNotFound      Code = "not_found"
	CodeForbidden     Code = "forbidden"
	CodeUnauthorized  Code = "unauthorized"
	CodeNotController Code = "not_controller"
	CodeBadState      Code = "bad_state"
	CodeRateLimited   Code = "rate_limited"
	CodeExternal      Code = "external"
	CodeInternal      Code = "internal"
)

// Error is the structured error every station engine returns. It
// implements error and Unwrap so callers can still errors.Is against a
// wrapped sentinel when one is present.
type Error struct {
	Code    Code
	Message string
	Field   string // meaningful for CodeAlreadyExists / CodeValidation
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, stationerr.NotFound("")) style code comparisons
// by matching on Code alone when the target carries no message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a CodeValidation error carrying free-form info, per
// spec.md's ValidationError{info}.
func Validation(format string, args ...any) *Error { return newError(CodeValidation, format, args...) }

// AlreadyExists builds a CodeAlreadyExists error naming the colliding
// unique-index field.
func AlreadyExists(field string, format string, args ...any) *Error {
	err := newError(CodeAlreadyExists, format, args...)
	err.Field = field
	return err
}

// NotFound builds a CodeNotFound error.
func NotFound(format string, args ...any) *Error { return newError(CodeNotFound, format, args...) }

// Forbidden builds a CodeForbidden error.
func Forbidden(format string, args ...any) *Error { return newError(CodeForbidden, format, args...) }

// Unauthorized builds a CodeUnauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return newError(CodeUnauthorized, format, args...)
}

// NotController builds a CodeNotController error, used only by the upgrader.
func NotController(format string, args ...any) *Error {
	return newError(CodeNotController, format, args...)
}

// BadState builds a CodeBadState error (wrong RequestStatus, system not
// ready).
func BadState(format string, args ...any) *Error { return newError(CodeBadState, format, args...) }

// RateLimited builds a CodeRateLimited error.
func RateLimited(format string, args ...any) *Error {
	return newError(CodeRateLimited, format, args...)
}

// External wraps a downstream ledger/canister failure, carrying its reason.
func External(reason string) *Error {
	return &Error{Code: CodeExternal, Message: reason}
}

// Internal wraps a trapped execution, per spec.md §7: "trapped execution
// wrapped into Failed{reason}; never surfaced to a caller as success."
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: cause.Error(), cause: cause}
}

// Sentinel errors for the few cases call sites want to errors.Is against
// directly without constructing a full message, mirroring core/errors'
// package-level var block.
var (
	ErrNotFound      = &Error{Code: CodeNotFound}
	ErrForbidden     = &Error{Code: CodeForbidden}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists}
	ErrBadState      = &Error{Code: CodeBadState}
	ErrRateLimited   = &Error{Code: CodeRateLimited}
)

// CodeOf extracts the Code from err, defaulting to CodeInternal for errors
// that did not originate in this package.
func CodeOf(err error) Code {
	var stationErr *Error
	if errors.As(err, &stationErr) {
		return stationErr.Code
	}
	return CodeInternal
}
