// Package domainerrors provides coded errors shared by services and transports.
//
// Services return these errors (usually created with New or Wrap) so handlers
// can translate them into stable API error codes without string matching.
// Infrastructure facts (not found, invalid state) come from pkg/platform/sentinel
// and are translated into a domain code at the service boundary.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the category of a domain error. Codes are part of the API
// contract and appear verbatim in error responses.
type Code string

// Platform codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Engine codes. These are local validation failures and are never transient.
const (
	CodeInvalidStep           Code = "invalid_step"
	CodeReviewGateOpen        Code = "review_gate_open"
	CodeTimestampRegression   Code = "timestamp_regression"
	CodeUnknownRun            Code = "unknown_run"
	CodeAlreadyClosed         Code = "already_closed"
	CodeRunClosed             Code = "run_closed"
	CodeExtensionNotPermitted Code = "extension_not_permitted"
)

// Error is a domain error carrying a Code and a client-safe message.
type Error struct {
	Code    Code
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

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the domain code of err, or CodeInternal when err carries none.
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
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeInvalidStep:
		return http.StatusBadRequest
	case CodeNotFound, CodeUnknownRun:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation, CodeReviewGateOpen, CodeTimestampRegression,
		CodeAlreadyClosed, CodeRunClosed, CodeExtensionNotPermitted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
