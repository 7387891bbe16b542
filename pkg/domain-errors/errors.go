// Package domainerrors defines the coded errors services return to callers.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into a coded Error so transports can map the code to a response
// without inspecting messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a failure. Every code is recoverable by the caller.
type Code string

const (
	// CodeValidation is malformed or missing required input, rejected before any mutation.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput is a value that failed primitive parsing (ids, roles, enums).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest is a transport-level decoding failure.
	CodeBadRequest Code = "bad_request"
	// CodePrecondition means the entity exists but its state forbids the transition.
	CodePrecondition Code = "precondition_failed"
	// CodeInvariantViolation is raised by model constructors; services convert it to CodeValidation.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeConflict is a duplicate identity (barcode, invoice number, username).
	CodeConflict Code = "conflict"
	// CodeNotFound means a referenced id does not exist.
	CodeNotFound Code = "not_found"
	// CodeSecurityEscalation is returned after an incident has been committed
	// on the caller's behalf. The incident stays even though the command failed.
	CodeSecurityEscalation Code = "security_escalation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal_error"
)

// Error is a coded failure scoped to a single command.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
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

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost coded error in the chain has code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode that reads better in handler branches.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status transports should answer with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodePrecondition:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeSecurityEscalation:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
