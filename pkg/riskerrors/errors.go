// Package riskerrors provides the unified error handling used across the
// engine: a small closed set of error codes, each with an HTTP status and
// constructor, so every layer reports failures the same way.
package riskerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one of the five error kinds the core can emit.
type Code string

const (
	CodeNotFound Code = "NOT_FOUND"
	CodeInvalid  Code = "INVALID"
	CodeConflict Code = "CONFLICT"
	CodeUpstream Code = "UPSTREAM"

	// CodeCancelled marks a cooperatively cancelled run.
	CodeCancelled Code = "CANCELLED"
)

// RiskError is a structured error with a code, message, and HTTP status a
// caller may use when translating it into a response.
type RiskError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *RiskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, allowing errors.Is/As to see through
// a RiskError.
func (e *RiskError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair and returns the same error for
// chaining.
func (e *RiskError) WithDetails(key string, value interface{}) *RiskError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newErr(code Code, message string, httpStatus int) *RiskError {
	return &RiskError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func wrapErr(code Code, message string, httpStatus int, err error) *RiskError {
	return &RiskError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// NotFound builds a NotFound error for a missing tenant/regulation/edge.
func NotFound(resource, id string) *RiskError {
	return newErr(CodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// Invalid builds an Invalid error for a duplicate edge, self-loop, invalid
// type, or out-of-range parameter.
func Invalid(message string) *RiskError {
	return newErr(CodeInvalid, message, http.StatusBadRequest)
}

// InvalidField is a convenience constructor for field-scoped validation
// failures.
func InvalidField(field, reason string) *RiskError {
	return newErr(CodeInvalid, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// Conflict builds a Conflict error for a duplicate code within a tenant.
func Conflict(message string) *RiskError {
	return newErr(CodeConflict, message, http.StatusConflict)
}

// Upstream wraps a store read/write failure.
func Upstream(operation string, err error) *RiskError {
	return wrapErr(CodeUpstream, "upstream store failure", http.StatusBadGateway, err).
		WithDetails("operation", operation)
}

// Cancelled builds a Cancelled error for a cooperatively aborted run.
func Cancelled(operation string) *RiskError {
	return newErr(CodeCancelled, "operation cancelled", http.StatusRequestTimeout).
		WithDetails("operation", operation)
}

// Is reports whether err is a *RiskError with the given code.
func Is(err error, code Code) bool {
	var re *RiskError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// HTTPStatus extracts the HTTP status for err, defaulting to 500.
func HTTPStatus(err error) int {
	var re *RiskError
	if errors.As(err, &re) {
		return re.HTTPStatus
	}
	return http.StatusInternalServerError
}
