// Package apperror carries the error kinds surfaced by the HTTP API.
package apperror

import (
	"fmt"
	"net/http"
)

// Code identifies the kind of failure.
type Code string

const (
	CodeValidation   Code = "VALIDATION_FAILED"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeStorage      Code = "STORAGE_FAILURE"
	CodeUpstream     Code = "UPSTREAM_FAILURE"
	CodeUnavailable  Code = "SERVICE_UNAVAILABLE"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// AppError is an error with a code, a client-facing message and an optional cause.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for the error code.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails attaches extra context for the client.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NewValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return New(CodeUnauthorized, message)
}

func NewNotFoundError(message string) *AppError {
	return New(CodeNotFound, message)
}

func NewConflictError(message string) *AppError {
	return New(CodeConflict, message)
}

func NewStorageError(message string, cause error) *AppError {
	return New(CodeStorage, message).WithCause(cause)
}

func NewUpstreamError(message string, cause error) *AppError {
	return New(CodeUpstream, message).WithCause(cause)
}

func NewUnavailableError(message string) *AppError {
	return New(CodeUnavailable, message)
}

func NewInternalError(message string, cause error) *AppError {
	return New(CodeInternal, message).WithCause(cause)
}
