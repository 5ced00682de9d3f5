// Package apperrors defines the error taxonomy shared by services and the
// HTTP boundary: sentinel errors for flow control (match with errors.Is) and
// AppError, a coded error that maps onto the response envelope.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Token errors. Malformed, unknown, wrong-type and expired tokens all
	// collapse into this single value so callers cannot tell them apart.
	ErrInvalidToken = errors.New("invalid token")
)

// AppError carries an error code, a client-safe message and optional
// field-level details. Cause is never serialized.
type AppError struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// WithDetails attaches field-level details and returns the error for chaining.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func InvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials provided.")
}

func Validation(details map[string]any) *AppError {
	return New(CodeValidation, "The given data was invalid.").WithDetails(details)
}

func Unauthenticated() *AppError {
	return New(CodeUnauthenticated, "Unauthenticated.")
}

func Forbidden() *AppError {
	return New(CodeForbidden, "Forbidden.")
}

func RouteNotFound() *AppError {
	return New(CodeRouteNotFound, "Resource route not found")
}

func Unexpected(cause error) *AppError {
	return Wrap(CodeUnexpected, "An unexpected error occurred.", cause)
}
