package apperrors

import "net/http"

// Code identifies a class of API failure. Codes are part of the wire
// contract: they appear verbatim in the error envelope.
type Code string

const (
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeRouteNotFound      Code = "ROUTE_NOT_FOUND"
	CodeUnexpected         Code = "UNEXPECTED_ERROR"
)

// Status returns the default HTTP status for the code.
func (c Code) Status() int {
	switch c {
	case CodeInvalidCredentials, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRouteNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
