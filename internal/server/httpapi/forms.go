package httpapi

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tileschb/larang-api/internal/apperrors"
)

type LoginForm struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterForm struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// validationError converts a gin binding failure into a VALIDATION_ERROR
// with per-field details.
func validationError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation(map[string]any{
			"body": []string{"The request body could not be parsed."},
		})
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		details[field] = []string{fieldMessage(fe)}
	}
	return apperrors.Validation(details)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return "The " + field + " field is required."
	case "email":
		return "The " + field + " field must be a valid email address."
	case "min":
		return "The " + field + " field must be at least " + fe.Param() + " characters."
	case "max":
		return "The " + field + " field may not be greater than " + fe.Param() + " characters."
	default:
		return "The " + field + " field is invalid."
	}
}
