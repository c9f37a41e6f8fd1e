package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/service/auth"
	"github.com/nepalijets/nepalijets-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case err == nil:
		return http.StatusOK

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Not found errors
	case domain.IsNotFound(err), store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors
	case domain.IsInvalidArgument(err),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, store.ErrItemNotFound):
		return "Item not found"
	case domain.IsNotFound(err), store.IsNotFoundError(err):
		return "Resource not found"

	case errors.Is(err, domain.ErrSessionClosed):
		return "Session already ended"
	case errors.Is(err, domain.ErrInvalidPerformance):
		return fmt.Sprintf("Performance must be between %d and %d", domain.MinPerformance, domain.MaxPerformance)
	case errors.Is(err, domain.ErrInvalidPathLength):
		return "Path length must be a positive number"
	case errors.Is(err, domain.ErrMissingItemID):
		return "Item ID is required"
	case domain.IsInvalidArgument(err), errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a message naming the
// first failing field, without the validator's internal wording.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}

	first := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", first.Field(), getValidationTagMessage(first.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte", "lte":
		return "out of range"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
