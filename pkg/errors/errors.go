package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrEmailDelivery     = errors.New("email delivery failed")
	ErrInvalidResetToken = errors.New("invalid reset token")
	ErrDatabase          = errors.New("database error")
	ErrInternal          = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping.
// Services raise AppErrors; the HTTP boundary serializes Code/Message and
// never exposes the wrapped cause to clients.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found with id of %s", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Conflict creates a 409 error, used for duplicate registrations.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// ValidationFailed creates a 400 error for malformed or rule-violating input.
func ValidationFailed(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// Unauthorized creates a 401 error. Token verification failures always use
// the same message regardless of cause (expired vs forged) so the response
// cannot be used as an oracle.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error for authorization and role violations.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// InvalidResetToken creates a 400 error for missing, expired, or already
// consumed password-reset tokens.
func InvalidResetToken() *AppError {
	return &AppError{
		Code:    "INVALID_RESET_TOKEN",
		Message: "Invalid reset token",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidResetToken,
	}
}

// EmailDeliveryFailed creates a 500 error for downstream notifier failures.
func EmailDeliveryFailed(err error) *AppError {
	return &AppError{
		Code:    "EMAIL_DELIVERY_FAILED",
		Message: "Email could not be sent",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrEmailDelivery, err),
	}
}

// Database creates a 500 error with an intentionally generic message so no
// schema detail leaks to clients.
func Database(err error) *AppError {
	return &AppError{
		Code:    "DATABASE_ERROR",
		Message: "Database error",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrDatabase, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrInternal, err),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidResetToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a client-safe message for the given error. AppErrors
// carry their own message; anything else maps to its sentinel's wording so
// wrapped internal context never reaches a response body.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	for _, sentinel := range []error{
		ErrNotFound, ErrConflict, ErrValidation, ErrInvalidResetToken,
		ErrUnauthorized, ErrForbidden, ErrEmailDelivery, ErrDatabase,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrInternal.Error()
}
