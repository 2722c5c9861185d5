package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Repositories return these (possibly wrapped); services map
// them onto AppErrors carrying a wire code.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Wire codes shared by the services and the auth client.
const (
	CodeInvalidPayload         = "INVALID_PAYLOAD"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeInvalidOrExpiredToken  = "INVALID_OR_EXPIRED_TOKEN"
	CodeMissingAuthorization   = "MISSING_AUTHORIZATION"
	CodeMalformedAuthorization = "MALFORMED_AUTHORIZATION"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeForbidden              = "FORBIDDEN"
	CodeConflict               = "CONFLICT"
	CodeNotFound               = "NOT_FOUND"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
)

// AppError represents a structured application error with HTTP status mapping.
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
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error for a uniqueness violation.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// Conflict creates a 409 error for a state conflict.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// InvalidInput creates a 400 error for a payload that failed decoding or validation.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidPayload,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidCredentials creates a 401 error for a failed login.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: "invalid credentials",
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// InvalidToken creates a 401 error for an access or refresh token that failed
// lookup, signature or expiry checks.
func InvalidToken(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidToken,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// InvalidOrExpiredToken creates a 400 error for an unusable password reset token.
func InvalidOrExpiredToken() *AppError {
	return &AppError{
		Code:    CodeInvalidOrExpiredToken,
		Message: "invalid or expired token",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// MissingAuthorization creates a 401 error for a request without an Authorization header.
func MissingAuthorization() *AppError {
	return &AppError{
		Code:    CodeMissingAuthorization,
		Message: "missing authorization header",
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// MalformedAuthorization creates a 401 error for an Authorization header that
// is not of the form "Bearer <token>".
func MalformedAuthorization() *AppError {
	return &AppError{
		Code:    CodeMalformedAuthorization,
		Message: "authorization header must be of the form 'Bearer <token>'",
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Unauthenticated creates a 401 error for a request with no usable principal.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
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
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
