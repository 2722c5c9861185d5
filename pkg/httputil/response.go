package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/pkg/logger"
	"github.com/siapee/siapee/pkg/validator"
)

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error *ErrorResponse `json:"error"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteNoContent writes an empty 204 response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteErrorCode writes an error envelope with an explicit status and code.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, ErrorEnvelope{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID(r)},
	})
}

// WriteError renders err as an error envelope. AppErrors keep their code and
// status, decode and validation failures become 400s, bare sentinels map onto
// their status, and anything else is logged and hidden behind a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(r, err, fallback)
		}
		WriteErrorCode(w, r, appErr.Status, appErr.Code, appErr.Message)
		return
	}

	var decErr *validator.DecodeError
	if errors.As(err, &decErr) {
		WriteErrorCode(w, r, http.StatusBadRequest, apperrors.CodeInvalidPayload, decErr.Error())
		return
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
			Error: &ErrorResponse{
				Code:      apperrors.CodeValidation,
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID(r),
			},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := apperrors.CodeInternal
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = apperrors.CodeNotFound, "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		code, message = apperrors.CodeConflict, "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = apperrors.CodeInvalidPayload, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = apperrors.CodeUnauthenticated, "unauthenticated"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = apperrors.CodeForbidden, "forbidden"
	default:
		status = http.StatusInternalServerError
		logInternal(r, err, fallback)
	}

	WriteErrorCode(w, r, status, code, message)
}

func logInternal(r *http.Request, err error, fallback *slog.Logger) {
	// Prefer the request-scoped logger installed by middleware.RequestLogger.
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return logger.CorrelationIDFromContext(r.Context())
}
