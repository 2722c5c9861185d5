package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/siapee/siapee/pkg/errors"
)

// errorEnvelope mirrors httputil.ErrorEnvelope without importing the server
// side package.
type errorEnvelope struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// returns an *apperrors.AppError carrying the remote status and code. The
// error wraps the sentinel matching the status, so errors.Is works across the
// wire. Bodies that are not an error envelope keep their raw text.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	code, message := apperrors.CodeInternal, string(body)
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		code, message = env.Error.Code, env.Error.Message
	} else if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &apperrors.AppError{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", serviceName, message),
		Status:  resp.StatusCode,
		Err:     sentinelFor(resp.StatusCode),
	}
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail
	default:
		if status >= 500 {
			return apperrors.ErrInternal
		}
		return nil
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
