package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/reviewhub/pkg/errors"
)

// errorEnvelope matches the {"error":{...}} body written by pkg/httputil.
type errorEnvelope struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response body and returns
// an AppError carrying the server's code and message when the body is a
// standard error envelope.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil || env.Error == nil {
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: fmt.Sprintf("%s returned status %d", service, resp.StatusCode),
			Status:  resp.StatusCode,
			Err:     sentinelFor(resp.StatusCode),
		}
	}

	msg := env.Error.Message
	for field, problem := range env.Error.Fields {
		msg += fmt.Sprintf("; %s %s", field, problem)
	}
	return &apperrors.AppError{
		Code:    env.Error.Code,
		Message: msg,
		Status:  resp.StatusCode,
		Err:     sentinelFor(resp.StatusCode),
	}
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	case status == http.StatusConflict:
		return apperrors.ErrConflict
	case status == http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail
	default:
		return apperrors.ErrInternal
	}
}
