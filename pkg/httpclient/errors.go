package httpclient

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

// upstreamError matches the httputil error envelope served by appstore
// services and compatible catalog upstreams.
type upstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response body and turns it
// into an error. Enveloped bodies keep their code and message.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	var env upstreamError
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return mapUpstreamError(resp.StatusCode, env.Error.Code, env.Error.Message, upstream)
	}
	return fmt.Errorf("%s returned status %d: %s", upstream, resp.StatusCode, string(body))
}

func mapUpstreamError(status int, code, message, upstream string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusGone:
		return apperrors.Gone(qualified)
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    code,
			Message: qualified,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", upstream, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}
