package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

// BackendErrorResponse mirrors the JSON error body returned by the auth
// backend: {"error": "...", "error_description": "..."} or
// {"msg": "...", "code": ...}.
type BackendErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
}

func (r *BackendErrorResponse) message() string {
	switch {
	case r.Description != "":
		return r.Description
	case r.Msg != "":
		return r.Msg
	default:
		return r.Error
	}
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into a RemoteError for the given operation. The response body is fully
// consumed and closed.
func ParseResponseError(resp *http.Response, op string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return remoteerrors.Transport(op,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	cause := fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes))
	var backend BackendErrorResponse
	if json.Unmarshal(bodyBytes, &backend) == nil && backend.message() != "" {
		cause = fmt.Errorf("status %d: %s", resp.StatusCode, backend.message())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return remoteerrors.AuthFailed(op, cause)
	case resp.StatusCode == http.StatusNotFound:
		return remoteerrors.NotFound(op, cause)
	case resp.StatusCode == http.StatusConflict:
		return remoteerrors.Conflict(op, cause)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return remoteerrors.Timeout(op, cause)
	default:
		return remoteerrors.Transport(op, cause)
	}
}

// ClassifyTransportError converts a raw client error (network failure, breaker
// open, context expiry) into a RemoteError for the given operation.
func ClassifyTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCircuitOpen) {
		return remoteerrors.Transport(op, err)
	}
	return remoteerrors.Classify(op, err)
}
