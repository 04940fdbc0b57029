package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError_Unauthorized(t *testing.T) {
	resp := fakeResponse(http.StatusUnauthorized, `{"error":"invalid_grant","error_description":"token expired"}`)

	err := ParseResponseError(resp, "get current user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remoteerrors.ErrAuthFailed))
	assert.Contains(t, err.Error(), "token expired")
}

func TestParseResponseError_NotFound(t *testing.T) {
	resp := fakeResponse(http.StatusNotFound, `{"msg":"user not found"}`)

	err := ParseResponseError(resp, "get current user")
	assert.True(t, errors.Is(err, remoteerrors.ErrNotFound))
}

func TestParseResponseError_Conflict(t *testing.T) {
	resp := fakeResponse(http.StatusConflict, `{"msg":"already exists"}`)

	err := ParseResponseError(resp, "toggle bookmark")
	assert.True(t, errors.Is(err, remoteerrors.ErrConflict))
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := fakeResponse(http.StatusBadGateway, "upstream exploded")

	err := ParseResponseError(resp, "sign out")
	assert.True(t, errors.Is(err, remoteerrors.ErrTransport))
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestParseResponseError_GatewayTimeout(t *testing.T) {
	resp := fakeResponse(http.StatusGatewayTimeout, "")

	err := ParseResponseError(resp, "sign out")
	assert.True(t, errors.Is(err, remoteerrors.ErrTimeout))
}

func TestClassifyTransportError(t *testing.T) {
	assert.NoError(t, ClassifyTransportError("op", nil))

	err := ClassifyTransportError("op", ErrCircuitOpen)
	assert.True(t, errors.Is(err, remoteerrors.ErrTransport))

	err = ClassifyTransportError("op", errors.New("dial tcp: refused"))
	assert.True(t, errors.Is(err, remoteerrors.ErrTransport))
}
