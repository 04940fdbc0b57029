package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farookquisar/restate-client/internal/gateway"
	"github.com/farookquisar/restate-client/pkg/httpclient"
	"github.com/farookquisar/restate-client/pkg/logger"
	"github.com/farookquisar/restate-client/pkg/remoteerrors"
)

func newAuthFixture(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpc := httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      0,
		MaxConnsPerHost: 5,
	})
	log := logger.NewWithWriter("test", "error", io.Discard)
	cb := httpclient.NewCircuitBreakerClient(httpc, httpclient.DefaultCircuitBreakerConfig(t.Name()), log)

	return NewClient(server.URL, "anon-key", cb, log)
}

func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSignInWithGoogle_BuildsAuthorizeURL(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("sign-in must not hit the network")
	}))

	session, err := c.SignInWithGoogle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "google", session.Provider)
	assert.Contains(t, session.RedirectURL, "/auth/v1/authorize?")
	assert.Contains(t, session.RedirectURL, "provider=google")
	assert.Contains(t, session.RedirectURL, "code_challenge=")
	assert.NotEmpty(t, session.Verifier)
}

func TestCurrentUser_NoSession(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no session must not hit the network")
	}))

	res := c.CurrentUser(context.Background())
	assert.Equal(t, gateway.Empty, res.Outcome)
}

func TestCurrentUser_Success(t *testing.T) {
	token := ""
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "u1",
			"user_metadata": {"name": "Ada", "avatar_url": "https://img.example/ada.png"},
			"created_at": "2025-01-02T03:04:05Z",
			"updated_at": "2025-01-02T03:04:05Z"
		}`))
	}))
	token = mintToken(t, time.Now().Add(time.Hour))
	c.SetSession(token)

	res := c.CurrentUser(context.Background())
	require.Equal(t, gateway.Success, res.Outcome)
	assert.Equal(t, "u1", res.Value.ID)
	require.NotNil(t, res.Value.Name)
	assert.Equal(t, "Ada", *res.Value.Name)
}

func TestCurrentUser_ExpiredTokenIsAbsentWithoutNetwork(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("expired session must not hit the network")
	}))
	c.SetSession(mintToken(t, time.Now().Add(-time.Minute)))

	res := c.CurrentUser(context.Background())
	assert.Equal(t, gateway.Empty, res.Outcome)
}

func TestCurrentUser_RejectedTokenBecomesAbsent(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
	}))
	c.SetSession(mintToken(t, time.Now().Add(time.Hour)))

	res := c.CurrentUser(context.Background())
	assert.Equal(t, gateway.Empty, res.Outcome)

	// The dead session is dropped, so the next call skips the network too.
	res = c.CurrentUser(context.Background())
	assert.Equal(t, gateway.Empty, res.Outcome)
}

func TestCurrentUser_ServerFailure(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c.SetSession(mintToken(t, time.Now().Add(time.Hour)))

	res := c.CurrentUser(context.Background())
	require.Equal(t, gateway.Failed, res.Outcome)
	assert.True(t, errors.Is(res.Err, remoteerrors.ErrTransport))
}

func TestSignOut_WithoutSessionIsNoOp(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("sign-out without session must not hit the network")
	}))

	assert.NoError(t, c.SignOut(context.Background()))
}

func TestSignOut_InvalidatesSession(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			assert.Equal(t, http.MethodPost, r.Method)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		t.Errorf("unexpected request to %s after sign-out", r.URL.Path)
	}))
	c.SetSession(mintToken(t, time.Now().Add(time.Hour)))

	require.NoError(t, c.SignOut(context.Background()))

	res := c.CurrentUser(context.Background())
	assert.Equal(t, gateway.Empty, res.Outcome)
}

func TestExchangeCode_InstallsSession(t *testing.T) {
	token := ""
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"` + token + `"}`))
		case "/auth/v1/user":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u1","created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	token = mintToken(t, time.Now().Add(time.Hour))

	require.NoError(t, c.ExchangeCode(context.Background(), "code-123", "verifier-456"))

	res := c.CurrentUser(context.Background())
	require.Equal(t, gateway.Success, res.Outcome)
	assert.Equal(t, "u1", res.Value.ID)
}

func TestExchangeCode_AuthFailure(t *testing.T) {
	c := newAuthFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"bad code"}`))
	}))

	err := c.ExchangeCode(context.Background(), "bad-code", "verifier")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remoteerrors.ErrAuthFailed))
}
