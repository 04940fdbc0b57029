// Package auth implements the session surface of the remote backend: the
// OAuth handshake, sign-out and current-user lookup against the backend's
// auth REST API.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/farookquisar/restate-client/internal/domain"
	"github.com/farookquisar/restate-client/internal/gateway"
	"github.com/farookquisar/restate-client/pkg/httpclient"
	"github.com/farookquisar/restate-client/pkg/remoteerrors"
	"github.com/farookquisar/restate-client/pkg/validator"
)

// Client talks to the backend's auth API. It holds the access token for the
// current session; the token is process-local state, never persisted.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger

	mu          sync.Mutex
	accessToken string
}

// NewClient creates a new auth client for the given backend endpoint.
func NewClient(baseURL, apiKey string, httpc *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpc,
		logger:  logger,
	}
}

// SetSession installs the access token obtained from the OAuth callback.
func (c *Client) SetSession(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

// ClearSession drops the process-local session state.
func (c *Client) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// SignInWithGoogle starts the OAuth handshake: it builds the provider
// authorize URL with a fresh PKCE verifier. The presentation layer opens the
// URL and hands the callback code to ExchangeCode together with the verifier.
func (c *Client) SignInWithGoogle(ctx context.Context) (*gateway.OAuthSession, error) {
	const op = "sign in with google"

	verifier, err := randomToken(32)
	if err != nil {
		return nil, remoteerrors.AuthFailed(op, fmt.Errorf("generate code verifier: %w", err))
	}

	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	q := url.Values{}
	q.Set("provider", "google")
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "s256")

	return &gateway.OAuthSession{
		Provider:    "google",
		RedirectURL: fmt.Sprintf("%s/auth/v1/authorize?%s", c.baseURL, q.Encode()),
		Verifier:    verifier,
	}, nil
}

// ExchangeCode completes the handshake: it trades the callback code and the
// PKCE verifier for an access token and installs it as the current session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) error {
	const op = "exchange auth code"

	body, err := json.Marshal(map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return remoteerrors.AuthFailed(op, err)
	}

	u := c.baseURL + "/auth/v1/token?grant_type=pkce"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(body)))
	if err != nil {
		return remoteerrors.AuthFailed(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return httpclient.ClassifyTransportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, op)
	}
	defer func() { _ = resp.Body.Close() }()

	var grant struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&grant); err != nil {
		return remoteerrors.AuthFailed(op, fmt.Errorf("decode token response: %w", err))
	}
	if grant.AccessToken == "" {
		return remoteerrors.AuthFailed(op, fmt.Errorf("token response missing access_token"))
	}

	c.SetSession(grant.AccessToken)
	return nil
}

// SignOut invalidates the current session on the backend and drops the local
// token. Signing out without a session is a no-op, not an error.
func (c *Client) SignOut(ctx context.Context) error {
	const op = "sign out"

	token := c.token()
	if token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/logout", http.NoBody)
	if err != nil {
		return remoteerrors.AuthFailed(op, err)
	}
	c.setAuthHeaders(req, token)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return httpclient.ClassifyTransportError(op, err)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, op)
	}
	_ = resp.Body.Close()

	c.ClearSession()
	return nil
}

// CurrentUser returns the authenticated identity. Having no session (or an
// expired one) is an Empty result, not an error; only transport and
// auth-service failures fail the call.
func (c *Client) CurrentUser(ctx context.Context) gateway.Result[domain.UserProfile] {
	const op = "get current user"

	token := c.token()
	if token == "" {
		return gateway.None[domain.UserProfile]()
	}

	if expired, err := tokenExpired(token); err != nil || expired {
		if err != nil {
			c.logger.WarnContext(ctx, "dropping unparsable access token",
				slog.String("error", err.Error()))
		}
		c.ClearSession()
		return gateway.None[domain.UserProfile]()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/auth/v1/user", http.NoBody)
	if err != nil {
		return gateway.Fail[domain.UserProfile](remoteerrors.AuthFailed(op, err))
	}
	c.setAuthHeaders(req, token)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return gateway.Fail[domain.UserProfile](httpclient.ClassifyTransportError(op, err))
	}

	// A rejected token means the session is gone, which is "absent", not a
	// failure the subscriber should see.
	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		c.ClearSession()
		return gateway.None[domain.UserProfile]()
	}
	if resp.StatusCode != http.StatusOK {
		return gateway.Fail[domain.UserProfile](httpclient.ParseResponseError(resp, op))
	}
	defer func() { _ = resp.Body.Close() }()

	var payload struct {
		ID           string `json:"id"`
		UserMetadata struct {
			Name      *string `json:"name"`
			AvatarURL *string `json:"avatar_url"`
		} `json:"user_metadata"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return gateway.Fail[domain.UserProfile](remoteerrors.AuthFailed(op,
			fmt.Errorf("decode user response: %w", err)))
	}

	profile := domain.UserProfile{
		ID:        payload.ID,
		Name:      payload.UserMetadata.Name,
		AvatarURL: payload.UserMetadata.AvatarURL,
		CreatedAt: payload.CreatedAt,
		UpdatedAt: payload.UpdatedAt,
	}
	if err := validator.Validate(&profile); err != nil {
		return gateway.Fail[domain.UserProfile](remoteerrors.AuthFailed(op,
			fmt.Errorf("user row failed shape validation: %w", err)))
	}

	return gateway.Ok(profile)
}

func (c *Client) setAuthHeaders(req *http.Request, token string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
}

// tokenExpired parses the access token without verifying its signature (the
// client has no signing secret) and checks the expiry claim.
func tokenExpired(token string) (bool, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}
	return claims.ExpiresAt.Before(time.Now()), nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
