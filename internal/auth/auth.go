package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrMissingCredentials is returned when password authentication is required
// but ALAI_EMAIL or ALAI_PASSWORD is not configured.
var ErrMissingCredentials = errors.New("missing ALAI_EMAIL or ALAI_PASSWORD")

// Error reports a non-2xx response from an auth endpoint.
type Error struct {
	Grant  string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s authentication returned status %d: %s", e.Grant, e.Status, e.Body)
}

// expiryMargin is how much remaining validity a token must have before it is
// handed out. Tokens closer to expiry than this are refreshed first.
const expiryMargin = 5 * time.Minute

// defaultTTL is assumed when the auth endpoint omits expires_in.
const defaultTTL = 3600 * time.Second

// session holds the tokens from the most recent successful authentication.
type session struct {
	accessToken  string
	refreshToken string
	expiry       time.Time
}

// Manager owns the Alai session and guarantees every caller a token with at
// least five minutes of validity left. It performs no internal retry: a
// failed refresh falls back to password auth once, and a failed password
// auth propagates.
type Manager struct {
	Email    string
	Password string
	APIKey   string

	// AuthURL is the token endpoint without the grant_type query parameter.
	AuthURL string

	httpClient *http.Client
	session    session
	now        func() time.Time
}

// NewManager creates a token manager for the given account.
func NewManager(email, password, apiKey, authURL string) *Manager {
	return &Manager{
		Email:    email,
		Password: password,
		APIKey:   apiKey,
		AuthURL:  authURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// ValidToken returns a bearer token with more than five minutes of validity
// remaining, refreshing or re-authenticating as needed.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	if m.session.accessToken != "" && m.session.expiry.After(m.now().Add(expiryMargin)) {
		return m.session.accessToken, nil
	}

	if m.session.refreshToken != "" {
		token, err := m.refresh(ctx)
		if err == nil {
			return token, nil
		}
		slog.Warn("Token refresh failed, falling back to password auth", "err", err)
	}

	return m.passwordAuth(ctx)
}

// tokenResponse is the body returned by both grant types.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	payload := map[string]string{"refresh_token": m.session.refreshToken}
	resp, err := m.postGrant(ctx, "refresh_token", payload)
	if err != nil {
		// The stale refresh credential is dropped so the next call goes
		// straight to password auth.
		m.session.refreshToken = ""
		return "", err
	}
	m.cache(resp)
	return m.session.accessToken, nil
}

func (m *Manager) passwordAuth(ctx context.Context) (string, error) {
	if m.Email == "" || m.Password == "" {
		return "", ErrMissingCredentials
	}

	payload := map[string]string{"email": m.Email, "password": m.Password}
	resp, err := m.postGrant(ctx, "password", payload)
	if err != nil {
		return "", err
	}
	m.cache(resp)
	return m.session.accessToken, nil
}

func (m *Manager) cache(resp *tokenResponse) {
	ttl := defaultTTL
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
	}
	m.session = session{
		accessToken:  resp.AccessToken,
		refreshToken: resp.RefreshToken,
		expiry:       m.now().Add(ttl),
	}
}

// postGrant issues one request against the Supabase-style token endpoint.
func (m *Manager) postGrant(ctx context.Context, grantType string, payload map[string]string) (*tokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auth payload: %w", err)
	}

	url := m.AuthURL + "?grant_type=" + grantType
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("apikey", m.APIKey)
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("x-client-info", "supabase-js-web/2.45.4")
	req.Header.Set("x-supabase-api-version", "2024-01-01")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &Error{Grant: grantType, Status: resp.StatusCode, Body: string(respBody)}
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	return &tokens, nil
}
