package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestManager(url string) *Manager {
	m := NewManager("user@example.com", "secret", "api-key", url)
	m.now = fixedNow
	return m
}

func TestValidTokenUsesCachedToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	m := newTestManager(srv.URL)
	m.session = session{
		accessToken: "cached",
		expiry:      fixedNow().Add(10 * time.Minute),
	}

	token, err := m.ValidToken(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token != "cached" {
		t.Errorf("Expected cached token, got %s", token)
	}
	if calls != 0 {
		t.Errorf("Expected no auth calls, got %d", calls)
	}
}

func TestValidTokenRefreshesExpiringToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "refresh_token" {
			t.Errorf("Expected refresh_token grant, got %s", got)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		if payload["refresh_token"] != "old-refresh" {
			t.Errorf("Expected refresh token in payload, got %v", payload)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "fresh",
			"refresh_token": "new-refresh",
			"expires_in":    1800,
		})
	}))
	defer srv.Close()

	m := newTestManager(srv.URL)
	// Token expiring in 200s is inside the 5-minute margin.
	m.session = session{
		accessToken:  "stale",
		refreshToken: "old-refresh",
		expiry:       fixedNow().Add(200 * time.Second),
	}

	token, err := m.ValidToken(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token != "fresh" {
		t.Errorf("Expected refreshed token, got %s", token)
	}
	if m.session.refreshToken != "new-refresh" {
		t.Errorf("Expected new refresh token cached, got %s", m.session.refreshToken)
	}
	if want := fixedNow().Add(1800 * time.Second); !m.session.expiry.Equal(want) {
		t.Errorf("Expected expiry %v, got %v", want, m.session.expiry)
	}
}

func TestValidTokenFallsBackToPasswordAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "refresh_token":
			http.Error(w, "refresh token expired", http.StatusUnauthorized)
		case "password":
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("Failed to decode payload: %v", err)
			}
			if payload["email"] != "user@example.com" || payload["password"] != "secret" {
				t.Errorf("Unexpected credentials: %v", payload)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "password-token",
				"refresh_token": "r2",
			})
		default:
			t.Errorf("Unexpected grant type %s", r.URL.Query().Get("grant_type"))
		}
	}))
	defer srv.Close()

	m := newTestManager(srv.URL)
	m.session = session{
		accessToken:  "stale",
		refreshToken: "dead-refresh",
		expiry:       fixedNow().Add(-time.Minute),
	}

	token, err := m.ValidToken(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token != "password-token" {
		t.Errorf("Expected password-grant token, got %s", token)
	}
	// Omitted expires_in falls back to the one-hour default.
	if want := fixedNow().Add(3600 * time.Second); !m.session.expiry.Equal(want) {
		t.Errorf("Expected default TTL expiry %v, got %v", want, m.session.expiry)
	}
}

func TestValidTokenMissingCredentials(t *testing.T) {
	m := NewManager("", "", "api-key", "http://unused.invalid")
	m.now = fixedNow

	_, err := m.ValidToken(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}
}

func TestValidTokenAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusBadRequest)
	}))
	defer srv.Close()

	m := newTestManager(srv.URL)

	_, err := m.ValidToken(context.Background())
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *auth.Error, got %v", err)
	}
	if authErr.Status != http.StatusBadRequest || authErr.Grant != "password" {
		t.Errorf("Unexpected error detail: %+v", authErr)
	}
}

func TestRefreshFailureClearsRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "refresh_token":
			http.Error(w, "nope", http.StatusUnauthorized)
		case "password":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "t2"})
		}
	}))
	defer srv.Close()

	m := newTestManager(srv.URL)
	m.session = session{refreshToken: "dead"}

	if _, err := m.ValidToken(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// The dead refresh credential must not be retried on the next call.
	if m.session.refreshToken != "" {
		t.Errorf("Expected refresh token cleared after failed refresh, got %q", m.session.refreshToken)
	}
}
