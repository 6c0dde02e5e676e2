package tracking

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, calls *int32, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint got method %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":%d}`, n, expiresIn)
	}))
}

func TestTokenManagerReusesUnexpiredToken(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, 3600)
	defer server.Close()

	m := NewTokenManager("account", "secure", server.URL)

	first, err := m.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	second, err := m.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("second token: %v", err)
	}

	if first != second {
		t.Errorf("expected cached token, got %q then %q", first, second)
	}
	if calls != 1 {
		t.Errorf("token endpoint called %d times, want 1", calls)
	}
}

func TestTokenManagerRefreshesNearExpiry(t *testing.T) {
	var calls int32
	// Expires in 30s, inside the 60s refresh buffer, so every call refreshes.
	server := newTokenServer(t, &calls, 30)
	defer server.Close()

	m := NewTokenManager("account", "secure", server.URL)

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("first token: %v", err)
	}
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("second token: %v", err)
	}

	if calls != 2 {
		t.Errorf("token endpoint called %d times, want 2", calls)
	}
}

func TestTokenManagerForceRefresh(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, 3600)
	defer server.Close()

	m := NewTokenManager("account", "secure", server.URL)

	first, _ := m.Token(context.Background(), false)
	second, err := m.Token(context.Background(), true)
	if err != nil {
		t.Fatalf("forced refresh: %v", err)
	}

	if first == second {
		t.Error("forced refresh returned the cached token")
	}
	if calls != 2 {
		t.Errorf("token endpoint called %d times, want 2", calls)
	}
}

func TestTokenManagerMissingCredentials(t *testing.T) {
	m := NewTokenManager("", "", "http://localhost/oauth/token")

	if m.Configured() {
		t.Error("Configured() should be false without credentials")
	}

	_, err := m.Token(context.Background(), false)
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrAuthMissing {
		t.Errorf("error code = %s, want AUTH_MISSING", trackErr.Code)
	}
}

func TestTokenManagerRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusBadRequest)
	}))
	defer server.Close()

	m := NewTokenManager("account", "wrong", server.URL)

	_, err := m.Token(context.Background(), false)
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrAuthFailed {
		t.Errorf("error code = %s, want AUTH_FAILED", trackErr.Code)
	}
}

func TestTokenManagerMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"expires_in":3600}`)
	}))
	defer server.Close()

	m := NewTokenManager("account", "secure", server.URL)

	_, err := m.Token(context.Background(), false)
	trackErr := AsError(err, ErrAPIError)
	if trackErr.Code != ErrAuthFailed {
		t.Errorf("error code = %s, want AUTH_FAILED", trackErr.Code)
	}
}

func TestTokenManagerClockDrivenExpiry(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls, 600)
	defer server.Close()

	m := NewTokenManager("account", "secure", server.URL)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("first token: %v", err)
	}

	// 600s lifetime minus the 60s buffer: still fresh at +8m, stale at +10m.
	current = current.Add(8 * time.Minute)
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("second token: %v", err)
	}
	if calls != 1 {
		t.Fatalf("token refreshed while still fresh, calls = %d", calls)
	}

	current = current.Add(2 * time.Minute)
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("third token: %v", err)
	}
	if calls != 2 {
		t.Errorf("token not refreshed after expiry, calls = %d", calls)
	}
}
