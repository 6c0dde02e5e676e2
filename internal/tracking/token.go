package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// tokenRefreshBuffer forces a refresh slightly before the carrier's
	// stated expiry so in-flight requests never carry an expiring token.
	tokenRefreshBuffer = 60 * time.Second
	tokenTimeout       = 20 * time.Second
)

// TokenManager obtains and caches a client-credentials bearer token for the
// carrier API. The process holds a single token slot; refresh is a critical
// section so concurrent fetch paths never race the carrier's token endpoint.
type TokenManager struct {
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client
	now          Clock

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewTokenManager creates a token manager for the given OAuth endpoint.
func NewTokenManager(clientID, clientSecret, tokenURL string) *TokenManager {
	return &TokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		client:       &http.Client{Timeout: tokenTimeout},
		now:          time.Now,
	}
}

// Configured reports whether both carrier secrets are present.
func (m *TokenManager) Configured() bool {
	return m.clientID != "" && m.clientSecret != ""
}

// Token returns a valid bearer token, refreshing it when forced or when the
// cached one is within the refresh buffer of its expiry. Missing credentials
// are a configuration fault (AUTH_MISSING), never retried.
func (m *TokenManager) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if !m.Configured() {
		return "", NewError(ErrAuthMissing, "carrier API credentials are not configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !forceRefresh && m.token != "" && m.now().Add(tokenRefreshBuffer).Before(m.expiry) {
		return m.token, nil
	}
	return m.refreshLocked(ctx)
}

// refreshLocked performs the client-credentials grant. Caller holds m.mu.
func (m *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", WrapError(ErrAuthFailed, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", WrapError(ErrAuthFailed, "token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", NewError(ErrAuthFailed, fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", WrapError(ErrAuthFailed, "malformed token response", err)
	}
	if body.AccessToken == "" {
		return "", NewError(ErrAuthFailed, "token response is missing access_token")
	}

	m.token = body.AccessToken
	m.expiry = m.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return m.token, nil
}
