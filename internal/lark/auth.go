package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultHost = "https://open.larksuite.com"

	tokenPath = "/open-apis/auth/v3/tenant_access_token/internal"
	// refreshWindow is how long before expiry a token stops being reused.
	refreshWindow   = 60 * time.Second
	defaultLifetime = 3600 * time.Second
)

// Credential is a tenant access token and the instant it expires.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// AuthError is returned when the token exchange answers with a non-zero
// code, usually a wrong secret or an unpublished app.
type AuthError struct {
	Code int
	Msg  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("tenant_access_token exchange failed: code=%d msg=%s", e.Code, e.Msg)
}

// TokenCache owns the process-wide tenant access token. The lock is held
// across a refresh so concurrent callers wait for one exchange.
type TokenCache struct {
	host      string
	appID     string
	appSecret string
	client    *http.Client
	now       func() time.Time

	mu   sync.Mutex
	cred Credential
}

func NewTokenCache(host, appID, appSecret string, timeout time.Duration) *TokenCache {
	if host == "" {
		host = DefaultHost
	}
	return &TokenCache{
		host:      strings.TrimRight(host, "/"),
		appID:     appID,
		appSecret: appSecret,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// WithClock replaces the clock used for expiry checks.
func (c *TokenCache) WithClock(now func() time.Time) *TokenCache {
	c.now = now
	return c
}

// Get returns the cached credential, exchanging a new one when none is
// cached or the cached one expires within a minute.
func (c *TokenCache) Get(ctx context.Context) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cred.Token != "" && now.Before(c.cred.ExpiresAt.Add(-refreshWindow)) {
		return c.cred, nil
	}

	cred, err := c.exchange(ctx, now)
	if err != nil {
		return Credential{}, err
	}
	c.cred = cred
	log.Debug().Time("expires_at", cred.ExpiresAt).Msg("Refreshed tenant access token")
	return cred, nil
}

// Authenticate makes sure a valid credential is cached.
func (c *TokenCache) Authenticate(ctx context.Context) error {
	_, err := c.Get(ctx)
	return err
}

// Token implements oauth2.TokenSource for the API transport.
func (c *TokenCache) Token() (*oauth2.Token, error) {
	cred, err := c.Get(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
		Expiry:      cred.ExpiresAt,
	}, nil
}

type tokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

func (c *TokenCache) exchange(ctx context.Context, now time.Time) (Credential, error) {
	payload, err := json.Marshal(tokenRequest{AppID: c.appID, AppSecret: c.appSecret})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to request tenant access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, &APIError{Op: "auth", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Credential{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Code != 0 {
		return Credential{}, &AuthError{Code: tr.Code, Msg: tr.Msg}
	}

	lifetime := time.Duration(tr.Expire) * time.Second
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}
	return Credential{Token: tr.TenantAccessToken, ExpiresAt: now.Add(lifetime)}, nil
}
