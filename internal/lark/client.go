// Package lark is a small client for the Lark Open API endpoints used by the
// rank sync job and the echo webhook.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"amazon_rank_sync/internal/retry"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// APIError is a non-200 response or a non-zero application code.
type APIError struct {
	Op         string
	StatusCode int
	Code       int
	Msg        string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode != http.StatusOK {
		return fmt.Sprintf("[lark][%s] status=%d body=%s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("[lark][%s] code=%d msg=%s", e.Op, e.Code, e.Msg)
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }
func (e *APIError) ResponseBody() string { return e.Body }

// retryable reports whether another attempt may succeed.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	host             string
	spreadsheetToken string
	httpClient       *http.Client
}

// NewClient returns a client whose requests carry the bearer token from
// tokens. spreadsheetToken may be empty when only messaging is used.
func NewClient(host, spreadsheetToken string, tokens oauth2.TokenSource, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host:             strings.TrimRight(host, "/"),
		spreadsheetToken: spreadsheetToken,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: tokens,
				Base:   http.DefaultTransport,
			},
		},
	}
}

// do sends one API request and decodes the data field into out. Errors that
// a retry cannot fix are marked permanent.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out interface{}) error {
	u := c.host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to encode %s request: %w", op, err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create %s request: %w", op, err))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return retry.Permanent(authErr)
		}
		return fmt.Errorf("failed to make %s request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	log.Debug().
		Str("op", op).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(raw)).
		Msg("Received Lark API response")

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
		if apiErr.retryable() {
			return apiErr
		}
		return retry.Permanent(apiErr)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode %s response: %w", op, err))
	}
	if env.Code != 0 {
		return retry.Permanent(&APIError{Op: op, StatusCode: resp.StatusCode, Code: env.Code, Msg: env.Msg, Body: string(raw)})
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode %s data: %w", op, err))
		}
	}
	return nil
}
