// Package amazon fetches the best-seller rank string from a product page.
package amazon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL        = "https://www.amazon.co.jp"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"
	DefaultAcceptLanguage = "ja-JP,ja;q=0.9"

	// maxBodyBytes caps how much of a product page is read.
	maxBodyBytes = 8 << 20
)

// Status classifies one fetch.
type Status string

const (
	StatusOK              Status = "OK"
	StatusBlocked         Status = "BLOCKED_403"
	StatusCaptcha         Status = "CAPTCHA_SUSPECTED"
	StatusRankUnavailable Status = "RANK_UNAVAILABLE"
	StatusFetchError      Status = "FETCH_ERROR"
)

const httpStatusPrefix = "HTTP_"

// HTTPStatus is the status for a non-200, non-403 response.
func HTTPStatus(code int) Status {
	return Status(fmt.Sprintf("%s%d", httpStatusPrefix, code))
}

// Sentinel is the text written to the sheet when no rank was obtained.
func (s Status) Sentinel() string {
	switch s {
	case StatusBlocked:
		return "HTTP_403"
	case StatusCaptcha:
		return "CAPTCHA?"
	case StatusRankUnavailable:
		return "RANK_N/A"
	default:
		return string(s)
	}
}

var (
	captchaPhrase = "ロボットではありません"
	// label, separator, grouped integer, rank suffix; digits and spaces
	// include their full-width forms
	rankRe = regexp.MustCompile(`([^\n]{2,80})[\s\p{Z}]*-[\s\p{Z}]*(\p{Nd}{1,3}(?:,\p{Nd}{3})*)位`)
)

type Client struct {
	baseURL        string
	userAgent      string
	acceptLanguage string
	client         *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ProductURL returns the product page for asin.
func (c *Client) ProductURL(asin string) string {
	return fmt.Sprintf("%s/dp/%s", c.baseURL, asin)
}

// FetchRank issues one GET for the product page and classifies the result.
// value is non-empty only when status is StatusOK. It never retries.
func (c *Client) FetchRank(ctx context.Context, asin string) (string, Status) {
	url := c.ProductURL(asin)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn().Err(err).Str("asin", asin).Msg("Failed to create product request")
		return "", StatusFetchError
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.acceptLanguage)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("asin", asin).Msg("Product page request failed")
		return "", StatusFetchError
	}
	defer resp.Body.Close()

	log.Debug().
		Str("asin", asin).
		Int("status_code", resp.StatusCode).
		Msg("Received product page response")

	if resp.StatusCode == http.StatusForbidden {
		return "", StatusBlocked
	}
	if resp.StatusCode != http.StatusOK {
		return "", HTTPStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Str("asin", asin).Msg("Failed to read product page")
		return "", StatusFetchError
	}

	return ClassifyPage(string(body))
}

// ClassifyPage inspects a 200 response body.
func ClassifyPage(html string) (string, Status) {
	if looksLikeCaptcha(html) {
		return "", StatusCaptcha
	}

	text, err := VisibleText(html)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse product page")
		return "", StatusRankUnavailable
	}

	if rank, ok := ParseRank(text); ok {
		return rank, StatusOK
	}
	return "", StatusRankUnavailable
}

func looksLikeCaptcha(html string) bool {
	return strings.Contains(strings.ToLower(html), "captcha") || strings.Contains(html, captchaPhrase)
}

// ParseRank finds the first "label - 1,234位" run in text. The match is not
// checked against the product itself.
func ParseRank(text string) (string, bool) {
	m := rankRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("%s - %s位", strings.TrimSpace(m[1]), m[2]), true
}
