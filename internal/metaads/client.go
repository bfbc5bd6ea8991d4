// Package metaads is a client for the Meta Marketing (Graph) API endpoints
// used to publish ads: image and video uploads into an ad account's library,
// video processing status, ad set lookups, and ad / ad creative creation.
//
// One Client is created per user access token. Uploads are streamed as
// multipart bodies so large videos never sit in memory. All calls share an
// optional rate limiter so a burst of uploads does not trip the app-level
// throttling on the platform side.
package metaads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Graph API base URL.
	DefaultBaseURL = "https://graph.facebook.com/v21.0"

	// defaultTimeout bounds a single API call. Video uploads can be large.
	defaultTimeout = 5 * time.Minute
)

// Client calls the Graph API on behalf of one user.
type Client struct {
	httpClient  *http.Client
	accessToken string
	baseURL     string
	limiter     *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph API base URL (tests, API version pinning).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter makes every call wait on l before being sent.
// The limiter may be shared between clients.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a Graph API client for the given user access token.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		accessToken: accessToken,
		baseURL:     DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccountPath normalises an ad account ID to its "act_<id>" form.
func AccountPath(accountID string) string {
	if strings.HasPrefix(accountID, "act_") {
		return accountID
	}
	return "act_" + accountID
}

// --- API response types ---

type idResponse struct {
	ID string `json:"id"`
}

type errorEnvelope struct {
	Error *APIError `json:"error,omitempty"`
}

// --- Internal helpers ---

// postJSON sends payload as a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	log.Trace().Str("path", endpoint).RawJSON("payload", body).Msg("Meta API payload")
	return c.do(ctx, http.MethodPost, endpoint, nil, "application/json", bytes.NewReader(body), out)
}

// get issues a GET with the given query parameters.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, query, "", nil, out)
}

// do performs one API call. The access token travels in the Authorization
// header so it never shows up in logged URLs.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, contentType string, body io.Reader, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	startTime := time.Now()
	log.Debug().Str("method", method).Str("path", endpoint).Msg("Meta API request")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Meta API response")
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Meta API response")

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		if httpResp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d (body: %s)", httpResp.StatusCode, truncate(string(respBody), 200))
		}
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(respBody), 200))
	}
	if envelope.Error != nil {
		apiErr := envelope.Error
		apiErr.HTTPStatus = httpResp.StatusCode
		log.Error().
			Str("path", endpoint).
			Str("errorMessage", apiErr.Message).
			Str("errorType", apiErr.Type).
			Int("errorCode", apiErr.Code).
			Int("errorSubcode", apiErr.Subcode).
			Bool("isTransient", apiErr.IsTransient).
			Str("fbtraceId", apiErr.FBTraceID).
			Msg("Meta API error")
		return apiErr
	}
	if httpResp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d (body: %s)", httpResp.StatusCode, truncate(string(respBody), 200))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(respBody), 200))
	}
	return nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
