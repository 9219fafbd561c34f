// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the pfa-assistant backend.
//
// The backend is a REST API fronting the data-catalog assistant: auth
// (including TOTP two-factor), conversation CRUD, cancellable message send,
// spreadsheet upload, feedback and statistics. This package owns the wire
// concerns only: bearer injection, timeouts, typed errors, rate limiting.
// All state reconciliation lives in internal/chat.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the base URL of a locally running backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds every request. On expiry the call resolves as
	// ErrTimeout and follows the same rollback path as any other failure.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// requestsPerSecond caps the client-side request rate. The backend sits
	// behind ModSecurity; staying under its per-IP threshold avoids 429s.
	requestsPerSecond = 8
	requestBurst      = 16
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all backend requests; per-call deadlines come from
// the request context, not the client, so cancellation stays responsive.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// TokenSource supplies the current bearer credential, or "" when logged out.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func() string

// Token implements TokenSource.
func (f TokenSourceFunc) Token() string { return f() }

// Client talks to the pfa-assistant backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	tokens     TokenSource
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *log.Logger

	// onUnauthorized is invoked once per 401 on authenticated calls so
	// the session store can tear itself down regardless of which
	// operation triggered it. Credential-exchange endpoints are exempt.
	onUnauthorized func()
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		timeout:    DefaultTimeout,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		httpClient: sharedHTTPClient,
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithTokenSource sets the bearer credential source.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	c.tokens = ts
	return c
}

// WithRateLimit overrides the client-side request throttle.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return c
}

// WithLogger enables debug request logging.
func (c *Client) WithLogger(logger *log.Logger) *Client {
	c.logger = logger
	return c
}

// OnUnauthorized registers the implicit-logout hook fired on any 401
// outside the credential-exchange endpoints; a rejected login or 2FA code
// is a typed error to the caller, not a session expiry.
func (c *Client) OnUnauthorized(fn func()) *Client {
	c.onUnauthorized = fn
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	req.Header.Set("User-Agent", "pfa-assistant-client/0.1")
}

// do performs a single HTTP request with the client timeout layered on top of
// the caller's context. The caller's cancellation always wins: a cancelled
// context surfaces as context.Canceled, a tripped deadline as ErrTimeout.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Client-side throttle; waits, does not drop.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.mapTransportError(ctx, err)
	}

	c.logf("api: %s %s", req.Method, req.URL.Path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.mapTransportError(ctx, err)
	}
	c.logf("api: %s %s -> %d (%s)", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if c.onUnauthorized != nil && !isCredentialExchange(req.URL.Path) {
			c.onUnauthorized()
		}
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// isCredentialExchange reports whether a 401 on this path means "wrong
// credentials" rather than "session expired". The implicit-logout hook
// must not tear the login form down under the user mid-attempt.
func isCredentialExchange(path string) bool {
	switch path {
	case "/api/v1/auth/login", "/api/v1/auth/verify-2fa":
		return true
	}
	return false
}

// mapTransportError converts transport failures into the typed taxonomy.
func (c *Client) mapTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		// User-initiated abort; propagated untouched so IsCancelled works.
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		// The underlying context state is more reliable than the wrapped
		// error text when a request is torn down mid-flight.
		if ctx.Err() != nil {
			return c.mapTransportError(ctx, ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrNetwork, urlErr.Err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// readBody reads the response body with a size limit.
func readBody(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}

// decodeError turns a non-2xx response into a *ServerError, extracting the
// FastAPI "detail" field when present.
func decodeError(resp *http.Response, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
		return &ServerError{StatusCode: resp.StatusCode, Detail: apiErr.Detail}
	}
	return &ServerError{StatusCode: resp.StatusCode}
}

// getJSON performs a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sendJSON performs a request with an optional JSON body and decodes the
// response into out. Both in and out may be nil.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
