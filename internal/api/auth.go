// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Login exchanges credentials for a bearer token. The endpoint speaks the
// OAuth2 password flow, so the body is form-encoded rather than JSON.
//
// When the account has confirmed two-factor enabled, the returned token has
// RequiresSecondFactor set and an empty AccessToken; the caller must follow
// up with VerifyTwoFactor before the session is usable.
func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setHeaders(req)

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp, body)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// VerifyTwoFactor completes a login that required a second factor.
// There is no retry policy: an expired or invalid code is surfaced as a
// *ServerError and the user must resubmit.
func (c *Client) VerifyTwoFactor(ctx context.Context, username, code string) (*Token, error) {
	in := map[string]string{"username": username, "code": code}
	var token Token
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/verify-2fa", in, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Me fetches the authenticated identity for the current bearer token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/api/v1/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetupTwoFactor starts TOTP enrolment and returns the shared secret plus
// the otpauth:// provisioning URI to feed into an authenticator app.
func (c *Client) SetupTwoFactor(ctx context.Context) (*TwoFactorSetup, error) {
	var setup TwoFactorSetup
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/setup-2fa", nil, &setup); err != nil {
		return nil, err
	}
	return &setup, nil
}

// ConfirmTwoFactor finishes TOTP enrolment with a code from the
// authenticator app.
func (c *Client) ConfirmTwoFactor(ctx context.Context, code string) error {
	in := map[string]string{"code": code}
	return c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/confirm-2fa", in, nil)
}

// DisableTwoFactor turns TOTP off for the current account.
func (c *Client) DisableTwoFactor(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/v1/auth/disable-2fa", nil, nil)
}
