// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
)

// Error variables for common backend failures.
var (
	// ErrNotConfigured indicates the backend base URL is not set.
	ErrNotConfigured = errors.New("backend URL not configured")

	// ErrUnauthorized indicates the bearer credential was rejected (401).
	// Callers must treat this as an implicit session expiry.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout indicates the request exceeded its deadline without a
	// response. Never retried automatically; the user re-triggers the action.
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork indicates no response was received from the backend.
	ErrNetwork = errors.New("backend unreachable")
)

// ServerError represents a non-2xx response that carried a body.
type ServerError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server error (%d)", e.StatusCode)
}

// IsCancelled reports whether err is a user-initiated cancellation.
// Cancellation is not a failure: it follows the rollback path but is
// surfaced as a distinct status rather than an error message.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
