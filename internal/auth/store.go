// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the client session: the authenticated identity and the
// bearer credential that gates every other backend call.
package auth

import (
	"errors"
	"sync"
)

// ErrNotAuthenticated indicates an operation that needs a live session was
// attempted while logged out.
var ErrNotAuthenticated = errors.New("not authenticated")

// CredentialStorage is the durable storage port for the bearer credential.
// Implementations must tolerate Get on an empty store (return "" with no
// error). The session store is the only writer.
type CredentialStorage interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// Identity is the authenticated user as the client sees it.
type Identity struct {
	ID                 int
	Username           string
	DisplayName        string
	IsAdmin            bool
	TwoFactorEnabled   bool
	TwoFactorConfirmed bool
}

// Store owns the session state. It is safe for concurrent use: the token is
// read from command goroutines while the event loop mutates the session.
//
// IMPORTANT: Use as a pointer; the zero value is not usable.
type Store struct {
	mu       sync.Mutex
	storage  CredentialStorage
	token    string
	identity *Identity
}

// NewStore creates a session store backed by the given credential storage,
// restoring a previously persisted token if one exists. A restored token is
// not proof of a live session; callers should validate it with /auth/me.
func NewStore(storage CredentialStorage) (*Store, error) {
	token, err := storage.Get()
	if err != nil {
		return nil, err
	}
	return &Store{storage: storage, token: token}, nil
}

// Token returns the current bearer credential, or "" when logged out.
// Satisfies api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// HasToken reports whether a credential is present (persisted or fresh).
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// Identity returns the authenticated identity, or nil when unknown.
func (s *Store) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Establish records a successful login or 2FA verification: the credential
// is persisted and the identity pinned for the lifetime of the session.
func (s *Store) Establish(token string, identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(token); err != nil {
		return err
	}
	s.token = token
	s.identity = &identity
	return nil
}

// SetIdentity updates the identity without touching the credential, used
// after validating a restored token against /auth/me.
func (s *Store) SetIdentity(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &identity
}

// Clear tears the session down: credential wiped from durable storage,
// identity dropped. Called on explicit logout and on any 401 from the
// backend (implicit session expiry).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Best effort; an unwritable store must not keep a dead session alive.
	_ = s.storage.Clear()
	s.token = ""
	s.identity = nil
}
