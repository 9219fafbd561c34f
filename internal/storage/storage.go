// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the client's local durable state: the bearer
// credential and per-conversation composer drafts. Everything else is
// server truth and is never persisted locally.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS credential (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS drafts (
	conversation_id TEXT PRIMARY KEY,
	content         TEXT NOT NULL,
	updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the sqlite-backed local state store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the standard location of the client database,
// ~/.pfa-assistant/client.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pfa-assistant", "client.db"), nil
}

// Open opens (creating if needed) the client database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open client database: %w", err)
	}
	// Single writer: the event loop. Serialized access keeps sqlite happy.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CREDENTIAL BUCKET
// =============================================================================

// Credentials returns the credential bucket, satisfying the session
// store's storage port.
func (s *Store) Credentials() *CredentialBucket {
	return &CredentialBucket{store: s}
}

// CredentialBucket persists the single bearer credential.
type CredentialBucket struct {
	store *Store
}

// Get returns the persisted credential, or "" when none is stored.
func (b *CredentialBucket) Get() (string, error) {
	var token string
	err := b.store.db.QueryRow(`SELECT token FROM credential WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return token, nil
}

// Set stores the credential, replacing any previous one.
func (b *CredentialBucket) Set(token string) error {
	_, err := b.store.db.Exec(
		`INSERT INTO credential (id, token) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET token = excluded.token`, token)
	if err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	return nil
}

// Clear wipes the credential.
func (b *CredentialBucket) Clear() error {
	if _, err := b.store.db.Exec(`DELETE FROM credential WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// =============================================================================
// COMPOSER DRAFTS
// =============================================================================

// SaveDraft persists unsent composer text for a conversation. An empty
// draft deletes the row.
func (s *Store) SaveDraft(conversationID, content string) error {
	if conversationID == "" {
		return nil
	}
	if content == "" {
		return s.DeleteDraft(conversationID)
	}
	_, err := s.db.Exec(
		`INSERT INTO drafts (conversation_id, content, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (conversation_id) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		conversationID, content)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Draft returns the saved composer text for a conversation, or "".
func (s *Store) Draft(conversationID string) (string, error) {
	var content string
	err := s.db.QueryRow(`SELECT content FROM drafts WHERE conversation_id = ?`, conversationID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read draft: %w", err)
	}
	return content, nil
}

// DeleteDraft removes a conversation's draft, if any.
func (s *Store) DeleteDraft(conversationID string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
