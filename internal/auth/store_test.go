// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

// memStorage is an in-memory CredentialStorage for tests.
type memStorage struct {
	token   string
	setErr  error
	cleared int
}

func (m *memStorage) Get() (string, error) { return m.token, nil }

func (m *memStorage) Set(token string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.token = token
	return nil
}

func (m *memStorage) Clear() error { m.token = ""; m.cleared++; return nil }

func TestNewStore_RestoresPersistedToken(t *testing.T) {
	store, err := NewStore(&memStorage{token: "persisted"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Token() != "persisted" {
		t.Errorf("Token() = %q, want restored token", store.Token())
	}
	if store.Identity() != nil {
		t.Error("restored token must not imply a known identity")
	}
}

func TestEstablishAndClear(t *testing.T) {
	mem := &memStorage{}
	store, _ := NewStore(mem)

	id := Identity{ID: 7, Username: "hamza", DisplayName: "Hamza E.", IsAdmin: true}
	if err := store.Establish("jwt", id); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if mem.token != "jwt" {
		t.Error("Establish must persist the credential")
	}
	if got := store.Identity(); got == nil || got.Username != "hamza" {
		t.Errorf("Identity() = %+v", got)
	}

	store.Clear()
	if store.HasToken() {
		t.Error("Clear must drop the credential")
	}
	if store.Identity() != nil {
		t.Error("Clear must drop the identity")
	}
	if mem.cleared != 1 {
		t.Error("Clear must wipe durable storage")
	}
}

func TestEstablish_StorageFailureDoesNotPinSession(t *testing.T) {
	mem := &memStorage{setErr: errors.New("disk full")}
	store, _ := NewStore(mem)

	if err := store.Establish("jwt", Identity{Username: "x"}); err == nil {
		t.Fatal("Establish should surface storage errors")
	}
	if store.HasToken() {
		t.Error("failed Establish must not leave a token in memory")
	}
}

func TestCodeLooksValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{" 123456 ", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := CodeLooksValid(tt.code); got != tt.want {
			t.Errorf("CodeLooksValid(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSelfCheckCode(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "pfa-assistant", AccountName: "hamza"})
	if err != nil {
		t.Fatalf("generating test secret: %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generating test code: %v", err)
	}

	if !SelfCheckCode(code, key.Secret()) {
		t.Error("freshly generated code should validate")
	}
	if SelfCheckCode("000000", key.Secret()) {
		t.Error("arbitrary code should not validate")
	}
}
