// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSpreadsheetName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"data.xlsx", true},
		{"DATA.XLSX", true},
		{"rapport_q3.xlsx", true},
		{"data.xls", false},
		{"data.csv", false},
		{"data.xlsx.exe", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateSpreadsheetName(tt.name)
		if tt.ok && err != nil {
			t.Errorf("ValidateSpreadsheetName(%q) = %v, want nil", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidFileType) {
			t.Errorf("ValidateSpreadsheetName(%q) = %v, want ErrInvalidFileType", tt.name, err)
		}
	}
}

func TestBinding_AddAutoArms(t *testing.T) {
	b := NewBinding()
	b.Reset("c1", nil)

	b.Add(Attachment{ID: "f1", Filename: "data.xlsx", UploadedAt: time.Now()})
	if b.ArmedID() != "f1" {
		t.Errorf("upload should auto-arm, armed = %q", b.ArmedID())
	}
}

func TestBinding_ArmToggles(t *testing.T) {
	b := NewBinding()
	b.Reset("c1", []Attachment{{ID: "f1"}, {ID: "f2"}})

	if got := b.Arm("f1"); got != "f1" {
		t.Errorf("Arm(f1) = %q", got)
	}
	// Re-arming the armed id disarms it.
	if got := b.Arm("f1"); got != "" {
		t.Errorf("re-arm should disarm, got %q", got)
	}
	// Unknown ids are ignored.
	b.Arm("f2")
	if got := b.Arm("nope"); got != "f2" {
		t.Errorf("unknown id must not change armed state, got %q", got)
	}
}

func TestBinding_ResetClearsArmedForDifferentConversation(t *testing.T) {
	b := NewBinding()
	b.Reset("c1", []Attachment{{ID: "f1"}})
	b.Arm("f1")

	// Reload of the same conversation keeps the armed pointer.
	b.Reset("c1", []Attachment{{ID: "f1"}, {ID: "f2"}})
	if b.ArmedID() != "f1" {
		t.Errorf("same-conversation reload should keep armed, got %q", b.ArmedID())
	}

	// Armed file vanished server-side: pointer must not dangle.
	b.Reset("c1", []Attachment{{ID: "f2"}})
	if b.ArmedID() != "" {
		t.Errorf("armed id must be a member of the file set, got %q", b.ArmedID())
	}

	b.Reset("c1", []Attachment{{ID: "f2"}})
	b.Arm("f2")
	b.Reset("c2", []Attachment{{ID: "f2"}})
	if b.ArmedID() != "" {
		t.Errorf("switching conversations must clear the armed pointer, got %q", b.ArmedID())
	}
}
