// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"
)

// Attachment is a spreadsheet uploaded to a conversation.
type Attachment struct {
	ID         string
	Filename   string
	UploadedAt time.Time
}

// ValidateSpreadsheetName rejects any filename that is not the single
// accepted spreadsheet format. Runs locally, before any network call.
func ValidateSpreadsheetName(name string) error {
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return ErrInvalidFileType
	}
	return nil
}

// =============================================================================
// ATTACHMENT BINDING
// =============================================================================

// Binding tracks the uploaded files of the active conversation and which
// single file, if any, is armed to accompany the next outgoing message.
//
// Invariant: the armed id is either empty or present in the file set, and
// it is cleared whenever the log is reloaded for a different conversation.
type Binding struct {
	conversationID string
	files          []Attachment
	armedID        string
}

// NewBinding creates an empty binding.
func NewBinding() *Binding {
	return &Binding{}
}

// Files returns the conversation's attachments in upload order. The
// returned slice is shared; callers must not mutate it.
func (b *Binding) Files() []Attachment { return b.files }

// ArmedID returns the armed file id, or "" when nothing is armed.
func (b *Binding) ArmedID() string { return b.armedID }

// Armed returns the armed attachment.
func (b *Binding) Armed() (Attachment, bool) {
	if b.armedID == "" {
		return Attachment{}, false
	}
	for _, f := range b.files {
		if f.ID == b.armedID {
			return f, true
		}
	}
	return Attachment{}, false
}

// Reset rebinds the attachment set to a conversation load. The armed
// pointer survives only when the load targets the same conversation that
// was previously bound and the armed file is still in the set.
func (b *Binding) Reset(conversationID string, files []Attachment) {
	sameConversation := conversationID != "" && conversationID == b.conversationID
	b.conversationID = conversationID
	b.files = append([]Attachment(nil), files...)
	if !sameConversation {
		b.armedID = ""
		return
	}
	if _, ok := b.Armed(); !ok {
		b.armedID = ""
	}
}

// Add records a successful upload and arms the new attachment.
func (b *Binding) Add(a Attachment) {
	b.files = append(b.files, a)
	b.armedID = a.ID
}

// Arm toggles the armed state of a file: arming an unarmed file selects
// it, re-arming the already armed id disarms it. Unknown ids are ignored.
// Returns the resulting armed id.
func (b *Binding) Arm(id string) string {
	if id == b.armedID {
		b.armedID = ""
		return ""
	}
	for _, f := range b.files {
		if f.ID == id {
			b.armedID = id
			return id
		}
	}
	return b.armedID
}

// Disarm clears the armed pointer.
func (b *Binding) Disarm() {
	b.armedID = ""
}
