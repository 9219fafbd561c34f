// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation log. Optimistic entries carry a
// non-empty pending ref until the server confirms or the operation rolls
// them back; they must never survive a settled operation unconfirmed.
type Message struct {
	Role    Role
	Content string
	FileID  string

	pendingRef string
}

// Pending reports whether the message is an unconfirmed optimistic entry.
func (m Message) Pending() bool { return m.pendingRef != "" }

// OptimisticRef is a handle to an optimistic log entry, usable for later
// confirmation or rollback. The zero value refers to nothing.
type OptimisticRef struct {
	id string
}

// IsZero reports whether the ref refers to nothing.
func (r OptimisticRef) IsZero() bool { return r.id == "" }

// =============================================================================
// MESSAGE LOG
// =============================================================================

// Log is the ordered message sequence of the currently loaded conversation.
// The server is the source of truth on load; local optimistic entries are
// provisional until confirmed.
type Log struct {
	conversationID string
	messages       []Message
}

// NewLog creates an empty, unbound log.
func NewLog() *Log {
	return &Log{}
}

// ConversationID returns the id of the loaded conversation, or "".
func (l *Log) ConversationID() string { return l.conversationID }

// Len returns the number of messages, optimistic entries included.
func (l *Log) Len() int { return len(l.messages) }

// Messages returns the log in order. The returned slice is shared; callers
// must not mutate it.
func (l *Log) Messages() []Message { return l.messages }

// Replace swaps the log wholesale for server truth. Any optimistic entries
// from a previous conversation are discarded with the old log.
func (l *Log) Replace(conversationID string, messages []Message) {
	l.conversationID = conversationID
	l.messages = append([]Message(nil), messages...)
}

// Clear unbinds the log, used when no conversation remains selected.
func (l *Log) Clear() {
	l.conversationID = ""
	l.messages = nil
}

// AppendOptimistic inserts a provisional entry at the tail with no server
// round-trip and returns the ref used to confirm or roll it back.
func (l *Log) AppendOptimistic(m Message) OptimisticRef {
	ref := OptimisticRef{id: uuid.NewString()}
	m.pendingRef = ref.id
	l.messages = append(l.messages, m)
	return ref
}

// Append inserts a confirmed entry at the tail.
func (l *Log) Append(m Message) {
	m.pendingRef = ""
	l.messages = append(l.messages, m)
}

// Confirm replaces the optimistic entry in place with its confirmed form.
// Returns false when the ref no longer resolves (already rolled back or the
// log was replaced).
func (l *Log) Confirm(ref OptimisticRef, confirmed Message) bool {
	idx := l.indexOf(ref)
	if idx < 0 {
		return false
	}
	confirmed.pendingRef = ""
	l.messages[idx] = confirmed
	return true
}

// Rollback removes the optimistic entry. Returns false when the ref no
// longer resolves. The caller is responsible for restoring any user input
// the entry was derived from.
func (l *Log) Rollback(ref OptimisticRef) bool {
	idx := l.indexOf(ref)
	if idx < 0 {
		return false
	}
	l.messages = append(l.messages[:idx], l.messages[idx+1:]...)
	return true
}

// HasPending reports whether any optimistic entry remains unresolved.
func (l *Log) HasPending() bool {
	for _, m := range l.messages {
		if m.Pending() {
			return true
		}
	}
	return false
}

func (l *Log) indexOf(ref OptimisticRef) int {
	if ref.IsZero() {
		return -1
	}
	for i, m := range l.messages {
		if m.pendingRef == ref.id {
			return i
		}
	}
	return -1
}
