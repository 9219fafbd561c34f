// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"
)

// Workspace aggregates the conversation state for one authenticated view
// session: the registry, the active message log, attachment binding,
// feedback board and the request coordinator. The view layer owns exactly
// one Workspace and is its only mutator; command goroutines never touch it
// directly, they deliver results back into the event loop first.
type Workspace struct {
	Registry    *Registry
	Log         *Log
	Attachments *Binding
	Feedback    *Board

	coordinator *Coordinator
	drafts      map[string]string
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		Registry:    NewRegistry(),
		Log:         NewLog(),
		Attachments: NewBinding(),
		Feedback:    NewBoard(),
		coordinator: NewCoordinator(),
		drafts:      make(map[string]string),
	}
}

// Sending reports whether the active conversation has an in-flight send.
// Pending state is scoped per conversation so browsing and sending on
// other conversations stays available.
func (w *Workspace) Sending() bool {
	return w.coordinator.Sending(w.Registry.ActiveID())
}

// =============================================================================
// SEND PIPELINE
// =============================================================================

// BeginSend validates and stages a send for the active conversation:
// any prior in-flight send is cancelled and rolled back (last-writer-wins),
// then the user message is appended optimistically and a token registered.
//
// restoredInput carries the superseded operation's composer text; the view
// binding puts it back into the composer when the composer is empty.
// Validation failures (*ValidationError) leave all state untouched.
func (w *Workspace) BeginSend(content, fileID string) (tok *Token, restoredInput string, err error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, "", ErrEmptyMessage
	}
	active := w.Registry.ActiveID()
	if active == "" {
		return nil, "", ErrNoConversation
	}

	tok, superseded := w.coordinator.Begin(active, content, fileID)
	if superseded != nil {
		w.Log.Rollback(superseded.Ref())
		restoredInput = superseded.Input()
	}
	tok.ref = w.Log.AppendOptimistic(Message{
		Role:    RoleUser,
		Content: content,
		FileID:  fileID,
	})
	return tok, restoredInput, nil
}

// BeginResend stages a resend of prior content and attachment. It follows
// the identical state machine as BeginSend; only the input source differs.
func (w *Workspace) BeginResend(content, fileID string) (*Token, string, error) {
	return w.BeginSend(content, fileID)
}

// FinishSendSuccess applies a confirmed server response. Returns false
// when the token was cancelled or superseded, in which case the outcome is
// discarded entirely.
//
// The log is only touched when the token's conversation is still the
// active one; a completion for a switched-away conversation must not
// corrupt the newly active log. The registry entry is refreshed either
// way, keyed by the token's conversation id.
//
// A reload while the send was in flight replaces the log wholesale and
// drops the optimistic entry; the assistant reply must not land without
// its user message, so the pair is skipped entirely and the next load
// picks it up from server truth.
func (w *Workspace) FinishSendSuccess(tok *Token, assistant Message, at time.Time) bool {
	if !w.coordinator.Settle(tok) {
		return false
	}
	if tok.ConversationID() == w.Registry.ActiveID() && w.Log.ConversationID() == tok.ConversationID() {
		confirmed := w.Log.Confirm(tok.Ref(), Message{
			Role:    RoleUser,
			Content: tok.Input(),
			FileID:  tok.FileID(),
		})
		if confirmed {
			w.Log.Append(assistant)
		}
	}
	w.Registry.Touch(tok.ConversationID(), at)
	return true
}

// FinishSendFailure rolls the operation back after a network, server or
// timeout error. Returns the composer text to restore and whether the
// failure should be surfaced; a false return means the token had already
// lost ownership and the error must be swallowed.
func (w *Workspace) FinishSendFailure(tok *Token) (restoredInput string, ok bool) {
	if !w.coordinator.Settle(tok) {
		return "", false
	}
	if tok.ConversationID() == w.Log.ConversationID() {
		w.Log.Rollback(tok.Ref())
	}
	return tok.Input(), true
}

// CancelSend aborts the active conversation's in-flight send. The local
// transition happens immediately: optimistic entry rolled back, composer
// input returned. The transport abort races behind it; when the network
// call eventually settles, FinishSend* will see a lost token and discard
// the outcome.
func (w *Workspace) CancelSend() (restoredInput string, ok bool) {
	tok := w.coordinator.Cancel(w.Registry.ActiveID())
	if tok == nil {
		return "", false
	}
	if tok.ConversationID() == w.Log.ConversationID() {
		w.Log.Rollback(tok.Ref())
	}
	return tok.Input(), true
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// CanCreateConversation enforces the empty-conversation product rule: a
// new conversation is refused while the selected one has no messages.
// A selection whose log is still loading also refuses; until the load
// lands there is no way to tell an empty conversation from a populated
// one, and repeated creates must not accumulate empties in the interim.
func (w *Workspace) CanCreateConversation() error {
	active := w.Registry.ActiveID()
	if active == "" {
		return nil
	}
	if w.Log.ConversationID() != active {
		return ErrConversationLoading
	}
	if w.Log.Len() == 0 {
		return ErrConversationEmpty
	}
	return nil
}

// ApplyCreated inserts a freshly created conversation at the head, selects
// it and resets the per-conversation state.
func (w *Workspace) ApplyCreated(s Summary) {
	w.Registry.Upsert(s)
	w.Registry.Select(s.ID)
	w.Log.Replace(s.ID, nil)
	w.Attachments.Reset(s.ID, nil)
	w.Feedback.Reset()
}

// ApplyLoad installs server truth for a conversation: the log is replaced
// wholesale, the attachment set refreshed, and all feedback state rebuilt
// from what the server returned. The armed attachment survives only when
// the load targets the conversation that was already bound.
func (w *Workspace) ApplyLoad(conversationID string, messages []Message, files []Attachment, ratings map[int]Submission) {
	w.Log.Replace(conversationID, messages)
	w.Attachments.Reset(conversationID, files)
	w.Feedback.Reset()
	for idx, sub := range ratings {
		w.Feedback.Seed(idx, sub.Rating, sub.Comment)
	}
}

// ApplyDeleted removes a conversation locally after the remote delete
// succeeded. When the deleted conversation was selected, the next most
// recent one becomes active and the caller must trigger its load;
// nextActive is "" when no conversation remains.
func (w *Workspace) ApplyDeleted(id string) (nextActive string, wasActive bool) {
	nextActive, wasActive = w.Registry.Delete(id)
	if !wasActive {
		return nextActive, false
	}
	w.Log.Clear()
	w.Attachments.Reset("", nil)
	w.Feedback.Reset()
	return nextActive, true
}

// ApplyUpload records a successful spreadsheet upload: the attachment is
// added and armed, and the owning summary refreshed.
func (w *Workspace) ApplyUpload(conversationID string, a Attachment) {
	if conversationID == w.Attachments.conversationID {
		w.Attachments.Add(a)
	}
	w.Registry.AttachFile(conversationID, a.ID)
}

// =============================================================================
// COMPOSER DRAFTS
// =============================================================================

// SaveDraft keeps unsent composer text for a conversation so it survives
// switching away and back.
func (w *Workspace) SaveDraft(conversationID, text string) {
	if conversationID == "" {
		return
	}
	if strings.TrimSpace(text) == "" {
		delete(w.drafts, conversationID)
		return
	}
	w.drafts[conversationID] = text
}

// Draft returns the saved composer text for a conversation, or "".
func (w *Workspace) Draft(conversationID string) string {
	return w.drafts[conversationID]
}
