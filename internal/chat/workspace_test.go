// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"
	"time"
)

func newLoadedWorkspace(t *testing.T) *Workspace {
	t.Helper()
	now := time.Now()
	w := NewWorkspace()
	w.Registry.ReplaceAll([]Summary{
		{ID: "c1", Title: "Catalogue clients", LastActivityAt: now.Add(-time.Hour)},
		{ID: "c2", Title: "Référentiel risques", LastActivityAt: now},
	})
	w.Registry.Select("c1")
	w.ApplyLoad("c1", []Message{
		{Role: RoleUser, Content: "bonjour"},
		{Role: RoleAssistant, Content: "Bonjour !"},
	}, nil, nil)
	return w
}

// =============================================================================
// SEND PIPELINE
// =============================================================================

func TestWorkspace_SendValidation(t *testing.T) {
	w := NewWorkspace()

	if _, _, err := w.BeginSend("   ", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty content: err = %v", err)
	}
	if _, _, err := w.BeginSend("bonjour", ""); !errors.Is(err, ErrNoConversation) {
		t.Errorf("no selection: err = %v", err)
	}
}

func TestWorkspace_SendSuccessScenario(t *testing.T) {
	w := newLoadedWorkspace(t)
	n := w.Log.Len()

	tok, _, err := w.BeginSend("Qu'est-ce que CLIENT_QT ?", "")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	if w.Log.Len() != n+1 || !w.Log.HasPending() {
		t.Fatal("optimistic user message should be appended at the tail")
	}
	if !w.Sending() {
		t.Error("the active conversation should be in the sending state")
	}

	at := time.Now().Add(time.Second)
	if !w.FinishSendSuccess(tok, Message{Role: RoleAssistant, Content: "CLIENT_QT est une table du catalogue."}, at) {
		t.Fatal("FinishSendSuccess should apply")
	}

	if w.Log.Len() != n+2 {
		t.Errorf("Len = %d, want %d (confirmed pair)", w.Log.Len(), n+2)
	}
	if w.Log.HasPending() {
		t.Error("no optimistic entry may survive a settled send")
	}
	if w.Registry.Items()[0].ID != "c1" {
		t.Error("the conversation should move to the head of the list")
	}
	if w.Sending() {
		t.Error("the send slot should be free again")
	}
}

func TestWorkspace_SendFailureRollsBack(t *testing.T) {
	w := newLoadedWorkspace(t)
	n := w.Log.Len()

	tok, _, err := w.BeginSend("question perdue", "")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}

	restored, ok := w.FinishSendFailure(tok)
	if !ok {
		t.Fatal("FinishSendFailure should apply")
	}
	if restored != "question perdue" {
		t.Errorf("restored input = %q", restored)
	}
	if w.Log.Len() != n || w.Log.HasPending() {
		t.Error("failure must remove the optimistic entry")
	}
}

func TestWorkspace_CancelRollsBackImmediately(t *testing.T) {
	w := newLoadedWorkspace(t)
	n := w.Log.Len()

	tok, _, _ := w.BeginSend("annulé", "")

	restored, ok := w.CancelSend()
	if !ok {
		t.Fatal("CancelSend should find the in-flight send")
	}
	if restored != "annulé" {
		t.Errorf("restored input = %q", restored)
	}
	if w.Log.Len() != n || w.Log.HasPending() {
		t.Error("cancel must roll the optimistic entry back")
	}

	// The transport eventually settles; its outcome must be discarded.
	if w.FinishSendSuccess(tok, Message{Role: RoleAssistant, Content: "tard"}, time.Now()) {
		t.Error("a cancelled send must not confirm")
	}
	if w.Log.Len() != n {
		t.Error("late completion must not mutate the log")
	}
}

func TestWorkspace_LastWriterWins(t *testing.T) {
	w := newLoadedWorkspace(t)
	n := w.Log.Len()

	first, _, _ := w.BeginSend("première question", "")
	second, restored, err := w.BeginSend("deuxième question", "")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	if restored != "première question" {
		t.Errorf("superseded input = %q, want the first composer text", restored)
	}
	// Exactly one optimistic entry at a time.
	if w.Log.Len() != n+1 {
		t.Fatalf("Len = %d, want %d", w.Log.Len(), n+1)
	}

	// The first response arrives late: discarded.
	if w.FinishSendSuccess(first, Message{Role: RoleAssistant, Content: "réponse 1"}, time.Now()) {
		t.Error("the superseded send must not confirm")
	}
	// Only the second reaches confirmed.
	if !w.FinishSendSuccess(second, Message{Role: RoleAssistant, Content: "réponse 2"}, time.Now()) {
		t.Fatal("the live send should confirm")
	}
	msgs := w.Log.Messages()
	if msgs[len(msgs)-1].Content != "réponse 2" || msgs[len(msgs)-2].Content != "deuxième question" {
		t.Error("log should hold exactly the winning pair")
	}
	if w.Log.HasPending() {
		t.Error("no optimistic entry may remain after settlement")
	}
}

// =============================================================================
// CONVERSATION ISOLATION
// =============================================================================

func TestWorkspace_SwitchDoesNotCancelButDetaches(t *testing.T) {
	w := newLoadedWorkspace(t)

	tok, _, _ := w.BeginSend("question sur c1", "")

	// Switch to c2 while c1 is in flight.
	w.Registry.Select("c2")
	w.ApplyLoad("c2", []Message{{Role: RoleUser, Content: "autre sujet"}}, nil, nil)

	if tok.Context().Err() != nil {
		t.Error("switching away must not cancel the in-flight request")
	}
	before := w.Log.Len()

	// c1 resolves: c2's displayed log must not change.
	if !w.FinishSendSuccess(tok, Message{Role: RoleAssistant, Content: "réponse c1"}, time.Now()) {
		t.Fatal("the detached send still settles against its own conversation")
	}
	if w.Log.Len() != before {
		t.Error("a completion for c1 must not mutate c2's log")
	}
	if w.Registry.Items()[0].ID != "c1" {
		t.Error("c1's recency should still be refreshed")
	}
}

func TestWorkspace_SwitchThenFailureDoesNotTouchNewLog(t *testing.T) {
	w := newLoadedWorkspace(t)
	tok, _, _ := w.BeginSend("question sur c1", "")

	w.Registry.Select("c2")
	w.ApplyLoad("c2", []Message{{Role: RoleUser, Content: "autre sujet"}}, nil, nil)
	before := w.Log.Len()

	restored, ok := w.FinishSendFailure(tok)
	if !ok {
		t.Fatal("the failure still settles the token")
	}
	if restored != "question sur c1" {
		t.Errorf("restored input = %q", restored)
	}
	if w.Log.Len() != before {
		t.Error("a failure for c1 must not mutate c2's log")
	}
}

func TestWorkspace_IndependentSendsAcrossConversations(t *testing.T) {
	w := newLoadedWorkspace(t)

	tokA, _, err := w.BeginSend("question A", "")
	if err != nil {
		t.Fatalf("BeginSend on c1: %v", err)
	}

	w.Registry.Select("c2")
	w.ApplyLoad("c2", nil, nil, nil)
	tokB, restored, err := w.BeginSend("question B", "")
	if err != nil {
		t.Fatalf("BeginSend on c2: %v", err)
	}
	if restored != "" {
		t.Error("a send on c2 must not supersede the one on c1")
	}
	if tokA.Context().Err() != nil {
		t.Error("per-conversation scope: A's token stays live")
	}

	if !w.FinishSendSuccess(tokB, Message{Role: RoleAssistant, Content: "B"}, time.Now()) {
		t.Error("B should confirm")
	}
	if !w.FinishSendSuccess(tokA, Message{Role: RoleAssistant, Content: "A"}, time.Now()) {
		t.Error("A should confirm")
	}
}

func TestWorkspace_ReloadDuringSendSkipsStalePair(t *testing.T) {
	w := newLoadedWorkspace(t)
	tok, _, err := w.BeginSend("question en vol", "")
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}

	// Switch away and back while the send is in flight. The reload brings
	// server truth that does not yet include the in-flight pair, and
	// replacing the log drops the optimistic entry.
	w.Registry.Select("c2")
	w.ApplyLoad("c2", []Message{{Role: RoleUser, Content: "autre sujet"}}, nil, nil)
	w.Registry.Select("c1")
	w.ApplyLoad("c1", []Message{
		{Role: RoleUser, Content: "bonjour"},
		{Role: RoleAssistant, Content: "Bonjour !"},
	}, nil, nil)
	n := w.Log.Len()

	if !w.FinishSendSuccess(tok, Message{Role: RoleAssistant, Content: "réponse"}, time.Now()) {
		t.Fatal("the live send still settles")
	}
	// The reply must not land without its user message; the pair waits for
	// the next load.
	if w.Log.Len() != n {
		t.Fatalf("Len = %d, want %d: assistant reply landed without its user message", w.Log.Len(), n)
	}
	msgs := w.Log.Messages()
	if last := msgs[len(msgs)-1]; last.Role != RoleAssistant || last.Content != "Bonjour !" {
		t.Errorf("log tail = %+v, want the reloaded server truth untouched", last)
	}
	if w.Sending() {
		t.Error("the send slot should be free again")
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestWorkspace_CreateRefusedWhileSelectionEmpty(t *testing.T) {
	w := newLoadedWorkspace(t)

	if err := w.CanCreateConversation(); err != nil {
		t.Errorf("selection has messages, create should be allowed: %v", err)
	}

	w.ApplyCreated(Summary{ID: "c3", Title: "Nouvelle conversation", LastActivityAt: time.Now()})
	if err := w.CanCreateConversation(); !errors.Is(err, ErrConversationEmpty) {
		t.Errorf("empty selection must refuse creation, err = %v", err)
	}
}

func TestWorkspace_CreateRefusedWhileSelectionLoading(t *testing.T) {
	w := newLoadedWorkspace(t)

	// Selected but the load has not landed yet: emptiness is unknown.
	w.Registry.Select("c2")
	if err := w.CanCreateConversation(); !errors.Is(err, ErrConversationLoading) {
		t.Errorf("unloaded selection must refuse creation, err = %v", err)
	}

	w.ApplyLoad("c2", []Message{{Role: RoleUser, Content: "autre sujet"}}, nil, nil)
	if err := w.CanCreateConversation(); err != nil {
		t.Errorf("loaded non-empty selection should allow creation: %v", err)
	}
}

func TestWorkspace_ApplyCreatedSelectsAndResets(t *testing.T) {
	w := newLoadedWorkspace(t)
	w.Attachments.Add(Attachment{ID: "f1", Filename: "data.xlsx"})

	w.ApplyCreated(Summary{ID: "c3", LastActivityAt: time.Now()})
	if w.Registry.ActiveID() != "c3" {
		t.Errorf("ActiveID = %q, want c3", w.Registry.ActiveID())
	}
	if w.Log.Len() != 0 || w.Log.ConversationID() != "c3" {
		t.Error("the new conversation starts with an empty log")
	}
	if w.Attachments.ArmedID() != "" {
		t.Error("creating a conversation clears the armed attachment")
	}
}

func TestWorkspace_DeleteActiveSelectsNext(t *testing.T) {
	w := newLoadedWorkspace(t)

	next, wasActive := w.ApplyDeleted("c1")
	if !wasActive {
		t.Fatal("c1 was active")
	}
	if next != "c2" {
		t.Errorf("next = %q, want c2", next)
	}
	if w.Log.ConversationID() != "" || w.Log.Len() != 0 {
		t.Error("the old log must be cleared until the next load")
	}

	next, wasActive = w.ApplyDeleted("c2")
	if !wasActive || next != "" {
		t.Errorf("deleting the last conversation = (%q, %v)", next, wasActive)
	}
}

// =============================================================================
// ATTACHMENTS THROUGH THE WORKSPACE
// =============================================================================

func TestWorkspace_UploadThenSendKeepsArmedPointer(t *testing.T) {
	w := newLoadedWorkspace(t)

	w.ApplyUpload("c1", Attachment{ID: "f42", Filename: "data.xlsx", UploadedAt: time.Now()})
	if w.Attachments.ArmedID() != "f42" {
		t.Fatal("upload should auto-arm")
	}
	if s, _ := w.Registry.Get("c1"); len(s.FileIDs) != 1 || s.FileIDs[0] != "f42" {
		t.Error("the owning summary should list the new file id")
	}

	tok, _, err := w.BeginSend("analyse ce fichier", w.Attachments.ArmedID())
	if err != nil {
		t.Fatalf("BeginSend: %v", err)
	}
	if tok.FileID() != "f42" {
		t.Errorf("outgoing payload file id = %q, want f42", tok.FileID())
	}

	w.FinishSendSuccess(tok, Message{Role: RoleAssistant, Content: "voici l'analyse"}, time.Now())
	// Sending does not auto-clear the armed pointer.
	if w.Attachments.ArmedID() != "f42" {
		t.Error("armed pointer should survive the send until disarm or switch")
	}

	w.ApplyLoad("c2", nil, nil, nil)
	if w.Attachments.ArmedID() != "" {
		t.Error("loading another conversation clears the armed pointer")
	}
}

// =============================================================================
// DRAFTS
// =============================================================================

func TestWorkspace_DraftsSurviveSwitches(t *testing.T) {
	w := newLoadedWorkspace(t)

	w.SaveDraft("c1", "brouillon en cours")
	if got := w.Draft("c1"); got != "brouillon en cours" {
		t.Errorf("Draft = %q", got)
	}

	w.SaveDraft("c1", "   ")
	if got := w.Draft("c1"); got != "" {
		t.Errorf("blank draft should clear, got %q", got)
	}
	if got := w.Draft("c9"); got != "" {
		t.Errorf("unknown conversation draft = %q", got)
	}
}
