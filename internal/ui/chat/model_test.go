// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	"github.com/HamzaEch1/pfa-assistant/internal/api"
	"github.com/HamzaEch1/pfa-assistant/internal/chat"
)

func TestSummaryFromAPI(t *testing.T) {
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	conv := api.Conversation{
		ID:        "c1",
		Title:     "Référentiel clients",
		Timestamp: ts,
		Files: []api.FileMetadata{
			{ID: "f1", Filename: "a.xlsx"},
			{ID: "f2", Filename: "b.xlsx"},
		},
	}

	s := summaryFromAPI(conv)
	if s.ID != "c1" || s.Title != "Référentiel clients" {
		t.Errorf("summary = %+v", s)
	}
	if !s.LastActivityAt.Equal(ts) {
		t.Errorf("LastActivityAt = %v, want %v", s.LastActivityAt, ts)
	}
	if len(s.FileIDs) != 2 || s.FileIDs[0] != "f1" || s.FileIDs[1] != "f2" {
		t.Errorf("FileIDs = %v", s.FileIDs)
	}
}

func TestMessagesFromAPI(t *testing.T) {
	msgs := []api.Message{
		{Role: "user", Content: "question", FileID: "f1"},
		{Role: "assistant", Content: "réponse", Feedback: &api.FeedbackData{Rating: "up"}},
		{Role: "user", Content: "suite"},
		{Role: "assistant", Content: "détail", Feedback: &api.FeedbackData{Rating: "down", Comment: "Autre: flou"}},
		{Role: "assistant", Content: "sans avis", Feedback: &api.FeedbackData{}},
	}

	out, ratings := messagesFromAPI(msgs)
	if len(out) != 5 {
		t.Fatalf("len(out) = %d, want 5", len(out))
	}
	if out[0].Role != chat.RoleUser || out[0].FileID != "f1" {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].Role != chat.RoleAssistant || out[1].Content != "réponse" {
		t.Errorf("out[1] = %+v", out[1])
	}

	if len(ratings) != 2 {
		t.Fatalf("len(ratings) = %d, want 2", len(ratings))
	}
	if ratings[1].Rating != chat.RatingUp {
		t.Errorf("ratings[1] = %+v", ratings[1])
	}
	if ratings[3].Rating != chat.RatingDown || ratings[3].Comment != "Autre: flou" {
		t.Errorf("ratings[3] = %+v", ratings[3])
	}
	if _, ok := ratings[4]; ok {
		t.Error("empty rating must not be seeded")
	}
}

func TestAssistantCursorHelpers(t *testing.T) {
	messages := []chat.Message{
		{Role: chat.RoleUser},
		{Role: chat.RoleAssistant},
		{Role: chat.RoleUser},
		{Role: chat.RoleAssistant},
	}

	if got := lastAssistantIndex(messages); got != 3 {
		t.Errorf("lastAssistantIndex = %d, want 3", got)
	}
	if got := previousAssistantIndex(messages, 3); got != 1 {
		t.Errorf("previousAssistantIndex(3) = %d, want 1", got)
	}
	if got := previousAssistantIndex(messages, 1); got != -1 {
		t.Errorf("previousAssistantIndex(1) = %d, want -1", got)
	}
	if got := previousAssistantIndex(messages, -1); got != 3 {
		t.Errorf("previousAssistantIndex(-1) = %d, want 3", got)
	}
	if got := nextAssistantIndex(messages, 1); got != 3 {
		t.Errorf("nextAssistantIndex(1) = %d, want 3", got)
	}
	if got := nextAssistantIndex(messages, 3); got != -1 {
		t.Errorf("nextAssistantIndex(3) = %d, want -1", got)
	}

	if isAssistantIndex(messages, 0) {
		t.Error("index 0 is a user message")
	}
	if !isAssistantIndex(messages, 1) {
		t.Error("index 1 is an assistant message")
	}
	if isAssistantIndex(messages, 7) {
		t.Error("out-of-range index must not be an assistant message")
	}
	if got := lastAssistantIndex(nil); got != -1 {
		t.Errorf("lastAssistantIndex(nil) = %d, want -1", got)
	}
}

func TestSidebarWidth(t *testing.T) {
	tests := []struct {
		name  string
		total int
		want  int
	}{
		{"very narrow terminal hides the sidebar", 40, 0},
		{"standard terminal", 100, 25},
		{"wide terminal caps the sidebar", 200, 36},
		{"minimum floor", 90, 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sidebarWidth(tt.total); got != tt.want {
				t.Errorf("sidebarWidth(%d) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestCycleArmedAttachment(t *testing.T) {
	m := Model{workspace: chat.NewWorkspace()}
	m.workspace.Attachments.Reset("c1", []chat.Attachment{
		{ID: "f1", Filename: "a.xlsx"},
		{ID: "f2", Filename: "b.xlsx"},
	})

	// Nothing armed: first press arms the first file.
	m.cycleArmedAttachment()
	if got := m.workspace.Attachments.ArmedID(); got != "f1" {
		t.Fatalf("armed = %q, want f1", got)
	}
	m.cycleArmedAttachment()
	if got := m.workspace.Attachments.ArmedID(); got != "f2" {
		t.Fatalf("armed = %q, want f2", got)
	}
	// Past the last file the cycle disarms.
	m.cycleArmedAttachment()
	if got := m.workspace.Attachments.ArmedID(); got != "" {
		t.Fatalf("armed = %q, want empty", got)
	}
	m.cycleArmedAttachment()
	if got := m.workspace.Attachments.ArmedID(); got != "f1" {
		t.Fatalf("armed = %q, want f1 again", got)
	}
}

func TestCycleArmedAttachmentNoFiles(t *testing.T) {
	m := Model{workspace: chat.NewWorkspace()}
	m.cycleArmedAttachment()
	if got := m.workspace.Attachments.ArmedID(); got != "" {
		t.Fatalf("armed = %q, want empty", got)
	}
}
