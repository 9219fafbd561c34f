// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Commands wrapping backend calls. Every command captures what it needs by
// value and reports back through a typed message; none of them read or
// write the model.
package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/HamzaEch1/pfa-assistant/internal/api"
	"github.com/HamzaEch1/pfa-assistant/internal/chat"
)

func (m Model) loadConversationsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		convs, err := client.ListConversations(context.Background())
		return conversationsLoadedMsg{conversations: convs, err: err}
	}
}

func (m Model) loadConversationCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		conv, err := client.GetConversation(context.Background(), id)
		return conversationLoadedMsg{conversation: conv, err: err}
	}
}

func (m Model) createConversationCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		conv, err := client.CreateConversation(context.Background())
		return conversationCreatedMsg{conversation: conv, err: err}
	}
}

func (m Model) deleteConversationCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := client.DeleteConversation(context.Background(), id)
		return conversationDeletedMsg{id: id, err: err}
	}
}

// sendMessageCmd runs the send under the token's context so a cancel or a
// superseding send aborts the transport request.
func (m Model) sendMessageCmd(tok *chat.Token) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		resp, err := client.SendMessage(tok.Context(), tok.Input(), tok.ConversationID(), tok.FileID())
		return sendResultMsg{tok: tok, response: resp, err: err}
	}
}

func (m Model) uploadFileCmd(conversationID, path string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return uploadResultMsg{conversationID: conversationID, err: err}
		}
		defer f.Close()
		resp, err := client.UploadFile(context.Background(), conversationID, filepath.Base(path), f)
		return uploadResultMsg{conversationID: conversationID, response: resp, err: err}
	}
}

func (m Model) submitFeedbackCmd(conversationID string, sub chat.Submission) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := client.SubmitFeedback(context.Background(), conversationID, sub.MessageIndex, string(sub.Rating), sub.Comment)
		return feedbackResultMsg{conversationID: conversationID, submission: sub, err: err}
	}
}

func (m Model) statisticsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		stats, err := client.Statistics(context.Background())
		return statisticsMsg{stats: stats, err: err}
	}
}

// errorText maps transport errors to user-facing French messages.
func errorText(err error) string {
	var serverErr *api.ServerError
	switch {
	case err == nil:
		return ""
	case api.IsCancelled(err):
		return "Requête annulée."
	case errors.Is(err, api.ErrUnauthorized):
		return "Session expirée. Reconnectez-vous."
	case errors.Is(err, api.ErrTimeout):
		return "Le serveur ne répond pas. Réessayez."
	case errors.Is(err, api.ErrNetwork):
		return "Connexion au serveur impossible."
	case errors.As(err, &serverErr):
		return serverErr.Detail
	default:
		return "Erreur: " + err.Error()
	}
}
