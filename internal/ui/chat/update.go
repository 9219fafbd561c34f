// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/HamzaEch1/pfa-assistant/internal/chat"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/components"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case components.ToastTickMsg:
		return m, m.toasts.Expire()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case conversationsLoadedMsg:
		return m.onConversationsLoaded(msg)

	case conversationLoadedMsg:
		return m.onConversationLoaded(msg)

	case conversationCreatedMsg:
		return m.onConversationCreated(msg)

	case conversationDeletedMsg:
		return m.onConversationDeleted(msg)

	case sendResultMsg:
		return m.onSendResult(msg)

	case uploadResultMsg:
		return m.onUploadResult(msg)

	case feedbackResultMsg:
		return m.onFeedbackResult(msg)

	case statisticsMsg:
		if msg.err != nil {
			return m, m.toasts.AddError(errorText(msg.err))
		}
		return m, m.toasts.AddStatus(fmt.Sprintf(
			"%d conversations, %d messages, %d avis positifs, %d avis négatifs",
			msg.stats.TotalConversations, msg.stats.TotalMessages,
			msg.stats.FeedbackCounts["up"], msg.stats.FeedbackCounts["down"]))
	}

	return m.updateWidgets(msg)
}

func (m Model) resize(width, height int) Model {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.ready = true

	sidebar := sidebarWidth(width)
	contentWidth := width - sidebar - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	m.viewport.Width = contentWidth
	m.viewport.Height = height - composerHeight - statusBarHeight - headerHeight
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.composer.SetWidth(contentWidth - 2)
	m.markdown.SetWidth(contentWidth - 12)
	m.updateViewport()
	return m
}

// =============================================================================
// NETWORK RESULTS
// =============================================================================

func (m Model) onConversationsLoaded(msg conversationsLoadedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.toasts.AddError(errorText(msg.err))
	}
	summaries := make([]chat.Summary, 0, len(msg.conversations))
	for _, conv := range msg.conversations {
		summaries = append(summaries, summaryFromAPI(conv))
	}
	m.workspace.Registry.ReplaceAll(summaries)
	m.clampListCursor()

	// First load: open the most recent conversation automatically.
	if m.workspace.Registry.ActiveID() == "" && m.workspace.Registry.Len() > 0 {
		id := m.workspace.Registry.Items()[0].ID
		m.workspace.Registry.Select(id)
		return m, m.loadConversationCmd(id)
	}
	m.updateViewport()
	return m, nil
}

func (m Model) onConversationLoaded(msg conversationLoadedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.toasts.AddError(errorText(msg.err))
	}
	conv := msg.conversation

	// Stale load for a conversation the user already switched away from.
	if conv.ID != m.workspace.Registry.ActiveID() {
		return m, nil
	}

	messages, ratings := messagesFromAPI(conv.Messages)
	m.workspace.ApplyLoad(conv.ID, messages, attachmentsFromAPI(conv.Files), ratings)
	m.workspace.Registry.Upsert(summaryFromAPI(*conv))
	m.clampListCursor()

	m.composer.SetValue(m.restoreDraft(conv.ID))
	m.msgCursor = lastAssistantIndex(m.workspace.Log.Messages())
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) onConversationCreated(msg conversationCreatedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.toasts.AddError(errorText(msg.err))
	}
	m.saveDraft()
	m.workspace.ApplyCreated(summaryFromAPI(*msg.conversation))
	m.listCursor = 0
	m.msgCursor = -1
	m.composer.Reset()
	m.updateViewport()
	return m, nil
}

func (m Model) onConversationDeleted(msg conversationDeletedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.toasts.AddError(errorText(msg.err))
	}
	if m.local != nil {
		// Orphaned drafts are useless once the conversation is gone.
		m.local.DeleteDraft(msg.id)
	}
	m.workspace.SaveDraft(msg.id, "")

	nextActive, wasActive := m.workspace.ApplyDeleted(msg.id)
	m.clampListCursor()
	if wasActive {
		m.composer.Reset()
		m.msgCursor = -1
		m.updateViewport()
		if nextActive != "" {
			return m, m.loadConversationCmd(nextActive)
		}
	}
	m.updateViewport()
	return m, nil
}

func (m Model) onSendResult(msg sendResultMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg.err != nil {
		restored, ok := m.workspace.FinishSendFailure(msg.tok)
		if !ok {
			// Cancelled or superseded; the rollback already happened and the
			// outcome is discarded silently.
			m.syncSpinner()
			return m, nil
		}
		if strings.TrimSpace(m.composer.Value()) == "" {
			m.composer.SetValue(restored)
		}
		cmd = m.toasts.AddError(errorText(msg.err))
	} else {
		at := time.Now()
		assistant := msg.response.AssistantMessage
		if assistant.Timestamp != nil {
			at = *assistant.Timestamp
		}
		m.workspace.FinishSendSuccess(msg.tok, chat.Message{
			Role:    chat.RoleAssistant,
			Content: assistant.Content,
		}, at)
		m.msgCursor = lastAssistantIndex(m.workspace.Log.Messages())
		m.clampListCursor()
	}

	m.syncSpinner()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, cmd
}

func (m Model) onUploadResult(msg uploadResultMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.toasts.AddError(errorText(msg.err))
	}
	m.workspace.ApplyUpload(msg.conversationID, chat.Attachment{
		ID:         msg.response.FileID,
		Filename:   msg.response.Filename,
		UploadedAt: time.Now(),
	})
	m.updateViewport()
	return m, m.toasts.AddSuccess("Fichier joint: " + msg.response.Filename)
}

func (m Model) onFeedbackResult(msg feedbackResultMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		// Revert only when the rated conversation is still the loaded one;
		// after a switch the board was rebuilt from server truth anyway.
		if msg.conversationID == m.workspace.Log.ConversationID() {
			m.workspace.Feedback.RevertSubmit(msg.submission)
			m.updateViewport()
		}
		return m, m.toasts.AddError(errorText(msg.err))
	}
	return m, nil
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Modal overlays capture everything.
	switch m.overlay {
	case OverlayFeedback:
		return m.handleFeedbackKey(msg)
	case OverlayUpload:
		return m.handleUploadKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveDraft()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Logout):
		m.saveDraft()
		return m, func() tea.Msg { return LogoutMsg{} }

	case key.Matches(msg, m.keys.NextPane):
		m.focus = (m.focus + 1) % 3
		if m.focus == FocusComposer {
			return m, m.composer.Focus()
		}
		m.composer.Blur()
		return m, nil

	case key.Matches(msg, m.keys.NewConversation):
		if err := m.workspace.CanCreateConversation(); err != nil {
			if errors.Is(err, chat.ErrConversationLoading) {
				return m, m.toasts.AddStatus("Chargement en cours, réessayez dans un instant.")
			}
			return m, m.toasts.AddStatus("La conversation actuelle est encore vide.")
		}
		return m, m.createConversationCmd()

	case key.Matches(msg, m.keys.Resend):
		return m.resendLast()

	case key.Matches(msg, m.keys.Upload):
		if m.workspace.Registry.ActiveID() == "" {
			return m, m.toasts.AddStatus("Sélectionnez d'abord une conversation.")
		}
		m.overlay = OverlayUpload
		m.uploadPath.Reset()
		m.composer.Blur()
		return m, m.uploadPath.Focus()

	case key.Matches(msg, m.keys.CycleAttachment):
		m.cycleArmedAttachment()
		return m, nil

	case key.Matches(msg, m.keys.Statistics):
		return m, m.statisticsCmd()
	}

	switch m.focus {
	case FocusComposer:
		return m.handleComposerKey(msg)
	case FocusSidebar:
		return m.handleSidebarKey(msg)
	case FocusMessages:
		return m.handleMessagesKey(msg)
	}
	return m, nil
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submitSend()

	case key.Matches(msg, m.keys.Cancel):
		if restored, ok := m.workspace.CancelSend(); ok {
			if strings.TrimSpace(m.composer.Value()) == "" {
				m.composer.SetValue(restored)
			}
			m.syncSpinner()
			m.updateViewport()
			return m, m.toasts.AddStatus("Envoi annulé.")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	items := m.workspace.Registry.Items()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.listCursor > 0 {
			m.listCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.listCursor < len(items)-1 {
			m.listCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.listCursor < 0 || m.listCursor >= len(items) {
			return m, nil
		}
		id := items[m.listCursor].ID
		prev := m.workspace.Registry.ActiveID()
		if !m.workspace.Registry.Select(id) {
			return m, nil
		}
		m.saveDraftFor(prev)
		m.composer.Reset()
		return m, m.loadConversationCmd(id)

	case key.Matches(msg, m.keys.DeleteConversation):
		if m.listCursor < 0 || m.listCursor >= len(items) {
			return m, nil
		}
		return m, m.deleteConversationCmd(items[m.listCursor].ID)
	}
	return m, nil
}

func (m Model) handleMessagesKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	messages := m.workspace.Log.Messages()

	switch {
	case key.Matches(msg, m.keys.Up):
		if idx := previousAssistantIndex(messages, m.msgCursor); idx >= 0 {
			m.msgCursor = idx
			m.updateViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if idx := nextAssistantIndex(messages, m.msgCursor); idx >= 0 {
			m.msgCursor = idx
			m.updateViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.RateUp):
		return m.rateUp()

	case key.Matches(msg, m.keys.RateDown):
		return m.openFeedbackForm()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// SEND
// =============================================================================

func (m Model) submitSend() (Model, tea.Cmd) {
	tok, restored, err := m.workspace.BeginSend(m.composer.Value(), m.workspace.Attachments.ArmedID())
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			return m, nil
		case errors.Is(err, chat.ErrNoConversation):
			return m, m.toasts.AddStatus("Créez d'abord une conversation (Ctrl+N).")
		}
		return m, m.toasts.AddError(err.Error())
	}

	m.composer.Reset()
	if restored != "" {
		// The superseded send's text comes back so nothing typed is lost.
		m.composer.SetValue(restored)
	}
	m.workspace.SaveDraft(tok.ConversationID(), "")

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Start(), m.sendMessageCmd(tok))
}

// resendLast re-issues the most recent confirmed user message with its
// original attachment. Same state machine as a fresh send; an in-flight
// send is superseded, not queued behind.
func (m Model) resendLast() (Model, tea.Cmd) {
	messages := m.workspace.Log.Messages()
	idx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser && !messages[i].Pending() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return m, m.toasts.AddStatus("Aucun message à renvoyer.")
	}

	tok, restored, err := m.workspace.BeginResend(messages[idx].Content, messages[idx].FileID)
	if err != nil {
		return m, nil
	}
	if restored != "" && strings.TrimSpace(m.composer.Value()) == "" {
		m.composer.SetValue(restored)
	}
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.spinner.Start(), m.sendMessageCmd(tok))
}

// =============================================================================
// FEEDBACK
// =============================================================================

func (m Model) rateUp() (Model, tea.Cmd) {
	if !isAssistantIndex(m.workspace.Log.Messages(), m.msgCursor) {
		return m, nil
	}
	sub, stage := m.workspace.Feedback.ToggleUp(m.msgCursor)
	m.updateViewport()
	if !stage {
		return m, nil
	}
	return m, m.submitFeedbackCmd(m.workspace.Log.ConversationID(), sub)
}

func (m Model) openFeedbackForm() (Model, tea.Cmd) {
	if !isAssistantIndex(m.workspace.Log.Messages(), m.msgCursor) {
		return m, nil
	}
	m.workspace.Feedback.OpenDetail(m.msgCursor)
	m.overlay = OverlayFeedback
	m.feedbackIndex = m.msgCursor
	m.categoryCursor = 0
	m.comment.Reset()
	m.composer.Blur()
	m.updateViewport()
	return m, m.comment.Focus()
}

func (m Model) handleFeedbackKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.workspace.Feedback.CancelDetail(m.feedbackIndex)
		m.overlay = OverlayNone
		m.updateViewport()
		return m, m.refocusPane()

	case "up", "shift+tab":
		m.categoryCursor--
		if m.categoryCursor < 0 {
			m.categoryCursor = len(chat.FeedbackCategories) - 1
		}
		return m, nil

	case "down", "tab":
		m.categoryCursor = (m.categoryCursor + 1) % len(chat.FeedbackCategories)
		return m, nil

	case "enter":
		category := chat.FeedbackCategories[m.categoryCursor]
		sub, err := m.workspace.Feedback.ConfirmDown(m.feedbackIndex, category, m.comment.Value())
		if err != nil {
			if errors.Is(err, chat.ErrCommentRequired) {
				return m, m.toasts.AddStatus("Un commentaire est requis pour la catégorie Autre.")
			}
			return m, m.toasts.AddStatus("Choisissez une catégorie.")
		}
		m.overlay = OverlayNone
		m.updateViewport()
		return m, tea.Batch(m.refocusPane(), m.submitFeedbackCmd(m.workspace.Log.ConversationID(), sub))
	}

	var cmd tea.Cmd
	m.comment, cmd = m.comment.Update(msg)
	return m, cmd
}

// =============================================================================
// UPLOAD
// =============================================================================

func (m Model) handleUploadKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = OverlayNone
		return m, m.refocusPane()

	case "enter":
		path := strings.TrimSpace(m.uploadPath.Value())
		if path == "" {
			return m, nil
		}
		if err := chat.ValidateSpreadsheetName(path); err != nil {
			return m, m.toasts.AddStatus("Seuls les fichiers .xlsx sont acceptés.")
		}
		m.overlay = OverlayNone
		return m, tea.Batch(m.refocusPane(), m.uploadFileCmd(m.workspace.Registry.ActiveID(), path))
	}

	var cmd tea.Cmd
	m.uploadPath, cmd = m.uploadPath.Update(msg)
	return m, cmd
}

func (m *Model) cycleArmedAttachment() {
	files := m.workspace.Attachments.Files()
	if len(files) == 0 {
		return
	}
	armed := m.workspace.Attachments.ArmedID()
	if armed == "" {
		m.workspace.Attachments.Arm(files[0].ID)
		return
	}
	for i, f := range files {
		if f.ID == armed {
			if i+1 < len(files) {
				m.workspace.Attachments.Arm(files[i+1].ID)
			} else {
				// Past the last file the cycle returns to "nothing armed".
				m.workspace.Attachments.Disarm()
			}
			return
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) refocusPane() tea.Cmd {
	if m.focus == FocusComposer {
		return m.composer.Focus()
	}
	return nil
}

func (m *Model) syncSpinner() {
	if !m.workspace.Sending() {
		m.spinner.Stop()
	}
}

// saveDraft persists the composer text for the active conversation, both in
// the workspace and on disk.
func (m *Model) saveDraft() {
	m.saveDraftFor(m.workspace.Registry.ActiveID())
}

func (m *Model) saveDraftFor(conversationID string) {
	if conversationID == "" {
		return
	}
	text := m.composer.Value()
	m.workspace.SaveDraft(conversationID, text)
	if m.local != nil {
		m.local.SaveDraft(conversationID, text)
	}
}

// restoreDraft prefers the in-memory draft and falls back to the persisted
// one, so drafts survive both conversation switches and restarts.
func (m *Model) restoreDraft(conversationID string) string {
	if draft := m.workspace.Draft(conversationID); draft != "" {
		return draft
	}
	if m.local == nil {
		return ""
	}
	draft, err := m.local.Draft(conversationID)
	if err != nil {
		return ""
	}
	return draft
}

func (m *Model) clampListCursor() {
	n := m.workspace.Registry.Len()
	if m.listCursor >= n {
		m.listCursor = n - 1
	}
	if m.listCursor < 0 {
		m.listCursor = 0
	}
}

func (m Model) updateWidgets(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	if m.overlay == OverlayNone && m.focus == FocusComposer {
		m.composer, cmd = m.composer.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// MESSAGE CURSOR
// =============================================================================

func isAssistantIndex(messages []chat.Message, idx int) bool {
	return idx >= 0 && idx < len(messages) && messages[idx].Role == chat.RoleAssistant
}

func lastAssistantIndex(messages []chat.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant {
			return i
		}
	}
	return -1
}

func previousAssistantIndex(messages []chat.Message, from int) int {
	if from < 0 {
		from = len(messages)
	}
	for i := from - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant {
			return i
		}
	}
	return -1
}

func nextAssistantIndex(messages []chat.Message, from int) int {
	for i := from + 1; i < len(messages); i++ {
		if messages[i].Role == chat.RoleAssistant {
			return i
		}
	}
	return -1
}
