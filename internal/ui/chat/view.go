// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HamzaEch1/pfa-assistant/internal/chat"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/components"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/styles"
	"github.com/HamzaEch1/pfa-assistant/internal/util"
)

// Layout constants, in terminal rows.
const (
	headerHeight    = 2
	composerHeight  = 5
	statusBarHeight = 2
)

// sidebarWidth returns the conversation list width for a terminal width.
func sidebarWidth(total int) int {
	w := total / 4
	if w < 22 {
		w = 22
	}
	if w > 36 {
		w = 36
	}
	if w > total-30 {
		// Narrow terminals give everything to the conversation itself.
		return 0
	}
	return w
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Chargement..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderComposer(),
		m.renderStatusBar(),
	)

	switch m.overlay {
	case OverlayFeedback:
		return m.placeOverlay(m.renderFeedbackForm())
	case OverlayUpload:
		return m.placeOverlay(m.renderUploadPrompt())
	}

	if m.toasts.HasToasts() {
		return main + "\n" + m.toasts.View(m.width)
	}
	return main
}

// updateViewport rebuilds the message pane content. Called after every
// workspace mutation that changes what is on screen.
func (m *Model) updateViewport() {
	messages := m.workspace.Log.Messages()
	if len(messages) == 0 {
		m.viewport.SetContent(m.theme.LoginHint.Render(
			"Aucun message. Posez votre première question ci-dessous."))
		return
	}

	var parts []string
	for i, msg := range messages {
		bubble := components.NewMessageBubble(msg, m.theme, m.markdown)
		bubble.Width = m.viewport.Width
		bubble.Feedback = m.workspace.Feedback.Phase(i)
		bubble.Selected = m.focus == FocusMessages && i == m.msgCursor
		parts = append(parts, bubble.View())
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
}

// =============================================================================
// PANES
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Assistant Catalogue de Données")

	subtitle := ""
	if active, ok := m.workspace.Registry.Active(); ok {
		subtitle = m.theme.HeaderSubtitle.Render(util.TruncateWidth(active.Title, m.width/2))
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(subtitle) - 4
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title+strings.Repeat(" ", gap)+subtitle) + "\n"
}

func (m Model) renderBody() string {
	sidebar := m.renderSidebar()
	messagesPane := m.viewport.View()
	if sidebar == "" {
		return messagesPane
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, messagesPane)
}

func (m Model) renderSidebar() string {
	width := sidebarWidth(m.width)
	if width == 0 {
		return ""
	}
	innerWidth := width - 4

	items := m.workspace.Registry.Items()
	activeID := m.workspace.Registry.ActiveID()

	var lines []string
	lines = append(lines, m.theme.ConversationMeta.Render("Conversations"))
	if len(items) == 0 {
		lines = append(lines, m.theme.ConversationMeta.Render("(aucune)"))
	}
	for i, s := range items {
		title := s.Title
		if title == "" {
			title = "Sans titre"
		}
		label := util.PadRight(title, innerWidth)

		style := m.theme.ConversationItem
		switch {
		case m.focus == FocusSidebar && i == m.listCursor:
			style = m.theme.ConversationItemSelected
		case s.ID == activeID:
			style = m.theme.ConversationItem.Bold(true)
		}
		lines = append(lines, style.Render(label))

		if len(s.FileIDs) > 0 {
			lines = append(lines, m.theme.ConversationMeta.Render(
				"  "+styles.StatusIndicators.Attached+" "+plural(len(s.FileIDs), "fichier")))
		}
	}

	return m.theme.ConversationList.
		Width(width).
		Height(m.viewport.Height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderComposer() string {
	var status string
	switch {
	case m.workspace.Sending():
		status = m.spinner.View()
	default:
		if armed, ok := m.workspace.Attachments.Armed(); ok {
			status = m.theme.AttachmentArmed.Render(
				styles.StatusIndicators.Attached + " " + armed.Filename + " sera joint au prochain message")
		}
	}

	body := m.composer.View()
	if status != "" {
		body = status + "\n" + body
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(body)
}

func (m Model) renderStatusBar() string {
	shortcuts := []struct{ key, desc string }{
		{"Tab", "panneau"},
		{"Entrée", "envoyer"},
		{"C-n", "nouvelle"},
		{"C-o", "joindre"},
		{"u/d", "avis"},
		{"C-l", "déconnexion"},
	}

	var parts []string
	for _, s := range shortcuts {
		parts = append(parts, m.theme.ShortcutKey.Render(s.key)+" "+m.theme.ShortcutDesc.Render(s.desc))
	}
	left := strings.Join(parts, "  ")

	right := ""
	if identity := m.session.Identity(); identity != nil {
		name := identity.DisplayName
		if name == "" {
			name = identity.Username
		}
		right = m.theme.ShortcutDesc.Render(name)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderFeedbackForm() string {
	var lines []string
	lines = append(lines, m.theme.HeaderTitle.Render("Pourquoi cette réponse n'est-elle pas utile ?"))
	lines = append(lines, "")

	for i, category := range chat.FeedbackCategories {
		marker := "  "
		style := m.theme.FeedbackNeutral
		if i == m.categoryCursor {
			marker = "> "
			style = m.theme.ShortcutKey
		}
		lines = append(lines, style.Render(marker+category))
	}

	lines = append(lines, "")
	lines = append(lines, m.theme.LoginLabel.Render("Commentaire (obligatoire pour Autre)"))
	lines = append(lines, m.comment.View())
	lines = append(lines, "")
	lines = append(lines, m.theme.LoginHint.Render("Entrée pour envoyer · Échap pour annuler"))

	return m.theme.FeedbackForm.Render(strings.Join(lines, "\n"))
}

func (m Model) renderUploadPrompt() string {
	lines := []string{
		m.theme.HeaderTitle.Render("Joindre un fichier Excel"),
		"",
		m.theme.LoginLabel.Render("Chemin du fichier (.xlsx)"),
		m.uploadPath.View(),
		"",
		m.theme.LoginHint.Render("Entrée pour téléverser · Échap pour annuler"),
	}
	return m.theme.FeedbackForm.Render(strings.Join(lines, "\n"))
}

func (m Model) placeOverlay(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
