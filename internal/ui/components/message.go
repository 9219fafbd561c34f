// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/HamzaEch1/pfa-assistant/internal/chat"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one conversation message as a styled bubble.
type MessageBubble struct {
	Message  chat.Message
	Feedback chat.Phase
	Width    int
	Selected bool

	theme    *styles.Theme
	markdown *MarkdownRenderer
}

// NewMessageBubble creates a bubble for msg.
func NewMessageBubble(msg chat.Message, theme *styles.Theme, markdown *MarkdownRenderer) *MessageBubble {
	return &MessageBubble{
		Message:  msg,
		Feedback: chat.PhaseUnrated,
		Width:    80,
		theme:    theme,
		markdown: markdown,
	}
}

// View renders the message bubble.
func (b *MessageBubble) View() string {
	switch b.Message.Role {
	case chat.RoleUser:
		return b.renderUserBubble()
	case chat.RoleAssistant:
		return b.renderAssistantBubble()
	default:
		return b.Message.Content
	}
}

func (b *MessageBubble) renderUserBubble() string {
	content := b.Message.Content
	if content == "" {
		content = "..."
	}

	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	wrapped := wordWrap(content, maxContentWidth)
	contentWidth := minInt(maxLineWidth(wrapped)+4, b.Width-8)

	bubble := b.theme.UserBubble.Width(contentWidth).Render(wrapped)

	meta := "vous"
	if b.Message.FileID != "" {
		meta = styles.StatusIndicators.Attached + " " + meta
	}
	if b.Message.Pending() {
		meta += " · envoi en cours"
	}
	metaLine := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		MarginLeft(4).
		Render(meta)

	return metaLine + "\n" + bubble
}

func (b *MessageBubble) renderAssistantBubble() string {
	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}

	content := b.Message.Content
	if b.markdown != nil {
		b.markdown.SetWidth(maxContentWidth)
		content = b.markdown.Render(content)
	} else {
		content = wordWrap(content, maxContentWidth)
	}

	contentWidth := minInt(maxLineWidth(content)+4, b.Width-8)
	bubble := b.theme.AssistantBubble.Width(contentWidth).Render(content)

	metaLine := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		Render("assistant")

	return metaLine + "\n" + bubble + "\n" + b.renderFeedbackLine()
}

// renderFeedbackLine shows the rating state beneath an assistant answer.
func (b *MessageBubble) renderFeedbackLine() string {
	up := b.theme.FeedbackNeutral.Render(styles.StatusIndicators.Up)
	down := b.theme.FeedbackNeutral.Render(styles.StatusIndicators.Down)

	switch b.Feedback {
	case chat.PhaseUp:
		up = b.theme.FeedbackUp.Render(styles.StatusIndicators.Up)
	case chat.PhaseDown, chat.PhaseAwaitingDetail:
		down = b.theme.FeedbackDown.Render(styles.StatusIndicators.Down)
	}

	line := up + " " + down
	if b.Selected {
		hint := b.theme.FeedbackNeutral.Render("  (u: utile, d: pas utile)")
		line += hint
	}
	return line
}
