// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation screen of the assistant TUI.
//
// The screen is a thin binding over the conversation workspace: keys and
// network results are translated into workspace transitions, and the view
// renders whatever the workspace holds. All conversation invariants live
// in internal/chat, not here.
package chat

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/HamzaEch1/pfa-assistant/internal/api"
	"github.com/HamzaEch1/pfa-assistant/internal/auth"
	"github.com/HamzaEch1/pfa-assistant/internal/chat"
	"github.com/HamzaEch1/pfa-assistant/internal/storage"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/components"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/styles"
)

// Focus identifies the pane receiving keyboard input.
type Focus int

// Panes, cycled with Tab.
const (
	FocusComposer Focus = iota
	FocusSidebar
	FocusMessages
)

// Overlay identifies the modal form covering the screen, if any.
type Overlay int

// Overlays.
const (
	OverlayNone Overlay = iota
	OverlayFeedback
	OverlayUpload
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the conversation screen.
type Model struct {
	theme *styles.Theme
	keys  KeyMap

	client  *api.Client
	session *auth.Store
	local   *storage.Store

	workspace *chat.Workspace

	// Widgets
	composer textarea.Model
	viewport viewport.Model
	spinner  components.Spinner
	toasts   *components.ToastManager
	markdown *components.MarkdownRenderer

	// Pane and cursor state
	focus      Focus
	overlay    Overlay
	listCursor int
	msgCursor  int

	// Feedback detail form
	feedbackIndex  int
	categoryCursor int
	comment        textinput.Model

	// Upload path prompt
	uploadPath textinput.Model

	width  int
	height int
	ready  bool
}

// New creates the conversation screen. local may be nil when draft
// persistence is disabled.
func New(theme *styles.Theme, client *api.Client, session *auth.Store, local *storage.Store) Model {
	composer := textarea.New()
	composer.Placeholder = "Posez votre question sur le catalogue de données..."
	composer.CharLimit = 4000
	composer.SetHeight(3)
	composer.ShowLineNumbers = false
	composer.Focus()

	comment := textinput.New()
	comment.Placeholder = "commentaire"
	comment.CharLimit = 500

	uploadPath := textinput.New()
	uploadPath.Placeholder = "/chemin/vers/fichier.xlsx"
	uploadPath.CharLimit = 512

	return Model{
		theme:      theme,
		keys:       DefaultKeyMap(),
		client:     client,
		session:    session,
		local:      local,
		workspace:  chat.NewWorkspace(),
		composer:   composer,
		viewport:   viewport.New(0, 0),
		spinner:    components.NewThinkingSpinner(),
		toasts:     components.NewToastManager(),
		markdown:   components.NewMarkdownRenderer(80),
		comment:    comment,
		uploadPath: uploadPath,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadConversationsCmd(), textarea.Blink)
}

// Workspace exposes the underlying state, used by the root model for the
// status line.
func (m *Model) Workspace() *chat.Workspace {
	return m.workspace
}

// =============================================================================
// API <-> WORKSPACE CONVERSION
// =============================================================================

func summaryFromAPI(conv api.Conversation) chat.Summary {
	s := chat.Summary{
		ID:             conv.ID,
		Title:          conv.Title,
		LastActivityAt: conv.Timestamp,
	}
	for _, f := range conv.Files {
		s.FileIDs = append(s.FileIDs, f.ID)
	}
	return s
}

func messagesFromAPI(msgs []api.Message) ([]chat.Message, map[int]chat.Submission) {
	out := make([]chat.Message, 0, len(msgs))
	ratings := make(map[int]chat.Submission)
	for i, msg := range msgs {
		out = append(out, chat.Message{
			Role:    chat.Role(msg.Role),
			Content: msg.Content,
			FileID:  msg.FileID,
		})
		if msg.Feedback != nil && msg.Feedback.Rating != "" {
			ratings[i] = chat.Submission{
				MessageIndex: i,
				Rating:       chat.Rating(msg.Feedback.Rating),
				Comment:      msg.Feedback.Comment,
			}
		}
	}
	return out, ratings
}

func attachmentsFromAPI(files []api.FileMetadata) []chat.Attachment {
	out := make([]chat.Attachment, 0, len(files))
	for _, f := range files {
		out = append(out, chat.Attachment{
			ID:         f.ID,
			Filename:   f.Filename,
			UploadedAt: f.UploadDate,
		})
	}
	return out
}
