// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Bubble Tea message types for the conversation screen. All network
// results are delivered as typed messages into the event loop; command
// goroutines never mutate the workspace directly.
package chat

import (
	"github.com/HamzaEch1/pfa-assistant/internal/api"
	"github.com/HamzaEch1/pfa-assistant/internal/chat"
)

// SessionExpiredMsg signals that the backend rejected the credential.
// The root model drops back to the login screen.
type SessionExpiredMsg struct{}

// LogoutMsg signals a user-initiated logout. The root model clears the
// persisted credential and drops back to the login screen.
type LogoutMsg struct{}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// conversationsLoadedMsg delivers the sidebar list.
type conversationsLoadedMsg struct {
	conversations []api.Conversation
	err           error
}

// conversationLoadedMsg delivers one full conversation log.
type conversationLoadedMsg struct {
	conversation *api.Conversation
	err          error
}

// conversationCreatedMsg confirms a create call.
type conversationCreatedMsg struct {
	conversation *api.Conversation
	err          error
}

// conversationDeletedMsg confirms a delete call.
type conversationDeletedMsg struct {
	id  string
	err error
}

// =============================================================================
// SEND MESSAGES
// =============================================================================

// sendResultMsg settles a send-class operation. The token identifies the
// operation; the active selection is never consulted.
type sendResultMsg struct {
	tok      *chat.Token
	response *api.ChatResponse
	err      error
}

// =============================================================================
// UPLOAD MESSAGES
// =============================================================================

// uploadResultMsg confirms a spreadsheet upload.
type uploadResultMsg struct {
	conversationID string
	response       *api.FileUploadResponse
	err            error
}

// =============================================================================
// FEEDBACK MESSAGES
// =============================================================================

// feedbackResultMsg settles a feedback submission. On error the staged
// submission is reverted, but only if the same conversation is still
// loaded.
type feedbackResultMsg struct {
	conversationID string
	submission     chat.Submission
	err            error
}

// =============================================================================
// STATISTICS MESSAGES
// =============================================================================

// statisticsMsg delivers the admin usage report.
type statisticsMsg struct {
	stats *api.Statistics
	err   error
}
