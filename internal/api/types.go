// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// =============================================================================
// AUTH TYPES
// =============================================================================

// Token is the response of the login and verify-2fa endpoints.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`

	// RequiresSecondFactor signals that the password was accepted but a
	// TOTP code must be verified before a usable token is issued.
	RequiresSecondFactor bool `json:"requires_second_factor"`
	UserID               int  `json:"user_id,omitempty"`
}

// User is the authenticated identity as returned by /auth/me.
type User struct {
	ID                  int    `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email,omitempty"`
	FullName            string `json:"full_name,omitempty"`
	IsAdmin             bool   `json:"is_admin"`
	IsActive            bool   `json:"is_active"`
	TwoFactorEnabled    bool   `json:"two_factor_enabled"`
	TwoFactorConfirmed  bool   `json:"two_factor_confirmed"`
}

// TwoFactorSetup is the response of /auth/setup-2fa.
type TwoFactorSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code"` // base64 PNG, unused by the terminal client
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// FeedbackData is the per-message rating attached by the backend.
type FeedbackData struct {
	Rating  string `json:"rating"` // "up" or "down"
	Comment string `json:"comment,omitempty"`
}

// Message is a single chat message as stored server-side.
type Message struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"` // "user" or "assistant"
	Content   string        `json:"content"`
	Timestamp *time.Time    `json:"timestamp,omitempty"`
	FileID    string        `json:"file_id,omitempty"`
	Feedback  *FeedbackData `json:"feedback_details,omitempty"`
}

// FileMetadata describes a spreadsheet uploaded to a conversation.
type FileMetadata struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	UploadDate     time.Time `json:"upload_date"`
	ConversationID string    `json:"conversation_id"`
}

// Conversation is a full conversation with its message log and files.
type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Timestamp time.Time      `json:"timestamp"`
	Messages  []Message      `json:"messages"`
	Files     []FileMetadata `json:"files"`
}

// ChatRequest is the body of POST /chat/message.
type ChatRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id,omitempty"`
	FileID         string `json:"file_id,omitempty"`
}

// ChatResponse is the body returned by POST /chat/message.
type ChatResponse struct {
	ConversationID   string  `json:"conversation_id"`
	AssistantMessage Message `json:"assistant_message"`
}

// FileUploadResponse is the body returned by the upload endpoint.
type FileUploadResponse struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	ConversationID string `json:"conversation_id"`
}

// Statistics is the aggregate usage report served to administrators.
type Statistics struct {
	TotalConversations int            `json:"total_conversations"`
	TotalMessages      int            `json:"total_messages"`
	FeedbackCounts     map[string]int `json:"feedback_counts,omitempty"`
}

// apiErrorResponse is the FastAPI-style error body {"detail": "..."}.
type apiErrorResponse struct {
	Detail string `json:"detail"`
}
