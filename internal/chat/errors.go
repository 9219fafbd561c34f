// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// ValidationError is a local, pre-network rejection of a user action.
// It is handled at the originating component and never surfaces as a
// generic failure.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return e.Reason }

// Validation sentinels. Compared by identity with errors.Is.
var (
	// ErrEmptyMessage rejects a send with no content.
	ErrEmptyMessage = &ValidationError{Reason: "message is empty"}

	// ErrNoConversation rejects an operation that needs a selected
	// conversation.
	ErrNoConversation = &ValidationError{Reason: "no conversation selected"}

	// ErrConversationEmpty refuses to create a new conversation while the
	// selected one has no messages yet. Product rule: prevents
	// empty-conversation accumulation.
	ErrConversationEmpty = &ValidationError{Reason: "current conversation is still empty"}

	// ErrConversationLoading refuses to create a new conversation while
	// the selected one has not finished loading; its emptiness is unknown
	// until server truth lands.
	ErrConversationLoading = &ValidationError{Reason: "current conversation is still loading"}

	// ErrInvalidFileType rejects any attachment that is not an .xlsx
	// spreadsheet, before any network call is made.
	ErrInvalidFileType = &ValidationError{Reason: "only .xlsx spreadsheets are accepted"}

	// ErrCommentRequired rejects a detailed feedback submission in the
	// free-form category with an empty comment.
	ErrCommentRequired = &ValidationError{Reason: "a comment is required for this category"}

	// ErrCategoryRequired rejects a detailed feedback submission without a
	// selected category.
	ErrCategoryRequired = &ValidationError{Reason: "a category is required"}
)
