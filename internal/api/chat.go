// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// CreateConversation asks the backend for a fresh, empty conversation.
func (c *Client) CreateConversation(ctx context.Context) (*Conversation, error) {
	var conv Conversation
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/chat/conversations", nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations fetches the conversation summaries for the current user.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.getJSON(ctx, "/api/v1/chat/conversations?skip=0&limit=100", &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// GetConversation fetches one conversation including its full message log
// and attached files.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := c.getJSON(ctx, "/api/v1/chat/conversations/"+url.PathEscape(id), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes a conversation server-side.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/v1/chat/conversations/"+url.PathEscape(id), nil, nil)
}

// SendMessage posts a prompt to a conversation and waits for the assistant
// reply. This is the one send-class call: the caller passes the cancellation
// context held by its in-flight token, and aborting that context tears the
// transport request down immediately.
func (c *Client) SendMessage(ctx context.Context, prompt, conversationID, fileID string) (*ChatResponse, error) {
	in := ChatRequest{
		Prompt:         prompt,
		ConversationID: conversationID,
		FileID:         fileID,
	}
	var out ChatResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/v1/chat/message", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile uploads a spreadsheet to a conversation as multipart form data.
// File-type validation happens in internal/chat before any network call.
func (c *Client) UploadFile(ctx context.Context, conversationID, filename string, content io.Reader) (*FileUploadResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	path := "/api/v1/chat/conversations/" + url.PathEscape(conversationID) + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setHeaders(req)

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp, body)
	}

	var out FileUploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &out, nil
}

// SubmitFeedback records a rating for the message at the given index.
// Rating is "up" or "down"; an empty rating clears a previous one.
func (c *Client) SubmitFeedback(ctx context.Context, conversationID string, messageIndex int, rating, comment string) error {
	in := FeedbackData{Rating: rating, Comment: comment}
	path := fmt.Sprintf("/api/v1/chat/conversations/%s/messages/%d/feedback", url.PathEscape(conversationID), messageIndex)
	return c.sendJSON(ctx, http.MethodPost, path, in, nil)
}

// Statistics fetches the aggregate usage report. Admin only.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	if err := c.getJSON(ctx, "/api/v1/chat/statistics", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
