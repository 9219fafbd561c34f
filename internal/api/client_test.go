// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL).WithTokenSource(TokenSourceFunc(func() string { return "test-token" }))
}

func TestLogin_FormEncoded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hamza", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		json.NewEncoder(w).Encode(Token{AccessToken: "jwt", TokenType: "bearer"})
	})

	token, err := client.Login(context.Background(), "hamza", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token.AccessToken)
	assert.False(t, token.RequiresSecondFactor)
}

func TestLogin_SecondFactorRequired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Token{RequiresSecondFactor: true, UserID: 7})
	})

	token, err := client.Login(context.Background(), "hamza", "secret")
	require.NoError(t, err)
	assert.True(t, token.RequiresSecondFactor)
	assert.Empty(t, token.AccessToken)
}

func TestBearerHeaderAttached(t *testing.T) {
	var got string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Conversation{})
	})

	_, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", got)
}

func TestUnauthorizedFiresHook(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	hookFired := false
	client.OnUnauthorized(func() { hookFired = true })

	_, err := client.ListConversations(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, hookFired, "401 must trigger the implicit-logout hook")
}

func TestCredentialRejectionDoesNotFireHook(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Identifiants invalides"})
	})

	hookFired := false
	client.OnUnauthorized(func() { hookFired = true })

	_, err := client.Login(context.Background(), "hamza", "mauvais")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, hookFired, "a rejected password is not a session expiry")

	_, err = client.VerifyTwoFactor(context.Background(), "hamza", "000000")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, hookFired, "a rejected 2FA code is not a session expiry")
}

func TestServerErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "2FA requis"})
	})

	_, err := client.Me(context.Background())
	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusForbidden, srvErr.StatusCode)
	assert.Equal(t, "2FA requis", srvErr.Detail)
}

func TestTimeoutMapsToErrTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(Statistics{})
	})
	client.WithTimeout(50 * time.Millisecond)

	_, err := client.Statistics(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, IsCancelled(err), "timeout must not read as cancellation")
}

func TestCancellationIsDistinctFromFailure(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection
		// read; otherwise the client disconnect is never detected and
		// r.Context() never fires.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.SendMessage(ctx, "Qu'est-ce que CLIENT_QT ?", "c1", "")
	require.Error(t, err)
	assert.True(t, IsCancelled(err), "aborted send must surface as cancellation, got %v", err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestNetworkErrorMapsToErrNetwork(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url)
	_, err := client.ListConversations(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestSendMessagePayload(t *testing.T) {
	var got ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ChatResponse{
			ConversationID:   got.ConversationID,
			AssistantMessage: Message{Role: "assistant", Content: "CLIENT_QT est une table du catalogue."},
		})
	})

	resp, err := client.SendMessage(context.Background(), "Qu'est-ce que CLIENT_QT ?", "c1", "f42")
	require.NoError(t, err)
	assert.Equal(t, "Qu'est-ce que CLIENT_QT ?", got.Prompt)
	assert.Equal(t, "c1", got.ConversationID)
	assert.Equal(t, "f42", got.FileID)
	assert.Equal(t, "assistant", resp.AssistantMessage.Role)
}

func TestUploadFileMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/conversations/c1/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "data.xlsx", header.Filename)
		json.NewEncoder(w).Encode(FileUploadResponse{FileID: "f42", Filename: header.Filename, ConversationID: "c1"})
	})

	out, err := client.UploadFile(context.Background(), "c1", "data.xlsx", strings.NewReader("PK\x03\x04"))
	require.NoError(t, err)
	assert.Equal(t, "f42", out.FileID)
}

func TestSubmitFeedbackPath(t *testing.T) {
	var gotPath string
	var gotBody FeedbackData
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := client.SubmitFeedback(context.Background(), "c1", 3, "down", "Information incorrecte")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/chat/conversations/c1/messages/3/feedback", gotPath)
	assert.Equal(t, "down", gotBody.Rating)
	assert.Equal(t, "Information incorrecte", gotBody.Comment)
}
