// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Token is the cancellation handle for one in-flight send-class operation.
// It carries everything needed to settle the operation later without
// consulting the "current" selection: the owning conversation id, the
// optimistic log entry, and the original composer input for restoration.
type Token struct {
	id             string
	conversationID string
	input          string
	fileID         string
	ref            OptimisticRef

	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the context to pass into the network call. Cancelling
// the token aborts the transport request through this context.
func (t *Token) Context() context.Context { return t.ctx }

// ConversationID returns the conversation the operation was issued
// against. Completion handling is keyed by this, never by the active
// selection.
func (t *Token) ConversationID() string { return t.conversationID }

// Input returns the original composer text, restored on rollback.
func (t *Token) Input() string { return t.input }

// FileID returns the armed file id sent with the message, or "".
func (t *Token) FileID() string { return t.fileID }

// Ref returns the optimistic log entry staged for this operation.
func (t *Token) Ref() OptimisticRef { return t.ref }

// =============================================================================
// REQUEST COORDINATOR
// =============================================================================

// Coordinator arbitrates send-class operations. It guarantees at most one
// live token per conversation: starting a new send cancels the previous
// one (last-writer-wins, not queueing), and cancellation takes local
// effect immediately rather than waiting for the transport round-trip.
//
// Cancellation scope is per conversation, so a pending send on one
// conversation never blocks sending on another.
//
// IMPORTANT: Use as a pointer. The mutex guards the table because
// completions arrive from command goroutines while the event loop begins
// and cancels operations.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]*Token
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{inflight: make(map[string]*Token)}
}

// Begin registers a new send-class operation for the conversation and
// returns its token. Any previous live token for the same conversation is
// cancelled and returned as superseded so the caller can roll back its
// optimistic entry and restore its input.
func (c *Coordinator) Begin(conversationID, input, fileID string) (tok, superseded *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.inflight[conversationID]; ok {
		prev.cancel()
		superseded = prev
	}

	ctx, cancel := context.WithCancel(context.Background())
	tok = &Token{
		id:             uuid.NewString(),
		conversationID: conversationID,
		input:          input,
		fileID:         fileID,
		ctx:            ctx,
		cancel:         cancel,
	}
	c.inflight[conversationID] = tok
	return tok, superseded
}

// Cancel aborts the live token for the conversation, removes it from the
// table immediately, and returns it for rollback. A slow or unresponsive
// server must not leave the UI stuck, so the state transition does not
// wait for the transport to acknowledge the abort.
func (c *Coordinator) Cancel(conversationID string) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	tok, ok := c.inflight[conversationID]
	if !ok {
		return nil
	}
	tok.cancel()
	delete(c.inflight, conversationID)
	return tok
}

// Settle marks the operation finished. It returns true only when the
// token is still the live one for its conversation; a false return means
// the operation was cancelled or superseded and its outcome must be
// discarded (the rollback already happened when it lost ownership).
func (c *Coordinator) Settle(tok *Token) bool {
	if tok == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.inflight[tok.conversationID]
	if !ok || current.id != tok.id {
		return false
	}
	tok.cancel() // release the context either way
	delete(c.inflight, tok.conversationID)
	return true
}

// Sending reports whether the conversation has a live send-class
// operation.
func (c *Coordinator) Sending(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[conversationID]
	return ok
}
