// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
)

func TestCoordinator_AtMostOneInFlight(t *testing.T) {
	c := NewCoordinator()

	first, superseded := c.Begin("c1", "premier", "")
	if superseded != nil {
		t.Fatal("no prior token to supersede")
	}

	second, superseded := c.Begin("c1", "deuxième", "")
	if superseded != first {
		t.Fatal("starting a new send must supersede the prior token")
	}
	if first.Context().Err() == nil {
		t.Error("superseded token must have a cancelled context")
	}

	// The superseded operation can no longer settle.
	if c.Settle(first) {
		t.Error("a superseded token must not settle")
	}
	// The live one can, exactly once.
	if !c.Settle(second) {
		t.Error("the live token must settle")
	}
	if c.Settle(second) {
		t.Error("a token must settle at most once")
	}
}

func TestCoordinator_CancelTakesEffectImmediately(t *testing.T) {
	c := NewCoordinator()
	tok, _ := c.Begin("c1", "message", "")

	got := c.Cancel("c1")
	if got != tok {
		t.Fatal("Cancel should return the live token")
	}
	if tok.Context().Err() == nil {
		t.Error("Cancel must abort the transport context")
	}
	if c.Sending("c1") {
		t.Error("the slot must free immediately, not after the round-trip")
	}
	// The late completion finds no live token.
	if c.Settle(tok) {
		t.Error("a cancelled token must not settle")
	}
	if c.Cancel("c1") != nil {
		t.Error("nothing left to cancel")
	}
}

func TestCoordinator_PerConversationScope(t *testing.T) {
	c := NewCoordinator()

	tokA, _ := c.Begin("a", "sur A", "")
	tokB, supersededB := c.Begin("b", "sur B", "")
	if supersededB != nil {
		t.Fatal("sends on different conversations are independent")
	}
	if tokA.Context().Err() != nil {
		t.Error("a send on B must not cancel the send on A")
	}
	if !c.Sending("a") || !c.Sending("b") {
		t.Error("both conversations should have live tokens")
	}

	if !c.Settle(tokA) || !c.Settle(tokB) {
		t.Error("both tokens should settle independently")
	}
}

func TestCoordinator_TokenCarriesOperationState(t *testing.T) {
	c := NewCoordinator()
	tok, _ := c.Begin("c1", "Qu'est-ce que CLIENT_QT ?", "f42")

	if tok.ConversationID() != "c1" {
		t.Errorf("ConversationID = %q", tok.ConversationID())
	}
	if tok.Input() != "Qu'est-ce que CLIENT_QT ?" {
		t.Errorf("Input = %q", tok.Input())
	}
	if tok.FileID() != "f42" {
		t.Errorf("FileID = %q", tok.FileID())
	}
	if tok.Context() == nil || tok.Context().Err() != nil {
		t.Error("fresh token must carry a live context")
	}
}
