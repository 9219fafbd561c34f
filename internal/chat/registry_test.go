// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"
)

func summaries(t0 time.Time) []Summary {
	return []Summary{
		{ID: "old", Title: "Ancien", LastActivityAt: t0.Add(-2 * time.Hour)},
		{ID: "mid", Title: "Milieu", LastActivityAt: t0.Add(-time.Hour)},
		{ID: "new", Title: "Récent", LastActivityAt: t0},
	}
}

func TestRegistry_ReplaceAllSortsByRecency(t *testing.T) {
	r := NewRegistry()
	r.ReplaceAll(summaries(time.Now()))

	got := r.Items()
	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Items()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestRegistry_SelectIsNoOpWhenAlreadyActive(t *testing.T) {
	r := NewRegistry()
	r.ReplaceAll(summaries(time.Now()))

	if !r.Select("mid") {
		t.Fatal("Select should change the selection")
	}
	if r.Select("mid") {
		t.Error("re-selecting the active conversation should be a no-op")
	}
	if r.Select("unknown") {
		t.Error("selecting an unknown id should be a no-op")
	}
	if r.ActiveID() != "mid" {
		t.Errorf("ActiveID = %q, want mid", r.ActiveID())
	}
}

func TestRegistry_TouchMovesToHead(t *testing.T) {
	now := time.Now()
	r := NewRegistry()
	r.ReplaceAll(summaries(now))

	r.Touch("old", now.Add(time.Minute))
	if r.Items()[0].ID != "old" {
		t.Errorf("touched conversation should be first, got %q", r.Items()[0].ID)
	}

	// An older timestamp never moves recency backwards.
	r.Touch("old", now.Add(-24*time.Hour))
	if r.Items()[0].ID != "old" {
		t.Error("stale touch must not demote the entry")
	}
}

func TestRegistry_DeleteSelectsNextMostRecent(t *testing.T) {
	r := NewRegistry()
	r.ReplaceAll(summaries(time.Now()))
	r.Select("new")

	next, wasActive := r.Delete("new")
	if !wasActive {
		t.Fatal("deleting the selection should report wasActive")
	}
	if next != "mid" {
		t.Errorf("next selection = %q, want the next most recent (mid)", next)
	}

	// Deleting an inactive conversation leaves the selection alone.
	next, wasActive = r.Delete("old")
	if wasActive {
		t.Error("deleting an inactive conversation must not report wasActive")
	}
	if next != "mid" {
		t.Errorf("selection changed to %q", next)
	}

	// Deleting the last one clears the selection.
	next, wasActive = r.Delete("mid")
	if !wasActive || next != "" {
		t.Errorf("Delete(last) = (%q, %v), want (\"\", true)", next, wasActive)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_ReplaceAllDropsVanishedSelection(t *testing.T) {
	r := NewRegistry()
	r.ReplaceAll(summaries(time.Now()))
	r.Select("mid")

	r.ReplaceAll([]Summary{{ID: "new", LastActivityAt: time.Now()}})
	if r.ActiveID() != "" {
		t.Errorf("selection should be dropped when absent from server truth, got %q", r.ActiveID())
	}
}
