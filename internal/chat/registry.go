// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sort"
	"time"
)

// Summary is one conversation as it appears in the sidebar list.
type Summary struct {
	ID             string
	Title          string
	LastActivityAt time.Time
	FileIDs        []string
}

// Registry is the ordered collection of conversation summaries for the
// current identity: uniquely keyed by id, sorted by recency descending,
// with a single active selection.
type Registry struct {
	items    []Summary
	activeID string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Items returns the summaries, most recent first. The returned slice is
// shared; callers must not mutate it.
func (r *Registry) Items() []Summary { return r.items }

// Len returns the number of conversations.
func (r *Registry) Len() int { return len(r.items) }

// ActiveID returns the selected conversation id, or "".
func (r *Registry) ActiveID() string { return r.activeID }

// Active returns the selected summary.
func (r *Registry) Active() (Summary, bool) {
	return r.Get(r.activeID)
}

// Get looks a summary up by id.
func (r *Registry) Get(id string) (Summary, bool) {
	if id == "" {
		return Summary{}, false
	}
	for _, s := range r.items {
		if s.ID == id {
			return s, true
		}
	}
	return Summary{}, false
}

// ReplaceAll swaps the collection wholesale for server truth and re-sorts.
// A selection that no longer exists server-side is dropped.
func (r *Registry) ReplaceAll(items []Summary) {
	r.items = append([]Summary(nil), items...)
	r.sortByRecency()
	if _, ok := r.Get(r.activeID); !ok {
		r.activeID = ""
	}
}

// Upsert replaces the entry with the same id, or inserts a new one, then
// re-sorts. Used after any mutating backend call that returns an updated
// conversation.
func (r *Registry) Upsert(s Summary) {
	for i := range r.items {
		if r.items[i].ID == s.ID {
			r.items[i] = s
			r.sortByRecency()
			return
		}
	}
	r.items = append(r.items, s)
	r.sortByRecency()
}

// Touch bumps a conversation's recency and re-sorts, moving it to the head
// of the list when the timestamp is the newest.
func (r *Registry) Touch(id string, at time.Time) {
	for i := range r.items {
		if r.items[i].ID == id {
			if at.After(r.items[i].LastActivityAt) {
				r.items[i].LastActivityAt = at
			}
			r.sortByRecency()
			return
		}
	}
}

// AttachFile records an uploaded file id on the owning summary.
func (r *Registry) AttachFile(id, fileID string) {
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].FileIDs = append(r.items[i].FileIDs, fileID)
			return
		}
	}
}

// Select makes the given conversation active. Returns false when the id is
// already selected or unknown, in which case nothing changes.
func (r *Registry) Select(id string) bool {
	if id == r.activeID {
		return false
	}
	if _, ok := r.Get(id); !ok {
		return false
	}
	r.activeID = id
	return true
}

// Deselect clears the active selection.
func (r *Registry) Deselect() {
	r.activeID = ""
}

// Delete removes a conversation. When the deleted conversation was
// selected, the next most recent remaining one is selected; nextActive is
// "" when none remain. wasActive tells the caller whether the message log
// and attachment state must be reset.
func (r *Registry) Delete(id string) (nextActive string, wasActive bool) {
	idx := -1
	for i := range r.items {
		if r.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return r.activeID, false
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)

	wasActive = r.activeID == id
	if wasActive {
		r.activeID = ""
		if len(r.items) > 0 {
			// Items are sorted by recency, head is next most recent.
			r.activeID = r.items[0].ID
		}
	}
	return r.activeID, wasActive
}

// sortByRecency orders by LastActivityAt descending. The sort is stable so
// equal timestamps keep their relative order.
func (r *Registry) sortByRecency() {
	sort.SliceStable(r.items, func(i, j int) bool {
		return r.items[i].LastActivityAt.After(r.items[j].LastActivityAt)
	})
}
