// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "strings"

// Rating is the backend-facing value of a message rating.
type Rating string

// Rating values. RatingNone means unrated.
const (
	RatingNone Rating = ""
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// Feedback categories offered in the detailed-reason form, as the backend
// expects them.
var FeedbackCategories = []string{
	"Information incorrecte",
	"Réponse pas claire",
	"Ne répond pas à la question",
	"Contenu offensant",
	CategoryOther,
}

// CategoryOther is the free-form category; it is the only one that
// requires a comment.
const CategoryOther = "Autre"

// Phase is the feedback state of one message.
type Phase int

// Feedback phases. AwaitingDetail is purely local: the detail form is open
// but nothing has been submitted.
const (
	PhaseUnrated Phase = iota
	PhaseUp
	PhaseDown
	PhaseAwaitingDetail
)

// Submission is a staged feedback network call produced by a terminal
// transition. The view layer performs the call and settles the entry with
// ConfirmSubmit or RevertSubmit.
type Submission struct {
	MessageIndex int
	Rating       Rating
	Comment      string

	// revertTo and priorComment restore the pre-transition rating on
	// remote failure.
	revertTo     Phase
	priorComment string
}

// =============================================================================
// FEEDBACK BOARD
// =============================================================================

// Board holds per-message feedback state for the loaded log. Feedback is
// scoped to the load: switching conversations resets the board to whatever
// the server returned.
type Board struct {
	phases   map[int]Phase
	comments map[int]string
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reset drops all ratings and any open detail form.
func (b *Board) Reset() {
	b.phases = make(map[int]Phase)
	b.comments = make(map[int]string)
}

// Seed records a server-persisted rating after a log load.
func (b *Board) Seed(index int, rating Rating, comment string) {
	switch rating {
	case RatingUp:
		b.phases[index] = PhaseUp
	case RatingDown:
		b.phases[index] = PhaseDown
		b.comments[index] = comment
	}
}

// Phase returns the feedback state of a message.
func (b *Board) Phase(index int) Phase {
	return b.phases[index]
}

// DetailOpenFor returns the index whose detail form is open, or -1.
func (b *Board) DetailOpenFor() int {
	for idx, p := range b.phases {
		if p == PhaseAwaitingDetail {
			return idx
		}
	}
	return -1
}

// ToggleUp handles a thumbs-up press. Repeating "up" on an already liked
// message returns it to unrated locally without a network call; otherwise
// the transition is optimistic and a Submission for "up" is staged.
func (b *Board) ToggleUp(index int) (Submission, bool) {
	prior := b.phases[index]
	if prior == PhaseUp {
		// Idempotent toggle: up twice reverts to unrated, no round-trip.
		delete(b.phases, index)
		return Submission{}, false
	}
	if prior == PhaseAwaitingDetail {
		// Liking while the detail form is open abandons the form.
		prior = PhaseUnrated
	}
	sub := Submission{
		MessageIndex: index,
		Rating:       RatingUp,
		revertTo:     prior,
		priorComment: b.comments[index],
	}
	b.phases[index] = PhaseUp
	// An up rating supersedes a prior down both locally and remotely; the
	// old comment survives only in the submission for rollback.
	delete(b.comments, index)
	return sub, true
}

// OpenDetail handles a thumbs-down press: the detail form opens and any
// prior like is cleared locally before the form is confirmed. No network
// call happens until ConfirmDown.
func (b *Board) OpenDetail(index int) {
	// One detail form at a time.
	if open := b.DetailOpenFor(); open >= 0 && open != index {
		b.CancelDetail(open)
	}
	b.phases[index] = PhaseAwaitingDetail
}

// CancelDetail closes the form without submitting. A previously submitted
// down rating is kept; anything else returns to unrated.
func (b *Board) CancelDetail(index int) {
	if b.phases[index] != PhaseAwaitingDetail {
		return
	}
	if _, rated := b.comments[index]; rated {
		b.phases[index] = PhaseDown
		return
	}
	delete(b.phases, index)
}

// ConfirmDown validates the detail form and stages the "down" submission.
// The comment sent to the backend is the category itself, "category:
// comment" when a comment was added, or the bare comment for the free-form
// category.
func (b *Board) ConfirmDown(index int, category, comment string) (Submission, error) {
	if category == "" {
		return Submission{}, ErrCategoryRequired
	}
	comment = strings.TrimSpace(comment)

	var full string
	switch {
	case category == CategoryOther && comment == "":
		return Submission{}, ErrCommentRequired
	case category == CategoryOther:
		full = comment
	case comment != "":
		full = category + ": " + comment
	default:
		full = category
	}

	prior := PhaseUnrated
	priorComment := b.comments[index]
	if priorComment != "" {
		prior = PhaseDown
	}
	b.phases[index] = PhaseDown
	b.comments[index] = full
	return Submission{
		MessageIndex: index,
		Rating:       RatingDown,
		Comment:      full,
		revertTo:     prior,
		priorComment: priorComment,
	}, nil
}

// RevertSubmit restores the pre-transition rating after a failed remote
// call.
func (b *Board) RevertSubmit(sub Submission) {
	if sub.revertTo == PhaseUnrated {
		delete(b.phases, sub.MessageIndex)
	} else {
		b.phases[sub.MessageIndex] = sub.revertTo
	}
	if sub.priorComment != "" {
		b.comments[sub.MessageIndex] = sub.priorComment
	} else {
		delete(b.comments, sub.MessageIndex)
	}
}
