// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the client-side conversation state machine.
//
// It reconciles the remotely persisted conversation list and message log
// with locally initiated, possibly concurrent, cancellable operations:
// sending and resending messages, uploading spreadsheets, submitting
// feedback. The package is pure state: it performs no I/O and imports no
// rendering code, so every transition is testable without a terminal or a
// backend.
//
// The pieces:
//
//   - Registry: ordered conversation summaries, keyed by id, most recent
//     first, with a single active selection.
//   - Log: the message sequence of the active conversation, supporting
//     optimistic append, confirm and rollback.
//   - Binding: uploaded files of the active conversation plus the single
//     "armed" file that accompanies the next outgoing message.
//   - Board: per-message feedback ratings with the detailed-reason flow.
//   - Coordinator: at most one in-flight send per conversation,
//     last-writer-wins cancellation.
//   - Workspace: the aggregate tying the above together; the view layer
//     dispatches events into it and renders what it holds.
//
// The view binding (internal/ui) issues the actual network calls between a
// Begin* and a Finish* transition; completions are keyed by conversation id
// and token identity, never by the "current" selection, so a response that
// lands after the user switched conversations cannot corrupt the newly
// active log.
package chat
