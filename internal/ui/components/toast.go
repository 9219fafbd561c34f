// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Non-blocking toast notifications. Unlike modal error dialogs, toasts
// appear at the bottom of the screen and auto-dismiss, so the user can
// keep typing while a failed send or feedback call is reported.
package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HamzaEch1/pfa-assistant/internal/ui/styles"
)

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast
	ToastKindError
	// ToastKindSuccess is a success toast
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is the auto-dismiss duration for error toasts
// (longer, so the message can be read).
const ErrorToastDuration = 8 * time.Second

// Toast is one notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the toast should be dismissed.
func (t *Toast) IsExpired() bool {
	return time.Since(t.CreatedAt) >= t.Duration
}

// ToastTickMsg drives toast expiry.
type ToastTickMsg struct{}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager manages the active toast notifications.
type ToastManager struct {
	toasts    []Toast
	nextID    int
	maxToasts int
}

// NewToastManager creates a new toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{maxToasts: 3}
}

// AddError queues an error toast.
func (tm *ToastManager) AddError(message string) tea.Cmd {
	return tm.add(message, ToastKindError, ErrorToastDuration)
}

// AddSuccess queues a success toast.
func (tm *ToastManager) AddSuccess(message string) tea.Cmd {
	return tm.add(message, ToastKindSuccess, DefaultToastDuration)
}

// AddStatus queues an informational toast.
func (tm *ToastManager) AddStatus(message string) tea.Cmd {
	return tm.add(message, ToastKindStatus, DefaultToastDuration)
}

func (tm *ToastManager) add(message string, kind ToastKind, duration time.Duration) tea.Cmd {
	tm.nextID++
	tm.toasts = append(tm.toasts, Toast{
		ID:        tm.nextID,
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
	if len(tm.toasts) > tm.maxToasts {
		tm.toasts = tm.toasts[len(tm.toasts)-tm.maxToasts:]
	}
	return tm.tick()
}

// Expire drops expired toasts and reschedules the tick while any remain.
func (tm *ToastManager) Expire() tea.Cmd {
	live := tm.toasts[:0]
	for _, t := range tm.toasts {
		if !t.IsExpired() {
			live = append(live, t)
		}
	}
	tm.toasts = live
	if len(tm.toasts) == 0 {
		return nil
	}
	return tm.tick()
}

// DismissAll clears every active toast.
func (tm *ToastManager) DismissAll() {
	tm.toasts = nil
}

// HasToasts reports whether any toast is visible.
func (tm *ToastManager) HasToasts() bool {
	return len(tm.toasts) > 0
}

func (tm *ToastManager) tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return ToastTickMsg{}
	})
}

// View renders the active toasts, most recent last.
func (tm *ToastManager) View(width int) string {
	if len(tm.toasts) == 0 {
		return ""
	}

	var rendered []string
	for _, t := range tm.toasts {
		var border lipgloss.AdaptiveColor
		var indicator string
		switch t.Kind {
		case ToastKindError:
			border = styles.Rose
			indicator = styles.StatusIndicators.Error
		case ToastKindSuccess:
			border = styles.Emerald
			indicator = styles.StatusIndicators.Success
		default:
			border = styles.Cyan
			indicator = styles.StatusIndicators.Info
		}

		maxWidth := width - 8
		if maxWidth < 20 {
			maxWidth = 20
		}
		body := wordWrap(indicator+" "+t.Message, maxWidth)

		rendered = append(rendered, lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Foreground(styles.TextPrimary).
			Padding(0, 1).
			Render(body))
	}
	return strings.Join(rendered, "\n")
}
