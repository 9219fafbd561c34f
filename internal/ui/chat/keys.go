// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Keyboard bindings for the conversation screen.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the conversation screen.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Submit key.Binding
	Cancel key.Binding

	NextPane key.Binding

	NewConversation    key.Binding
	DeleteConversation key.Binding
	Resend             key.Binding
	Upload             key.Binding
	CycleAttachment    key.Binding
	Statistics         key.Binding

	RateUp   key.Binding
	RateDown key.Binding

	Logout key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "monter"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "descendre"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Entrée", "envoyer"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Échap", "annuler"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "changer de panneau"),
		),
		NewConversation: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "nouvelle conversation"),
		),
		DeleteConversation: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "supprimer"),
		),
		Resend: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "renvoyer le dernier message"),
		),
		Upload: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "joindre un fichier"),
		),
		CycleAttachment: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "fichier actif"),
		),
		Statistics: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "statistiques"),
		),
		RateUp: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "utile"),
		),
		RateDown: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "pas utile"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "déconnexion"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quitter"),
		),
	}
}
