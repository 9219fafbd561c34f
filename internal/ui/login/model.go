// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login provides the authentication screens: credentials first,
// then a TOTP code when the account has two-factor enabled.
package login

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HamzaEch1/pfa-assistant/internal/api"
	"github.com/HamzaEch1/pfa-assistant/internal/auth"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/components"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/styles"
)

// Step is the current authentication stage.
type Step int

const (
	// StepCredentials collects username and password.
	StepCredentials Step = iota
	// StepTwoFactor collects the TOTP code after the password was accepted.
	StepTwoFactor
)

// DoneMsg signals that the session is established and the chat screen
// can take over.
type DoneMsg struct {
	Identity auth.Identity
}

type loginResultMsg struct {
	token *api.Token
	err   error
}

type identityResultMsg struct {
	user *api.User
	err  error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the login screens.
type Model struct {
	theme  *styles.Theme
	client *api.Client
	store  *auth.Store

	step     Step
	username textinput.Model
	password textinput.Model
	code     textinput.Model
	focus    int

	spinner components.Spinner
	busy    bool
	errMsg  string

	width  int
	height int
}

// New creates the login model.
func New(theme *styles.Theme, client *api.Client, store *auth.Store) Model {
	username := textinput.New()
	username.Placeholder = "identifiant"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "mot de passe"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	code := textinput.New()
	code.Placeholder = "code à 6 chiffres"
	code.CharLimit = 6

	return Model{
		theme:    theme,
		client:   client,
		store:    store,
		username: username,
		password: password,
		code:     code,
		spinner:  components.NewSpinner("Connexion"),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			if m.step == StepCredentials {
				return m, m.setFocus(1 - m.focus)
			}
			return m, nil
		case "enter":
			return m.submit()
		case "esc":
			if m.step == StepTwoFactor {
				// Back to credentials; the half-finished login is dropped.
				m.step = StepCredentials
				m.code.Reset()
				m.errMsg = ""
				return m, m.setFocus(0)
			}
		}

	case loginResultMsg:
		m.busy = false
		m.spinner.Stop()
		if msg.err != nil {
			m.errMsg = loginErrorText(msg.err)
			return m, nil
		}
		if msg.token.RequiresSecondFactor {
			m.step = StepTwoFactor
			m.errMsg = ""
			m.code.Reset()
			return m, m.focusCode()
		}
		return m.establish(msg.token)

	case identityResultMsg:
		m.busy = false
		m.spinner.Stop()
		if msg.err != nil {
			// The token worked for login but /auth/me failed; treat the
			// session as unusable.
			m.store.Clear()
			m.errMsg = loginErrorText(msg.err)
			return m, nil
		}
		identity := identityFromUser(msg.user)
		m.store.SetIdentity(identity)
		return m, func() tea.Msg { return DoneMsg{Identity: identity} }
	}

	return m.updateInputs(msg)
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.focus = i
	m.username.Blur()
	m.password.Blur()
	if i == 0 {
		return m.username.Focus()
	}
	return m.password.Focus()
}

func (m *Model) focusCode() tea.Cmd {
	m.username.Blur()
	m.password.Blur()
	return m.code.Focus()
}

func (m Model) updateInputs(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.busy {
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.step {
	case StepCredentials:
		m.username, cmd = m.username.Update(msg)
		cmds = append(cmds, cmd)
		m.password, cmd = m.password.Update(msg)
		cmds = append(cmds, cmd)
	case StepTwoFactor:
		m.code, cmd = m.code.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func (m Model) submit() (Model, tea.Cmd) {
	switch m.step {
	case StepCredentials:
		username := strings.TrimSpace(m.username.Value())
		password := m.password.Value()
		if username == "" || password == "" {
			m.errMsg = "Identifiant et mot de passe requis."
			return m, nil
		}
		m.busy = true
		m.errMsg = ""
		return m, tea.Batch(m.spinner.Start(), m.loginCmd(username, password))

	case StepTwoFactor:
		code := strings.TrimSpace(m.code.Value())
		if !auth.CodeLooksValid(code) {
			m.errMsg = "Le code doit comporter 6 chiffres."
			return m, nil
		}
		m.busy = true
		m.errMsg = ""
		return m, tea.Batch(m.spinner.Start(), m.verifyCmd(strings.TrimSpace(m.username.Value()), code))
	}
	return m, nil
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		token, err := client.Login(context.Background(), username, password)
		return loginResultMsg{token: token, err: err}
	}
}

func (m Model) verifyCmd(username, code string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		token, err := client.VerifyTwoFactor(context.Background(), username, code)
		return loginResultMsg{token: token, err: err}
	}
}

// establish persists the fresh token and resolves the identity.
func (m Model) establish(token *api.Token) (Model, tea.Cmd) {
	if err := m.store.Establish(token.AccessToken, auth.Identity{ID: token.UserID}); err != nil {
		m.errMsg = "Impossible d'enregistrer la session: " + err.Error()
		return m, nil
	}
	m.busy = true
	client := m.client
	return m, tea.Batch(m.spinner.Start(), func() tea.Msg {
		user, err := client.Me(context.Background())
		return identityResultMsg{user: user, err: err}
	})
}

func identityFromUser(u *api.User) auth.Identity {
	return auth.Identity{
		ID:                 u.ID,
		Username:           u.Username,
		DisplayName:        u.FullName,
		IsAdmin:            u.IsAdmin,
		TwoFactorEnabled:   u.TwoFactorEnabled,
		TwoFactorConfirmed: u.TwoFactorConfirmed,
	}
}

// loginErrorText maps transport errors to user-facing French messages.
func loginErrorText(err error) string {
	var serverErr *api.ServerError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "Identifiant ou mot de passe incorrect."
	case errors.Is(err, api.ErrTimeout):
		return "Le serveur ne répond pas. Réessayez."
	case errors.Is(err, api.ErrNetwork):
		return "Connexion au serveur impossible."
	case errors.As(err, &serverErr):
		return serverErr.Detail
	default:
		return "Échec de la connexion: " + err.Error()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	title := m.theme.LoginTitle.Render("Assistant Catalogue de Données")

	var body string
	switch m.step {
	case StepCredentials:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.theme.LoginLabel.Render("Identifiant"),
			m.username.View(),
			"",
			m.theme.LoginLabel.Render("Mot de passe"),
			m.password.View(),
		)
	case StepTwoFactor:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.theme.LoginLabel.Render("Code de vérification"),
			m.code.View(),
			"",
			m.theme.LoginHint.Render("Saisissez le code de votre application d'authentification."),
		)
	}

	var status string
	switch {
	case m.busy:
		status = m.spinner.View()
	case m.errMsg != "":
		status = m.theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + m.errMsg)
	default:
		status = m.theme.LoginHint.Render("Entrée pour valider · Tab pour changer de champ")
	}

	box := m.theme.LoginBox.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		body,
		"",
		status,
	))

	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
