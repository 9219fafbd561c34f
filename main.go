// pfa-assistant - terminal client for the corporate data-catalog assistant.
//
// Copyright (c) 2024-2025 pfa-assistant authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/HamzaEch1/pfa-assistant/internal/api"
	"github.com/HamzaEch1/pfa-assistant/internal/auth"
	"github.com/HamzaEch1/pfa-assistant/internal/config"
	"github.com/HamzaEch1/pfa-assistant/internal/storage"
	chatui "github.com/HamzaEch1/pfa-assistant/internal/ui/chat"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/login"
	"github.com/HamzaEch1/pfa-assistant/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference so backend callbacks (401 hook, config reloads)
// can deliver messages into the event loop.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func sendToProgram(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	configPath := flag.String("config", "", "chemin du fichier de configuration")
	serverURL := flag.String("server", "", "URL du serveur (prioritaire sur la configuration)")
	debug := flag.Bool("debug", false, "journal de débogage des requêtes dans ~/.pfa-assistant/debug.log")
	showVersion := flag.Bool("version", false, "affiche la version et quitte")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pfa-assistant %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "pfa-assistant nécessite un terminal interactif")
		os.Exit(1)
	}

	// Configuration: file, then environment, then flags.
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur de configuration: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}

	// Local state database (credential + drafts).
	statePath := cfg.Session.StatePath
	if statePath == "" {
		statePath, err = storage.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
			os.Exit(1)
		}
	}
	local, err := storage.Open(statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Impossible d'ouvrir l'état local: %v\n", err)
		os.Exit(1)
	}
	defer local.Close()

	var credentials auth.CredentialStorage = local.Credentials()
	if !cfg.Session.RememberLogin {
		credentials = &memoryCredential{}
	}
	session, err := auth.NewStore(credentials)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Impossible de restaurer la session: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.Server.URL).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.Server.RequestsPerSecond, cfg.Server.Burst).
		WithTokenSource(session).
		OnUnauthorized(func() {
			session.Clear()
			sendToProgram(chatui.SessionExpiredMsg{})
		})
	if *debug {
		// Writing to stderr would corrupt the alternate screen; debug output
		// goes to a file under the dot-dir instead.
		if logFile, err := openDebugLog(); err == nil {
			defer logFile.Close()
			client = client.WithLogger(log.New(logFile, "", log.LstdFlags))
		}
	}

	theme := styles.NewTheme(cfg.UI.Theme)

	m := newRootModel(theme, cfg, client, session, local)

	p := tea.NewProgram(m, tea.WithAltScreen())
	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Live config reload: theme switches apply without restarting.
	if path := resolvedConfigPath(*configPath); path != "" {
		watcher, err := config.NewWatcher(path, func(next *config.Config) {
			sendToProgram(configReloadedMsg{config: next})
		})
		if err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
}

func openDebugLog() (*os.File, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func resolvedConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	path, err := config.Path()
	if err != nil {
		return ""
	}
	return path
}

// memoryCredential keeps the bearer token for the process lifetime only,
// used when remember_login is disabled.
type memoryCredential struct {
	mu    sync.Mutex
	token string
}

func (m *memoryCredential) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryCredential) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryCredential) Clear() error {
	return m.Set("")
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State represents the current application screen.
type State int

const (
	StateLogin State = iota
	StateChat
)

// configReloadedMsg carries a validated config picked up by the file watcher.
type configReloadedMsg struct {
	config *config.Config
}

// sessionRestoredMsg settles the startup validation of a persisted token.
type sessionRestoredMsg struct {
	user *api.User
	err  error
}

// Model is the root Bubble Tea model, delegating to the login and chat
// screens.
type Model struct {
	state State

	theme   *styles.Theme
	config  *config.Config
	client  *api.Client
	session *auth.Store
	local   *storage.Store

	loginModel login.Model
	chatModel  chatui.Model

	width  int
	height int
}

func newRootModel(theme *styles.Theme, cfg *config.Config, client *api.Client, session *auth.Store, local *storage.Store) *Model {
	return &Model{
		state:      StateLogin,
		theme:      theme,
		config:     cfg,
		client:     client,
		session:    session,
		local:      local,
		loginModel: login.New(theme, client, session),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loginModel.Init()}
	if m.session.HasToken() {
		// A persisted token is not proof of a live session; validate it
		// against the backend before skipping the login screen.
		cmds = append(cmds, m.validateSession())
	}
	return tea.Batch(cmds...)
}

func (m *Model) validateSession() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		user, err := client.Me(context.Background())
		return sessionRestoredMsg{user: user, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		// Both screens track the size so switching never renders stale.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.loginModel, cmd = m.loginModel.Update(msg)
		cmds = append(cmds, cmd)
		if m.state == StateChat {
			m.chatModel, cmd = m.chatModel.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case sessionRestoredMsg:
		if msg.err != nil {
			// Dead token: stay on the login screen.
			m.session.Clear()
			return m, nil
		}
		m.session.SetIdentity(auth.Identity{
			ID:                 msg.user.ID,
			Username:           msg.user.Username,
			DisplayName:        msg.user.FullName,
			IsAdmin:            msg.user.IsAdmin,
			TwoFactorEnabled:   msg.user.TwoFactorEnabled,
			TwoFactorConfirmed: msg.user.TwoFactorConfirmed,
		})
		return m, m.enterChat()

	case login.DoneMsg:
		return m, m.enterChat()

	case chatui.SessionExpiredMsg:
		m.session.Clear()
		return m, m.enterLogin()

	case chatui.LogoutMsg:
		m.session.Clear()
		return m, m.enterLogin()

	case configReloadedMsg:
		m.config = msg.config
		m.theme.SetMode(msg.config.UI.Theme)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case StateLogin:
		m.loginModel, cmd = m.loginModel.Update(msg)
	case StateChat:
		m.chatModel, cmd = m.chatModel.Update(msg)
	}
	return m, cmd
}

// enterChat swaps to a fresh chat screen after authentication.
func (m *Model) enterChat() tea.Cmd {
	m.state = StateChat
	m.chatModel = chatui.New(m.theme, m.client, m.session, m.local)

	cmds := []tea.Cmd{m.chatModel.Init()}
	if m.width > 0 {
		var cmd tea.Cmd
		m.chatModel, cmd = m.chatModel.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// enterLogin drops back to a fresh login screen.
func (m *Model) enterLogin() tea.Cmd {
	m.state = StateLogin
	m.loginModel = login.New(m.theme, m.client, m.session)

	cmds := []tea.Cmd{m.loginModel.Init()}
	if m.width > 0 {
		var cmd tea.Cmd
		m.loginModel, cmd = m.loginModel.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	switch m.state {
	case StateChat:
		return m.chatModel.View()
	default:
		return m.loginModel.View()
	}
}
