// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root bubbletea model. It restores or creates a
// session and switches between the loading screen, the login form and the
// main view.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/session"
	"github.com/jeranaias/cosmic-matrix/internal/ui/chat"
	"github.com/jeranaias/cosmic-matrix/internal/ui/login"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

const (
	// Restore and login both open the crypto store and may run key
	// uploads before returning.
	connectTimeout = 2 * time.Minute

	msgExpired = "Your session has expired. Please log in again."
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Connector opens an account.
type Connector interface {
	Restore(ctx context.Context) (chat.Backend, error)
	Login(ctx context.Context, homeserver, username, password string) (chat.Backend, error)
}

// MatrixConnector opens accounts with the matrix package.
type MatrixConnector struct {
	Options matrix.Options
}

// Restore resumes the stored session.
func (c MatrixConnector) Restore(ctx context.Context) (chat.Backend, error) {
	cli, err := matrix.Restore(ctx, c.Options)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// Login performs a password login.
func (c MatrixConnector) Login(ctx context.Context, homeserver, username, password string) (chat.Backend, error) {
	cli, err := matrix.Login(ctx, c.Options, homeserver, username, password)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// Store holds the session file and the sidebar settings.
type Store interface {
	chat.SettingsSaver
	LoadSettings() session.Settings
	ClearSession() error
}

// Options configures New.
type Options struct {
	Connector Connector
	Store     Store
	Config    *config.Config
	// Reloads, when set, delivers config file changes.
	Reloads  <-chan config.Reload
	Notifier chat.Notifier
	Logger   zerolog.Logger
}

// =============================================================================
// MESSAGES
// =============================================================================

type connectedMsg struct {
	Backend chat.Backend
	Err     error
	// Login is set for a password login rather than a restore.
	Login bool
}

type reloadMsg struct {
	config.Reload
}

type reloadsClosedMsg struct{}

type closedMsg struct {
	Err error
}

// =============================================================================
// MODEL
// =============================================================================

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenMain
)

func (s screen) String() string {
	switch s {
	case screenLoading:
		return "loading"
	case screenLogin:
		return "login"
	case screenMain:
		return "main"
	default:
		return "unknown"
	}
}

// Model is the root of the UI.
type Model struct {
	conn     Connector
	store    Store
	cfg      *config.Config
	reloads  <-chan config.Reload
	notifier chat.Notifier
	log      zerolog.Logger
	theme    *styles.Theme

	screen  screen
	login   login.Model
	chat    chat.Model
	hasChat bool
	spinner spinner.Model

	width  int
	height int
}

// New builds the root model. Init starts the session restore.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := styles.NewTheme(cfg.UI.Theme)

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	return Model{
		conn:     opts.Connector,
		store:    opts.Store,
		cfg:      cfg,
		reloads:  opts.Reloads,
		notifier: opts.Notifier,
		log:      opts.Logger.With().Str("component", "app").Logger(),
		theme:    theme,
		screen:   screenLoading,
		login:    login.New(theme, cfg.Account.DefaultHomeserver),
		spinner:  spin,
	}
}

// Init starts the restore and the config reload listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.restoreCmd(), waitForReload(m.reloads))
}

// Screen names the visible screen.
func (m Model) Screen() string { return m.screen.String() }

// Login returns the login form.
func (m Model) Login() login.Model { return m.login }

// Chat returns the main view and whether one is open.
func (m Model) Chat() (chat.Model, bool) { return m.chat, m.hasChat }

// Close releases the open account, if any.
func (m Model) Close() error {
	if !m.hasChat {
		return nil
	}
	return m.chat.Close()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) restoreCmd() tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		b, err := conn.Restore(ctx)
		return connectedMsg{Backend: b, Err: err}
	}
}

func (m Model) loginCmd(req login.SubmitMsg) tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		b, err := conn.Login(ctx, req.Homeserver, req.Username, req.Password)
		return connectedMsg{Backend: b, Err: err, Login: true}
	}
}

// closeCmd releases the previous account off the UI goroutine.
func closeCmd(c chat.Model) tea.Cmd {
	return func() tea.Msg {
		return closedMsg{Err: c.Close()}
	}
}

func waitForReload(ch <-chan config.Reload) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return reloadsClosedMsg{}
		}
		return reloadMsg{r}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		if m.hasChat {
			var chatCmd tea.Cmd
			m, chatCmd = m.updateChat(msg)
			cmd = tea.Batch(cmd, chatCmd)
		}
		return m, cmd

	case connectedMsg:
		return m.handleConnected(msg)

	case login.SubmitMsg:
		m.log.Info().Str("homeserver", msg.Homeserver).Str("user", msg.Username).Msg("logging in")
		return m, m.loginCmd(msg)

	case chat.SessionEndedMsg:
		return m.handleSessionEnded(msg)

	case chat.LoggedOutMsg:
		text := ""
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("logout incomplete")
			text = "Logout incomplete: " + msg.Err.Error()
		}
		return m.showLogin(text)

	case closedMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("close account")
		}
		return m, nil

	case reloadMsg:
		m.applyReload(msg.Reload)
		return m, waitForReload(m.reloads)

	case reloadsClosedMsg:
		return m, nil

	case spinner.TickMsg:
		if m.screen == screenLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	switch m.screen {
	case screenLoading:
		if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case screenLogin:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	default:
		return m.updateChat(msg)
	}
}

func (m Model) updateChat(msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.chat.Update(msg)
	m.chat = next.(chat.Model)
	return m, cmd
}

func (m Model) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if msg.Err == nil {
		return m.showMain(msg.Backend, msg.Login)
	}

	if msg.Login {
		m.log.Warn().Err(msg.Err).Msg("login failed")
		m.login.SetError(msg.Err.Error())
		return m, nil
	}

	switch {
	case errors.Is(msg.Err, session.ErrNoSession):
		return m.showLogin("")
	case errors.Is(msg.Err, matrix.ErrSessionExpired):
		m.log.Info().Msg("stored session expired")
		m.clearSession()
		return m.showLogin(msgExpired)
	default:
		m.log.Warn().Err(msg.Err).Msg("session restore failed")
		return m.showLogin(fmt.Sprintf("Session restore failed: %v", msg.Err))
	}
}

func (m Model) handleSessionEnded(msg chat.SessionEndedMsg) (tea.Model, tea.Cmd) {
	text := "Disconnected. Please log in again."
	if msg.Expired {
		m.clearSession()
		text = msgExpired
	} else if msg.Err != nil {
		text = "Disconnected: " + msg.Err.Error()
	}
	m.log.Info().Bool("expired", msg.Expired).Msg("session ended")
	return m.showLogin(text)
}

func (m *Model) clearSession() {
	if m.store == nil {
		return
	}
	if err := m.store.ClearSession(); err != nil {
		m.log.Warn().Err(err).Msg("remove session")
	}
}

func (m Model) showMain(b chat.Backend, fresh bool) (tea.Model, tea.Cmd) {
	settings := session.DefaultSettings()
	var saver chat.SettingsSaver
	if m.store != nil {
		settings = m.store.LoadSettings()
		saver = m.store
	}

	m.chat = chat.New(chat.Options{
		Backend:   b,
		Config:    m.cfg,
		Settings:  settings,
		Saver:     saver,
		Theme:     m.theme,
		Notifier:  m.notifier,
		Logger:    m.log,
		Bootstrap: fresh,
	})
	m.hasChat = true
	m.screen = screenMain
	m.login = login.New(m.theme, m.cfg.Account.DefaultHomeserver)

	cmds := []tea.Cmd{m.chat.Init()}
	if m.width > 0 && m.height > 0 {
		var cmd tea.Cmd
		m, cmd = m.updateChat(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// showLogin replaces the current screen with a fresh login form. An open
// account is closed in the background.
func (m Model) showLogin(text string) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.hasChat {
		cmds = append(cmds, closeCmd(m.chat))
		m.chat = chat.Model{}
		m.hasChat = false
	}

	m.screen = screenLogin
	m.login = login.New(m.theme, m.cfg.Account.DefaultHomeserver)
	m.login.SetSize(m.width, m.height)
	if text != "" {
		m.login.SetError(text)
	}
	cmds = append(cmds, m.login.Init())
	return m, tea.Batch(cmds...)
}

func (m *Model) applyReload(r config.Reload) {
	if r.Err != nil {
		m.log.Warn().Err(r.Err).Msg("config reload rejected")
		return
	}
	if r.Config == nil {
		return
	}
	if styles.NormalizeMode(r.Config.UI.Theme) != styles.NormalizeMode(m.cfg.UI.Theme) {
		m.theme = styles.NewTheme(r.Config.UI.Theme)
		m.theme.SetSize(m.width, m.height)
		if m.screen == screenLogin && !m.login.Loading() {
			form := login.New(m.theme, r.Config.Account.DefaultHomeserver)
			form.SetSize(m.width, m.height)
			m.login = form
		}
	}
	m.cfg = r.Config
	if m.hasChat {
		m.chat.ApplyConfig(r.Config)
	}
	m.log.Info().Msg("config reloaded")
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the visible screen.
func (m Model) View() string {
	switch m.screen {
	case screenLogin:
		return m.login.View()
	case screenMain:
		return m.chat.View()
	}

	text := m.spinner.View() + " " + m.theme.Muted.Render("Restoring session…")
	if m.width == 0 || m.height == 0 {
		return text
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, text)
}
