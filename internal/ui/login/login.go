// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login is the password login form shown when no session is stored.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

// DefaultHomeserver prefills the form when nothing is configured.
const DefaultHomeserver = "matrix.org"

const (
	fieldHomeserver = iota
	fieldUsername
	fieldPassword
	fieldSubmit
	fieldCount
)

const formWidth = 44

// SubmitMsg is emitted when the user submits a complete form.
type SubmitMsg struct {
	Homeserver string
	Username   string
	Password   string
}

// KeyMap holds the form bindings.
type KeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Reveal key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("S-tab", "previous field")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log in")),
		Reveal: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "show password")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
	}
}

// Model is the login form.
type Model struct {
	theme   *styles.Theme
	keys    KeyMap
	inputs  [fieldSubmit]textinput.Model
	focus   int
	reveal  bool
	loading bool
	err     string
	spinner spinner.Model

	width  int
	height int
}

// New builds the form with homeserver prefilled.
func New(theme *styles.Theme, homeserver string) Model {
	if homeserver = strings.TrimSpace(homeserver); homeserver == "" {
		homeserver = DefaultHomeserver
	}

	hs := textinput.New()
	hs.Prompt = ""
	hs.Placeholder = DefaultHomeserver
	hs.SetValue(homeserver)

	user := textinput.New()
	user.Prompt = ""
	user.Placeholder = "username or @user:server"

	pw := textinput.New()
	pw.Prompt = ""
	pw.Placeholder = "password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	m := Model{
		theme:   theme,
		keys:    DefaultKeyMap(),
		inputs:  [fieldSubmit]textinput.Model{hs, user, pw},
		spinner: spin,
	}
	// Start on the first empty field.
	m.setFocus(fieldUsername)
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// STATE
// =============================================================================

// SetLoading shows or clears the in-flight state. Starting a request
// clears the previous error.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	m.loading = loading
	if loading {
		m.err = ""
		return m.spinner.Tick
	}
	return nil
}

// SetError ends loading and shows err under the form.
func (m *Model) SetError(err string) {
	m.loading = false
	m.err = err
}

// Loading reports whether a login is in flight.
func (m Model) Loading() bool { return m.loading }

// Err returns the inline error.
func (m Model) Err() string { return m.err }

// Revealed reports whether the password is shown in clear.
func (m Model) Revealed() bool { return m.reveal }

// Focused returns the index of the focused field.
func (m Model) Focused() int { return m.focus }

// Values returns the trimmed homeserver and username and the raw password.
func (m Model) Values() SubmitMsg {
	return SubmitMsg{
		Homeserver: strings.TrimSpace(m.inputs[fieldHomeserver].Value()),
		Username:   strings.TrimSpace(m.inputs[fieldUsername].Value()),
		Password:   m.inputs[fieldPassword].Value(),
	}
}

// CanSubmit reports whether every field has a value and no request is
// running.
func (m Model) CanSubmit() bool {
	v := m.Values()
	return !m.loading && v.Homeserver != "" && v.Username != "" && v.Password != ""
}

// SetSize records the window size.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
}

func (m *Model) setFocus(i int) {
	m.focus = (i + fieldCount) % fieldCount
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m *Model) toggleReveal() {
	m.reveal = !m.reveal
	if m.reveal {
		m.inputs[fieldPassword].EchoMode = textinput.EchoNormal
	} else {
		m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles input. Keys are ignored while a login is in flight.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.loading {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Next):
		m.setFocus(m.focus + 1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.setFocus(m.focus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Reveal):
		m.toggleReveal()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		// Enter walks down the form until the last field.
		if m.focus < fieldPassword {
			m.setFocus(m.focus + 1)
			return m, nil
		}
		return m.submit()
	}

	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if !m.CanSubmit() {
		return m, nil
	}
	v := m.Values()
	cmd := m.SetLoading(true)
	return m, tea.Batch(cmd, func() tea.Msg { return v })
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the form centred in the window.
func (m Model) View() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.PanelTitle.Render("Log in to Matrix"))
	b.WriteString("\n\n")

	labels := []string{"Homeserver", "Username", "Password"}
	for i, in := range m.inputs {
		label := t.Label
		if i == m.focus {
			label = t.InfoText
		}
		b.WriteString(label.Render(labels[i]))
		b.WriteString("\n")
		in.Width = formWidth - 4
		b.WriteString(t.Search.Width(formWidth).Render(in.View()))
		b.WriteString("\n")
	}

	reveal := "C-r show password"
	if m.reveal {
		reveal = "C-r hide password"
	}
	b.WriteString(t.Muted.Render(reveal))
	b.WriteString("\n\n")

	b.WriteString(m.renderSubmit())

	switch {
	case m.loading:
		b.WriteString("\n\n")
		b.WriteString(t.Muted.Render(m.spinner.View() + " Logging in…"))
	case m.err != "":
		b.WriteString("\n\n")
		b.WriteString(t.Error.Width(formWidth).Render(m.err))
	}

	panel := t.Panel.Render(b.String())
	if m.width == 0 || m.height == 0 {
		return panel
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func (m Model) renderSubmit() string {
	t := m.theme
	label := " Log in "
	switch {
	case !m.CanSubmit():
		return t.ButtonDisabled.Render(label)
	case m.focus == fieldSubmit:
		return t.ButtonFocused.Render(label)
	default:
		return t.Button.Render(label)
	}
}
