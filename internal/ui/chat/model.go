// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/session"
	"github.com/jeranaias/cosmic-matrix/internal/state"
	"github.com/jeranaias/cosmic-matrix/internal/ui/components"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

// =============================================================================
// FOCUS AND PANELS
// =============================================================================

type focus int

const (
	focusSidebar focus = iota
	focusTimeline
	focusComposer
)

type panel int

const (
	panelNone panel = iota
	panelVerification
	panelProfile
	panelHelp
	panelImage
)

const (
	composerCharLimit  = 16 * 1024
	minSidebarWidth    = 20
	profileAvatarWidth = 16
)

// SettingsSaver persists the sidebar preferences.
type SettingsSaver interface {
	SaveSettings(session.Settings) error
}

// Options configures New.
type Options struct {
	Backend  Backend
	Config   *config.Config
	Settings session.Settings
	Saver    SettingsSaver
	Theme    *styles.Theme
	Notifier Notifier
	Logger   zerolog.Logger
	// Bootstrap sets up cross-signing right away. Used after a password
	// login, while the password is still in memory.
	Bootstrap bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the main view of a logged-in account.
type Model struct {
	backend   Backend
	saver     SettingsSaver
	bootstrap bool
	cfg       *config.Config
	theme     *styles.Theme
	keys      KeyMap
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	rooms    *state.RoomList
	timeline *state.Timeline

	header   *components.Header
	status   *components.StatusBar
	toasts   *components.ToastManager
	markdown *components.Markdown
	notify   *notifier

	viewport viewport.Model
	composer textinput.Model
	search   textinput.Model
	pathIn   textinput.Model
	spinner  spinner.Model
	help     help.Model

	focus     focus
	searching bool
	panel     panel
	button    int

	// selected message, as an index into timeline.Messages; -1 follows
	// the newest message.
	msgCursor int

	images    map[string]string
	imageData map[string][]byte
	fetching  map[string]bool
	preview   string

	// first line of each message in the rendered timeline
	offsets []int

	profile       model.Profile
	profileAvatar string
	crossSigning  model.CrossSigningStatus
	editingAvatar bool
	busy          bool

	request      *model.VerificationRequest
	verification *model.VerificationState

	typing  bool
	syncing bool
	offline bool

	width  int
	height int
	ready  bool
}

// New builds the main view. Call Init to start syncing.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	ctx, cancel := context.WithCancel(context.Background())

	composer := textinput.New()
	composer.Placeholder = "Select a room to start chatting"
	composer.Prompt = "> "
	composer.CharLimit = composerCharLimit

	search := textinput.New()
	search.Placeholder = "Filter rooms"
	search.Prompt = "/ "

	pathIn := textinput.New()
	pathIn.Placeholder = "Path to image"
	pathIn.Prompt = "file: "

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	settings := opts.Settings
	m := Model{
		backend:      opts.Backend,
		saver:        opts.Saver,
		bootstrap:    opts.Bootstrap,
		cfg:          cfg,
		theme:        theme,
		keys:         DefaultKeyMap(),
		log:          opts.Logger.With().Str("component", "chat").Logger(),
		ctx:          ctx,
		cancel:       cancel,
		rooms:        state.NewRoomList(settings.SortMode, settings.SectionsCollapsed),
		timeline:     state.NewTimeline(),
		header:       components.NewHeader(theme),
		status:       components.NewStatusBar(theme),
		toasts:       components.NewToastManager(),
		markdown:     &components.Markdown{},
		notify:       newNotifier(opts.Notifier, opts.Backend.UserID()),
		viewport:     viewport.New(0, 0),
		composer:     composer,
		search:       search,
		pathIn:       pathIn,
		spinner:      spin,
		help:         help.New(),
		focus:        focusSidebar,
		msgCursor:    -1,
		images:       make(map[string]string),
		imageData:    make(map[string][]byte),
		fetching:     make(map[string]bool),
		crossSigning: model.CrossSigningUnknown,
		syncing:      true,
	}
	m.header.UserID = opts.Backend.UserID()
	m.header.Syncing = true
	m.status.Status = "Syncing…"
	m.notify.setEnabled(cfg.UI.Notifications)
	return m
}

// Init starts the sync loop and the first reads.
func (m Model) Init() tea.Cmd {
	m.backend.StartSync(m.ctx)
	first := m.crossSigningCmd()
	if m.bootstrap {
		first = m.bootstrapCmd()
	}
	return tea.Batch(
		waitForUpdate(m.backend.Updates()),
		first,
		m.spinner.Tick,
		components.ToastTickCmd(),
	)
}

// Close cancels outstanding requests and closes the backend.
func (m Model) Close() error {
	m.cancel()
	return m.backend.Close()
}

// ApplyConfig switches to a reloaded configuration.
func (m *Model) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	themeChanged := styles.NormalizeMode(cfg.UI.Theme) != styles.NormalizeMode(m.cfg.UI.Theme)
	m.cfg = cfg
	m.notify.setEnabled(cfg.UI.Notifications)
	if themeChanged {
		m.theme = styles.NewTheme(cfg.UI.Theme)
		m.header.SetTheme(m.theme)
		m.status.SetTheme(m.theme)
	}
	// Inline art depends on the theme and the configured width.
	m.images = make(map[string]string)
	m.imageData = make(map[string][]byte)
	m.layout()
	m.refreshTimeline()
}

// Rooms exposes the sidebar state for the app and tests.
func (m Model) Rooms() *state.RoomList { return m.rooms }

// Timeline exposes the open room's timeline.
func (m Model) Timeline() *state.Timeline { return m.timeline }

// Toasts returns the active notices.
func (m Model) Toasts() []components.Toast { return m.toasts.Toasts() }

func (m Model) settings() session.Settings {
	return session.Settings{
		SortMode:          m.rooms.SortMode(),
		SectionsCollapsed: m.rooms.Collapsed(),
	}
}
