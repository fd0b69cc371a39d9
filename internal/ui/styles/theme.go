// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds the styles of every view.
type Theme struct {
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderTopic lipgloss.Style
	HeaderUser  lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar        lipgloss.Style
	SidebarFocused lipgloss.Style
	Search         lipgloss.Style
	SectionHeader  lipgloss.Style
	RoomRow        lipgloss.Style
	RoomCursor     lipgloss.Style
	RoomSelected   lipgloss.Style
	RoomUnread     lipgloss.Style
	Badge          lipgloss.Style
	MentionBadge   lipgloss.Style
	Avatar         lipgloss.Style

	// ==========================================================================
	// TIMELINE
	// ==========================================================================

	Timestamp       lipgloss.Style
	Body            lipgloss.Style
	Emote           lipgloss.Style
	Notice          lipgloss.Style
	Undecryptable   lipgloss.Style
	Edited          lipgloss.Style
	ReplyQuote      lipgloss.Style
	DateSeparator   lipgloss.Style
	StateEvent      lipgloss.Style
	UnreadMarker    lipgloss.Style
	LoadMore        lipgloss.Style
	SelectedMessage lipgloss.Style
	Attachment      lipgloss.Style
	CodeBlock       lipgloss.Style

	// ==========================================================================
	// COMPOSER AND STATUS
	// ==========================================================================

	Composer        lipgloss.Style
	ComposerFocused lipgloss.Style
	Prompt          lipgloss.Style
	ReplyBanner     lipgloss.Style
	StatusBar       lipgloss.Style
	StatusKey       lipgloss.Style

	// ==========================================================================
	// PANELS AND DIALOGS
	// ==========================================================================

	Panel          lipgloss.Style
	PanelTitle     lipgloss.Style
	Banner         lipgloss.Style
	Button         lipgloss.Style
	ButtonFocused  lipgloss.Style
	ButtonDisabled lipgloss.Style
	Emoji          lipgloss.Style
	EmojiLabel     lipgloss.Style
	Label          lipgloss.Style

	// ==========================================================================
	// GENERIC TEXT
	// ==========================================================================

	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	InfoText lipgloss.Style
}

// NormalizeMode maps a configured theme name to one of the Mode constants.
func NormalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDark:
		return ModeDark
	case ModeLight:
		return ModeLight
	default:
		return ModeAuto
	}
}

// NewTheme builds the styles for mode. "auto" asks the terminal for its
// background colour; the other modes pin lipgloss to one side of every
// AdaptiveColor.
func NewTheme(mode string) *Theme {
	mode = NormalizeMode(mode)
	t := &Theme{
		Mode:         mode,
		ColorProfile: termenv.ColorProfile(),
	}
	switch mode {
	case ModeDark:
		t.IsDark = true
	case ModeLight:
		t.IsDark = false
	default:
		t.IsDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(t.IsDark)

	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.HeaderTopic = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.HeaderUser = lipgloss.NewStyle().Foreground(Accent)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Border).
		PaddingRight(1)
	t.SidebarFocused = t.Sidebar.BorderForeground(Accent)
	t.Search = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SectionHeader = lipgloss.NewStyle().Bold(true).Foreground(TextMuted)
	t.RoomRow = lipgloss.NewStyle().Foreground(TextSecondary)
	t.RoomCursor = lipgloss.NewStyle().Background(SurfaceBright).Foreground(TextPrimary)
	t.RoomSelected = lipgloss.NewStyle().Background(AccentDeep).Foreground(TextPrimary).Bold(true)
	t.RoomUnread = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	t.Badge = lipgloss.NewStyle().Foreground(TextInverse).Background(UnreadBadge).Padding(0, 1)
	t.MentionBadge = t.Badge.Background(MentionBadge).Bold(true)
	t.Avatar = lipgloss.NewStyle().Bold(true).Foreground(TextInverse).Padding(0, 1)

	// Timeline
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Emote = lipgloss.NewStyle().Foreground(TextPrimary).Italic(true)
	t.Notice = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Undecryptable = lipgloss.NewStyle().Foreground(Warning).Italic(true)
	t.Edited = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.ReplyQuote = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Border).
		PaddingLeft(1)
	t.DateSeparator = lipgloss.NewStyle().Foreground(TextMuted).Bold(true)
	t.StateEvent = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.UnreadMarker = lipgloss.NewStyle().Foreground(Danger)
	t.LoadMore = lipgloss.NewStyle().Foreground(Info).Underline(true)
	t.SelectedMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Accent)
	t.Attachment = lipgloss.NewStyle().Foreground(Info)
	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	// Composer and status
	t.Composer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.ComposerFocused = t.Composer.BorderForeground(Accent)
	t.Prompt = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.ReplyBanner = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Foreground(Accent).Background(SurfaceDim).Bold(true)

	// Panels
	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Padding(1, 2)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1)
	t.Banner = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(AccentDeep).
		Padding(0, 1)
	t.Button = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceBright).
		Padding(0, 2)
	t.ButtonFocused = t.Button.Foreground(TextInverse).Background(Accent).Bold(true)
	t.ButtonDisabled = t.Button.Foreground(TextMuted)
	t.Emoji = lipgloss.NewStyle().Width(12).Align(lipgloss.Center)
	t.EmojiLabel = lipgloss.NewStyle().Width(12).Align(lipgloss.Center).Foreground(TextSecondary)
	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)

	// Generic
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Error = lipgloss.NewStyle().Foreground(Danger).Bold(true)
	t.Success = lipgloss.NewStyle().Foreground(Success)
	t.Warning = lipgloss.NewStyle().Foreground(Warning)
	t.InfoText = lipgloss.NewStyle().Foreground(Info)
}

// Sender is the bold name style for userID.
func (t *Theme) Sender(userID string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(SenderColor(userID))
}

// AvatarFor renders a one-letter avatar coloured like the sender.
func (t *Theme) AvatarFor(id, letter string) string {
	return t.Avatar.Background(SenderColor(id)).Render(letter)
}

// SetSize updates the dimensions used for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode is the responsive layout picked from the terminal width.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 70 columns, sidebar or timeline only
	LayoutWide
)

// GetLayoutMode returns the layout for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 70 {
		return LayoutNarrow
	}
	return LayoutWide
}
