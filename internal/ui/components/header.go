// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

const appTitle = "cosmic-matrix"

// Header is the top bar: selected room on the left, own account on the
// right.
type Header struct {
	RoomName     string
	Topic        string
	Encrypted    bool
	UserID       string
	CrossSigning model.CrossSigningStatus
	Syncing      bool

	Width int
	theme *styles.Theme
}

// NewHeader creates a header for theme.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{theme: theme, Width: 80}
}

func (h *Header) SetWidth(width int)           { h.Width = width }
func (h *Header) SetTheme(theme *styles.Theme) { h.theme = theme }

func (h *Header) right() string {
	var parts []string
	if h.Syncing {
		parts = append(parts, h.theme.Muted.Render("syncing…"))
	}
	if h.UserID != "" {
		parts = append(parts, h.CrossSigning.Icon()+" "+h.theme.HeaderUser.Render(h.UserID))
	}
	return strings.Join(parts, "  ")
}

func (h *Header) left(maxWidth int) string {
	title := h.RoomName
	if title == "" {
		title = appTitle
	}
	if h.Encrypted {
		title += " [e2e]"
	}
	title = util.TruncateWidth(title, maxWidth)
	out := h.theme.HeaderTitle.Render(title)

	remaining := maxWidth - lipgloss.Width(title) - 3
	if topic := util.FirstLine(h.Topic); topic != "" && remaining > 8 {
		out += h.theme.Muted.Render(" · ") + h.theme.HeaderTopic.Render(util.TruncateWidth(topic, remaining))
	}
	return out
}

// View renders the header on one line.
func (h *Header) View() string {
	inner := h.Width - h.theme.Header.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}
	right := h.right()
	leftWidth := inner - lipgloss.Width(right) - 2
	if leftWidth < 10 {
		right = ""
		leftWidth = inner
	}
	left := h.left(leftWidth)

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(h.Width).Render(left + strings.Repeat(" ", gap) + right)
}
