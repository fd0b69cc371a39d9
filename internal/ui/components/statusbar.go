// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// KeyHint is one "key description" pair on the right of the bar.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: connection state on the left, key hints
// on the right.
type StatusBar struct {
	Status string
	Hints  []KeyHint

	Width int
	theme *styles.Theme
}

// NewStatusBar creates a status bar for theme.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, Width: 80}
}

func (s *StatusBar) SetWidth(width int)           { s.Width = width }
func (s *StatusBar) SetTheme(theme *styles.Theme) { s.theme = theme }

func (s *StatusBar) hints(maxWidth int) string {
	var b strings.Builder
	width := 0
	for _, h := range s.Hints {
		part := s.theme.StatusKey.Render(h.Key) + s.theme.StatusBar.UnsetPadding().Render(" "+h.Desc)
		w := lipgloss.Width(part) + 2
		if width+w > maxWidth {
			break
		}
		if width > 0 {
			b.WriteString(s.theme.StatusBar.UnsetPadding().Render("  "))
		}
		b.WriteString(part)
		width += w
	}
	return b.String()
}

// View renders the bar on one line. Hints that do not fit are dropped from
// the end.
func (s *StatusBar) View() string {
	inner := s.Width - s.theme.StatusBar.GetHorizontalFrameSize()
	if inner < 1 {
		inner = 1
	}
	status := util.TruncateWidth(s.Status, inner)
	hints := s.hints(inner - lipgloss.Width(status) - 2)

	gap := inner - lipgloss.Width(status) - lipgloss.Width(hints)
	if gap < 0 {
		gap = 0
	}
	return s.theme.StatusBar.Width(s.Width).Render(status + strings.Repeat(" ", gap) + hints)
}
