// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

func TestHeader_View(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	h.SetWidth(80)
	h.RoomName = "Matrix HQ"
	h.Topic = "Welcome\nsecond line"
	h.UserID = "@me:example.org"
	h.CrossSigning = model.CrossSigningVerified

	out := h.View()
	assert.Contains(t, out, "Matrix HQ")
	assert.Contains(t, out, "Welcome")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "🔒")
	assert.Contains(t, out, "@me:example.org")
	assert.LessOrEqual(t, lipgloss.Width(out), 80)
}

func TestHeader_NoRoom(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	assert.Contains(t, h.View(), appTitle)
}

func TestStatusBar_DropsHintsThatDoNotFit(t *testing.T) {
	s := NewStatusBar(styles.NewTheme("dark"))
	s.Status = "Connected"
	s.Hints = []KeyHint{{"tab", "focus"}, {"ctrl+k", "search"}, {"?", "help"}}

	s.SetWidth(100)
	wide := s.View()
	assert.Contains(t, wide, "help")

	s.SetWidth(30)
	narrow := s.View()
	assert.Contains(t, narrow, "Connected")
	assert.NotContains(t, narrow, "help")
	assert.LessOrEqual(t, lipgloss.Width(strings.Split(narrow, "\n")[0]), 30)
}
