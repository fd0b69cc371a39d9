// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"dark", ModeDark},
		{" Light ", ModeLight},
		{"auto", ModeAuto},
		{"", ModeAuto},
		{"solarized", ModeAuto},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMode(tt.in), "mode %q", tt.in)
	}
}

func TestNewTheme_PinnedModes(t *testing.T) {
	dark := NewTheme("dark")
	assert.True(t, dark.IsDark)
	assert.Equal(t, ModeDark, dark.Mode)

	light := NewTheme("light")
	assert.False(t, light.IsDark)
	assert.Equal(t, ModeLight, light.Mode)

	assert.Contains(t, light.HeaderTitle.Render("room"), "room")
}

func TestSenderColor_Stable(t *testing.T) {
	a := SenderColor("@alice:example.org")
	assert.Equal(t, a, SenderColor("@alice:example.org"))
	assert.Equal(t, SenderPalette[model.SenderColorIndex("@alice:example.org")], a)
	assert.Len(t, SenderPalette, model.SenderPaletteSize)
}

func TestLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	theme.SetSize(60, 20)
	assert.Equal(t, LayoutNarrow, theme.GetLayoutMode())
	theme.SetSize(120, 40)
	assert.Equal(t, LayoutWide, theme.GetLayoutMode())
}
