// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Accent is used for the selection, focus rings and the brand.
var Accent = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}

// AccentDeep - selected row background
var AccentDeep = lipgloss.AdaptiveColor{Light: "#EDE9FE", Dark: "#3B2F63"}

// Info - links, informational toasts
var Info = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#38BDF8"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

var (
	Success = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	Warning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	Danger  = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"}
)

// Mention badges stand out from plain unread counts.
var (
	UnreadBadge  = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#585B70"}
	MentionBadge = Danger
)

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var (
	Surface       = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
	SurfaceDim    = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#181825"}
	SurfaceBright = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#313244"}
	Border        = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
)

// =============================================================================
// SENDER PALETTE
// =============================================================================

// SenderPalette is indexed by model.SenderColorIndex. Order matters: it is
// the order the hash was defined against.
var SenderPalette = [model.SenderPaletteSize]lipgloss.AdaptiveColor{
	{Light: "#0284C7", Dark: "#7DD3FC"}, // sky blue
	{Light: "#E05A47", Dark: "#FF8A7A"}, // coral
	{Light: "#4D7C0F", Dark: "#A3C293"}, // sage
	{Light: "#7C3AED", Dark: "#C4B5FD"}, // lavender
	{Light: "#B45309", Dark: "#FCD34D"}, // amber
	{Light: "#0F766E", Dark: "#5EEAD4"}, // teal
	{Light: "#BE185D", Dark: "#F9A8D4"}, // rose
	{Light: "#65A30D", Dark: "#BEF264"}, // lime
}

// SenderColor returns the colour of userID.
func SenderColor(userID string) lipgloss.AdaptiveColor {
	return SenderPalette[model.SenderColorIndex(userID)]
}

// =============================================================================
// INDICATORS
// =============================================================================

// Indicators are ASCII so they survive any terminal font.
var Indicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}
