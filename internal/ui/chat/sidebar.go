// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cosmic-matrix/internal/state"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const (
	markerDM        = "@"
	markerEncrypted = "🔒"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// renderSidebar draws the filter line and the visible room rows into a
// box of exactly width x height cells, borders included.
func (m Model) renderSidebar(width, height int) string {
	style := m.theme.Sidebar
	if m.focus == focusSidebar && m.panel == panelNone {
		style = m.theme.SidebarFocused
	}
	inner := width - style.GetHorizontalFrameSize()
	if inner < 4 || height < 1 {
		return ""
	}

	lines := []string{m.renderFilterLine(inner)}
	rows := m.rooms.Rows()
	visible := height - 1
	if len(rows) == 0 {
		msg := "No rooms yet"
		if m.rooms.Filter() != "" {
			msg = "No matching rooms"
		} else if m.syncing {
			msg = m.spinner.View() + " Syncing…"
		}
		lines = append(lines, m.theme.Muted.Render(util.TruncateWidth(msg, inner)))
	}

	start := scrollStart(m.rooms.Cursor(), len(rows), visible)
	sections := sectionUnread(m.rooms.Sections())
	for i := start; i < len(rows) && i < start+visible; i++ {
		lines = append(lines, m.renderRow(rows[i], i == m.rooms.Cursor(), inner, sections))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return style.Width(inner).Height(height).Render(strings.Join(lines, "\n"))
}

// scrollStart returns the first row to draw so the cursor stays visible.
func scrollStart(cursor, total, visible int) int {
	if visible <= 0 || total <= visible {
		return 0
	}
	start := cursor - visible/2
	if start < 0 {
		start = 0
	}
	if start > total-visible {
		start = total - visible
	}
	return start
}

func (m Model) renderFilterLine(width int) string {
	if m.searching {
		m.search.Width = width - lipgloss.Width(m.search.Prompt) - 1
		return m.search.View()
	}
	if f := m.rooms.Filter(); f != "" {
		return m.theme.Search.Render(util.TruncateWidth("/ "+f, width))
	}
	hint := fmt.Sprintf("C-k filter · %s", m.rooms.SortMode().Label())
	return m.theme.Muted.Render(util.TruncateWidth(hint, width))
}

type unreadTotals struct {
	unread   int
	mentions int
}

func sectionUnread(sections []state.Section) map[string]unreadTotals {
	out := make(map[string]unreadTotals, len(sections))
	for _, s := range sections {
		var t unreadTotals
		for _, r := range s.Rooms {
			t.unread += r.UnreadCount
			t.mentions += r.MentionCount
		}
		out[s.Key] = t
	}
	return out
}

func (m Model) renderRow(row state.Row, cursor bool, width int, totals map[string]unreadTotals) string {
	focused := cursor && (m.focus == focusSidebar || m.searching)
	if row.Header {
		arrow := "▾"
		if m.rooms.IsCollapsed(row.Section) {
			arrow = "▸"
		}
		label := arrow + " " + state.SectionLabel(row.Section)
		badge := ""
		if t := totals[row.Section]; m.rooms.IsCollapsed(row.Section) && t.unread > 0 {
			badge = m.badge(t.unread, t.mentions)
		}
		line := m.fit(m.theme.SectionHeader.Render(label), badge, width)
		if focused {
			return m.theme.RoomCursor.Width(width).Render(line)
		}
		return line
	}

	r := row.Room
	prefix := m.theme.AvatarFor(r.RoomID, r.AvatarLetter()) + " "
	name := r.Name
	if r.IsDM {
		name = markerDM + name
	}
	if r.IsEncrypted {
		name += " " + markerEncrypted
	}
	nameStyle := m.theme.RoomRow
	if r.HasUnread() {
		nameStyle = m.theme.RoomUnread
	}
	badge := ""
	if r.UnreadCount > 0 || r.MentionCount > 0 {
		badge = m.badge(r.UnreadCount, r.MentionCount)
	}
	room := nameStyle.Render(util.TruncateWidth(name, width-lipgloss.Width(prefix)-lipgloss.Width(badge)-1))
	line := m.fit(prefix+room, badge, width)

	switch {
	case r.RoomID == m.rooms.Selected():
		return m.theme.RoomSelected.Width(width).Render(line)
	case focused:
		return m.theme.RoomCursor.Width(width).Render(line)
	}
	return line
}

func (m Model) badge(unread, mentions int) string {
	if mentions > 0 {
		return m.theme.MentionBadge.Render(fmt.Sprintf("@%d", mentions))
	}
	if unread > 99 {
		return m.theme.Badge.Render("99+")
	}
	return m.theme.Badge.Render(fmt.Sprintf("%d", unread))
}

// fit places right at the end of a width-wide line that starts with left.
func (m Model) fit(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}
