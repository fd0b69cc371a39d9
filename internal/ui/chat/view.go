// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jeranaias/cosmic-matrix/internal/ui/components"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const (
	composerHeight = 3 // one input line inside a border
	chromeHeight   = 2 // header and status bar
	toastWidth     = 48

	ansiReset = "\x1b[0m"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) narrow() bool {
	return m.theme.GetLayoutMode() == styles.LayoutNarrow
}

// showSidebar reports whether the sidebar is drawn. The narrow layout
// shows either the sidebar or the timeline.
func (m Model) showSidebar() bool {
	return !m.narrow() || m.focus == focusSidebar || m.searching
}

func (m Model) sidebarWidth() int {
	if m.narrow() {
		return m.width
	}
	w := m.cfg.UI.SidebarWidth
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > m.width/2 {
		w = m.width / 2
	}
	return w
}

func (m Model) mainWidth() int {
	if m.narrow() {
		return m.width
	}
	return m.width - m.sidebarWidth()
}

func (m Model) bodyHeight() int {
	h := m.height - chromeHeight - composerHeight - len(m.bannerLines())
	if h < 1 {
		h = 1
	}
	return h
}

// layout sizes the widgets for the current window.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	m.viewport.Width = m.mainWidth()
	m.viewport.Height = m.bodyHeight()
	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)

	w := m.width - m.theme.ComposerFocused.GetHorizontalFrameSize() - lipgloss.Width(m.composer.Prompt) - 1
	if w < 1 {
		w = 1
	}
	m.composer.Width = w
}

// syncLayout runs after every update: banners come and go, so the
// viewport height can change with any message.
func (m *Model) syncLayout() {
	if !m.ready {
		return
	}
	width, height := m.viewport.Width, m.viewport.Height
	m.layout()
	switch {
	case width != m.viewport.Width:
		m.refreshTimeline()
	case height != m.viewport.Height && m.timeline.AtBottom:
		m.viewport.GotoBottom()
	}
	m.refreshHeader()
	m.refreshStatus()
}

func (m *Model) refreshHeader() {
	room, ok := m.rooms.Room(m.rooms.Selected())
	if !ok {
		m.header.RoomName, m.header.Topic, m.header.Encrypted = "", "", false
		m.composer.Placeholder = "Select a room to start chatting"
		return
	}
	m.header.RoomName = room.Name
	m.header.Topic = room.Topic
	m.header.Encrypted = room.IsEncrypted
	m.composer.Placeholder = "Message " + room.Name
}

func (m *Model) refreshStatus() {
	switch {
	case m.timeline.AttachmentSending:
		m.status.Status = m.spinner.View() + " Uploading…"
	case m.timeline.Sending:
		m.status.Status = m.spinner.View() + " Sending…"
	case m.offline:
		m.status.Status = "Disconnected"
	case m.syncing:
		m.status.Status = m.spinner.View() + " Syncing…"
	default:
		m.status.Status = fmt.Sprintf("%d rooms", len(m.rooms.Rooms()))
	}
	m.status.Hints = keyHints(m.keys.hintsFor(m.focus))
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the main view.
func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}
	bodyH := m.bodyHeight()

	var body string
	if m.panel != panelNone {
		body = m.renderPanel(m.width, bodyH)
	} else {
		body = m.renderMain(bodyH)
	}
	body = m.overlayToasts(body)

	parts := []string{m.header.View(), body}
	parts = append(parts, m.bannerLines()...)
	parts = append(parts, m.renderComposer(), m.status.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderMain(height int) string {
	timeline := lipgloss.NewStyle().MaxHeight(height).Render(m.viewport.View())
	if m.narrow() {
		if m.showSidebar() {
			return m.renderSidebar(m.width, height)
		}
		return timeline
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(m.sidebarWidth(), height), timeline)
}

// bannerLines are the one-line notices between the body and the composer.
func (m Model) bannerLines() []string {
	var lines []string
	if r := m.request; r != nil && m.panel != panelVerification {
		text := fmt.Sprintf("Verification request from %s (%s)  [C-v] respond", r.FromUser, r.FromDevice)
		lines = append(lines, m.theme.Banner.Width(m.width).Render(util.TruncateWidth(text, m.width-2)))
	}
	if r := m.timeline.ReplyTo; r != nil {
		text := "Replying to " + r.SenderDisplay + ": " + util.Preview(util.FirstLine(r.Body), 60) + "  [esc] cancel"
		lines = append(lines, m.theme.ReplyBanner.Render(util.TruncateWidth(text, m.width)))
	}
	return lines
}

func (m Model) renderComposer() string {
	style := m.theme.Composer
	if m.focus == focusComposer && m.panel == panelNone {
		style = m.theme.ComposerFocused
	}
	return style.Width(m.width - style.GetHorizontalBorderSize()).Render(m.composer.View())
}

// overlayToasts draws the toast stack over the bottom lines of body.
func (m Model) overlayToasts(body string) string {
	toasts := m.toasts.Toasts()
	if len(toasts) == 0 {
		return body
	}
	width := toastWidth
	if width > m.width {
		width = m.width
	}
	stack := strings.Split(components.RenderToastStack(m.theme, toasts, width), "\n")
	lines := strings.Split(body, "\n")
	if len(stack) > len(lines) {
		stack = stack[len(stack)-len(lines):]
	}
	offset := len(lines) - len(stack)
	for i, s := range stack {
		avail := m.width - lipgloss.Width(s)
		if avail < 0 {
			avail = 0
		}
		left := truncate.String(lines[offset+i], uint(avail))
		if pad := avail - lipgloss.Width(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		lines[offset+i] = left + ansiReset + s
	}
	return strings.Join(lines, "\n")
}
