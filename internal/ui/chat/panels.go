// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/ui/components"
)

// =============================================================================
// PANELS
// =============================================================================

// renderPanel draws the open panel centred in a width x height area.
func (m Model) renderPanel(width, height int) string {
	var content string
	switch m.panel {
	case panelVerification:
		content = m.renderVerification(width)
	case panelProfile:
		content = m.renderProfile(width)
	case panelHelp:
		content = m.renderHelp(width)
	case panelImage:
		content = m.renderImagePreview(width, height)
	}
	box := m.theme.Panel.MaxWidth(width).Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderButtons() string {
	buttons := m.panelButtons()
	out := make([]string, len(buttons))
	for i, b := range buttons {
		style := m.theme.Button
		if i == m.button {
			style = m.theme.ButtonFocused
		}
		if m.busy && b.action != actionClose {
			style = m.theme.ButtonDisabled
		}
		out[i] = style.Render(b.label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(out, " "))
}

// =============================================================================
// VERIFICATION
// =============================================================================

func (m Model) renderVerification(width int) string {
	title := m.theme.PanelTitle.Render("Device verification")
	v := m.verification
	var lines []string

	switch {
	case m.request != nil && (v == nil || v.Finished()):
		r := m.request
		lines = append(lines,
			"Incoming verification request",
			m.theme.Label.Render("from ")+r.FromUser,
			m.theme.Label.Render("device ")+r.FromDevice,
		)
	case v == nil:
		lines = append(lines, m.theme.Muted.Render("No verification in progress"))
	default:
		headline := v.Headline()
		switch v.Phase {
		case model.VerificationDone:
			headline = m.theme.Success.Render(headline)
		case model.VerificationCancelled:
			headline = m.theme.Warning.Render(headline)
		}
		lines = append(lines, headline)
		if v.OtherDevice != "" {
			lines = append(lines, m.theme.Label.Render("with ")+v.OtherUser+" / "+v.OtherDevice)
		}
		if v.Phase == model.VerificationShowingEmoji && len(v.Emojis) > 0 {
			lines = append(lines, "", m.renderEmojiGrid(v.Emojis, width))
		}
	}

	lines = append(lines, "", m.renderButtons(),
		m.theme.Muted.Render("←/→ choose · enter select · esc close"))
	return title + "\n" + strings.Join(lines, "\n")
}

// renderEmojiGrid lays the SAS emoji out in rows that fit width.
func (m Model) renderEmojiGrid(emojis []model.SasEmoji, width int) string {
	cellWidth := m.theme.Emoji.GetWidth()
	perRow := (width - m.theme.Panel.GetHorizontalFrameSize()) / cellWidth
	if perRow < 1 {
		perRow = 1
	}
	if perRow > len(emojis) {
		perRow = len(emojis)
	}
	var rows []string
	for start := 0; start < len(emojis); start += perRow {
		end := start + perRow
		if end > len(emojis) {
			end = len(emojis)
		}
		cells := make([]string, 0, end-start)
		for _, e := range emojis[start:end] {
			cells = append(cells, lipgloss.JoinVertical(lipgloss.Center,
				m.theme.Emoji.Render(e.Symbol),
				m.theme.EmojiLabel.Render(e.Description)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// =============================================================================
// PROFILE
// =============================================================================

func (m Model) renderProfile(width int) string {
	title := m.theme.PanelTitle.Render("Profile")
	p := m.profile
	if p.UserID == "" {
		p.UserID = m.backend.UserID()
		p.DeviceID = m.backend.DeviceID()
	}

	avatar := m.profileAvatar
	if avatar == "" {
		avatar = m.theme.AvatarFor(p.UserID, model.AvatarLetter(p.Name()))
	}
	status := m.crossSigning.Icon() + " " + m.crossSigning.String()
	details := strings.Join([]string{
		m.theme.HeaderTitle.Render(p.Name()),
		m.theme.Label.Render("user   ") + p.UserID,
		m.theme.Label.Render("device ") + p.DeviceID,
		m.theme.Label.Render("keys   ") + status,
	}, "\n")

	var top string
	if width >= profileAvatarWidth+40 {
		top = lipgloss.JoinHorizontal(lipgloss.Top, avatar, "  ", details)
	} else {
		top = avatar + "\n" + details
	}

	lines := []string{title, top, ""}
	switch {
	case m.editingAvatar:
		m.pathIn.Width = width - 16
		lines = append(lines, m.pathIn.View(), m.theme.Muted.Render("enter upload · esc cancel"))
	case m.busy:
		lines = append(lines, m.spinner.View()+" Working…", m.renderButtons())
	default:
		lines = append(lines, m.renderButtons(),
			m.theme.Muted.Render("←/→ choose · enter select · esc close"))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// HELP AND IMAGE
// =============================================================================

func (m Model) renderHelp(width int) string {
	h := m.help
	h.Width = width - m.theme.Panel.GetHorizontalFrameSize()
	h.ShowAll = true

	var cmds []string
	for _, c := range slashHelp {
		cmds = append(cmds, m.theme.StatusKey.Width(24).Render(c.Key)+" "+c.Desc)
	}
	return m.theme.PanelTitle.Render("Keys") + "\n" +
		h.View(m.keys) + "\n\n" +
		m.theme.PanelTitle.Render("Commands") + "\n" +
		strings.Join(cmds, "\n")
}

func (m Model) renderImagePreview(width, height int) string {
	msg := m.previewMessage()
	if msg == nil {
		return m.theme.Muted.Render("Image not available")
	}
	title := m.theme.PanelTitle.Render(msg.Image.Name)
	data, ok := m.imageData[msg.EventID]
	if !ok {
		return title + "\n" + m.spinner.View() + " Loading…"
	}
	cols := width - m.theme.Panel.GetHorizontalFrameSize()
	// Two pixel rows per cell; leave room for the title and border.
	if maxRows := height - 6; maxRows > 0 && msg.Image.Width > 0 && msg.Image.Height > 0 {
		if _, rows := components.ImageSize(msg.Image.Width, msg.Image.Height, cols); rows > maxRows {
			cols = cols * maxRows / rows
		}
	}
	art, err := components.RenderImage(data, cols, m.theme.ColorProfile)
	if err != nil {
		return title + "\n" + m.theme.Muted.Render(err.Error())
	}
	return title + "\n" + art
}

func (m Model) previewMessage() *model.Message {
	for _, msg := range m.timeline.Messages() {
		if msg.EventID == m.preview && msg.Image != nil {
			return msg
		}
	}
	return nil
}

// keyHints converts bindings to status bar hints.
func keyHints(bindings []key.Binding) []components.KeyHint {
	hints := make([]components.KeyHint, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, components.KeyHint{Key: h.Key, Desc: h.Desc})
	}
	return hints
}
