// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/ui/components"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const (
	bodyIndent   = 2
	replyPreview = 80
)

// =============================================================================
// VIEWPORT CONTENT
// =============================================================================

// refreshTimeline re-renders the open room into the viewport, following
// the newest message when the view was at the bottom.
func (m *Model) refreshTimeline() {
	content, offsets := m.renderTimeline(m.viewport.Width)
	m.offsets = offsets
	m.viewport.SetContent(content)
	if m.timeline.AtBottom {
		m.viewport.GotoBottom()
	}
}

// ensureCursorVisible scrolls so the selected message is on screen.
func (m *Model) ensureCursorVisible() {
	if m.msgCursor < 0 || m.msgCursor >= len(m.offsets) {
		return
	}
	top := m.offsets[m.msgCursor]
	if top < m.viewport.YOffset || top >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(top - m.viewport.Height/3)
	}
}

func (m *Model) renderTimeline(width int) (string, []int) {
	if width < 10 {
		width = 10
	}
	t := m.timeline
	switch {
	case t.RoomID == "":
		return m.theme.Muted.Render("Select a room from the sidebar"), nil
	case t.Loading && len(t.Items) == 0:
		return m.spinner.View() + " Loading…", nil
	}

	var (
		b       strings.Builder
		lines   int
		offsets []int
	)
	write := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
		lines += lipgloss.Height(s)
	}

	switch {
	case t.Loading:
		write(m.theme.LoadMore.Render(m.spinner.View() + " Loading…"))
	case t.PaginationToken != "":
		write(m.theme.LoadMore.Render("↑ Load more"))
	default:
		write(m.theme.Muted.Render("Beginning of conversation"))
	}

	for _, item := range t.Items {
		switch item.Kind {
		case model.ItemDateSeparator:
			write(m.rule(item.Text, m.theme.DateSeparator, width))
		case model.ItemUnreadMarker:
			write(m.rule("new messages", m.theme.UnreadMarker, width))
		case model.ItemStateEvent:
			write(m.theme.StateEvent.Render(wordwrap.String("• "+item.Text, width)))
		case model.ItemMessage:
			if item.Message == nil {
				continue
			}
			selected := m.focus == focusTimeline && len(offsets) == m.msgCursor
			offsets = append(offsets, lines)
			write(m.renderMessage(item.Message, selected, width))
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), offsets
}

// rule centres label on a horizontal line.
func (m *Model) rule(label string, style lipgloss.Style, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(" "+label+" "),
		lipgloss.WithWhitespaceChars("─"),
		lipgloss.WithWhitespaceForeground(styles.Border))
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Model) renderMessage(msg *model.Message, selected bool, width int) string {
	inner := width - 1
	bodyWidth := inner - bodyIndent
	var parts []string

	if !msg.IsContinuation {
		avatar := m.theme.AvatarFor(msg.Sender, model.AvatarLetter(msg.SenderDisplay))
		name := m.theme.Sender(msg.Sender).Render(msg.SenderDisplay)
		parts = append(parts, avatar+" "+name+" "+m.theme.Timestamp.Render(m.formatTime(msg)))
	}
	if msg.HasReply() {
		parts = append(parts, indent.String(m.renderReplyQuote(msg, bodyWidth), bodyIndent))
	}
	body := m.renderBody(msg, bodyWidth)
	if msg.Edited {
		body += " " + m.theme.Edited.Render("(edited)")
	}
	parts = append(parts, indent.String(body, bodyIndent))

	block := strings.Join(parts, "\n")
	if selected {
		return m.theme.SelectedMessage.Render(block)
	}
	return indent.String(block, 1)
}

func (m *Model) formatTime(msg *model.Message) string {
	if !msg.TS.IsZero() && m.cfg.UI.TimeFormat != "" {
		return msg.TS.Format(m.cfg.UI.TimeFormat)
	}
	return msg.Timestamp
}

// renderReplyQuote shows the replied-to message, preferring the loaded
// original over the fallback text embedded in the reply.
func (m *Model) renderReplyQuote(msg *model.Message, width int) string {
	sender, body := msg.ReplyToSender, msg.ReplyToBody
	if i := model.FindMessage(m.timeline.Items, msg.ReplyToEventID); i >= 0 {
		orig := m.timeline.Items[i].Message
		sender, body = orig.SenderDisplay, orig.Body
	} else if strings.HasPrefix(sender, "@") {
		sender = model.Localpart(sender)
	}
	text := "In reply to a message"
	if sender != "" {
		text = sender + ": " + util.Preview(util.FirstLine(body), replyPreview)
	}
	return m.theme.ReplyQuote.Render(util.TruncateWidth(text, width-2))
}

func (m *Model) renderBody(msg *model.Message, width int) string {
	switch {
	case msg.Undecryptable:
		return m.theme.Undecryptable.Render(msg.Body)
	case msg.Image != nil:
		return m.renderImageBody(msg)
	case msg.File != nil:
		line := "📎 " + msg.Body
		if msg.File.Size > 0 {
			line += " (" + formatSize(msg.File.Size) + ")"
		}
		return m.theme.Attachment.Render(hardWrap(line, width)) + m.theme.Muted.Render("  [o] save")
	case msg.IsEmote:
		return m.theme.Emote.Render(hardWrap("* "+msg.SenderDisplay+" "+msg.Body, width))
	case msg.IsNotice:
		return m.theme.Notice.Render(hardWrap(msg.Body, width))
	case m.cfg.UI.RenderMarkdown:
		return m.markdown.Render(m.theme, msg.Body, width)
	}
	return components.RenderFences(m.theme, msg.Body, width)
}

func (m *Model) renderImageBody(msg *model.Message) string {
	label := m.theme.Attachment.Render("🖼 " + msg.Image.Name)
	if !m.cfg.UI.ShowImages {
		return label + m.theme.Muted.Render("  [o] open")
	}
	if m.fetching[msg.EventID] {
		return label + m.theme.Muted.Render("  loading…")
	}
	if art := m.images[msg.EventID]; art != "" {
		return art + "\n" + label
	}
	return label + m.theme.Muted.Render("  [o] open")
}

// hardWrap wraps at word boundaries and breaks words longer than width.
func hardWrap(s string, width int) string {
	if width < 1 {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}

func formatSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
