// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts t to Markdown with YAML front matter.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	msgs := t.Messages()
	if len(msgs) == 0 {
		return nil, ErrEmpty
	}

	title := t.RoomName
	if title == "" {
		title = t.RoomID
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
	fmt.Fprintf(&sb, "room_id: %s\n", escapeYAML(t.RoomID))
	fmt.Fprintf(&sb, "encrypted: %t\n", t.Encrypted)
	fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
	fmt.Fprintf(&sb, "exported: %s\n", t.ExportedAt.Format(time.RFC3339))
	sb.WriteString("generator: cosmic-matrix\n")
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))
	if t.Topic != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", escapeMarkdown(t.Topic))
	}

	for _, it := range t.Items {
		switch it.Kind {
		case model.ItemDateSeparator:
			fmt.Fprintf(&sb, "## %s\n\n", it.Text)
		case model.ItemStateEvent:
			if e.options.IncludeState {
				fmt.Fprintf(&sb, "_%s_\n\n", escapeMarkdown(it.Text))
			}
		case model.ItemMessage:
			if it.Message != nil {
				e.writeMessage(&sb, it.Message)
			}
		}
	}

	fmt.Fprintf(&sb, "---\n\n*Exported from cosmic-matrix on %s*\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) writeMessage(sb *strings.Builder, m *model.Message) {
	name := escapeMarkdown(senderName(m))
	if m.IsEmote {
		fmt.Fprintf(sb, "\\* **%s** %s", name, strings.TrimSpace(m.Body))
		e.writeTime(sb, m)
		sb.WriteString("\n\n")
		return
	}

	fmt.Fprintf(sb, "**%s**", name)
	e.writeTime(sb, m)
	if m.Edited {
		sb.WriteString(" _(edited)_")
	}
	sb.WriteString("\n\n")

	if m.HasReply() {
		who := m.ReplyToSender
		if who == "" {
			who = "message"
		}
		quote := strings.TrimSpace(m.ReplyToBody)
		fmt.Fprintf(sb, "> **%s**: %s\n\n", escapeMarkdown(who), strings.ReplaceAll(quote, "\n", "\n> "))
	}

	sb.WriteString(formatBody(m))
	sb.WriteString("\n\n")
}

func (e *MarkdownExporter) writeTime(sb *strings.Builder, m *model.Message) {
	if e.options.IncludeTimestamps && !m.TS.IsZero() {
		fmt.Fprintf(sb, " <sub>%s</sub>", formatShortTimestamp(m.TS))
	}
}

// formatBody renders the content. Bodies are already Markdown.
func formatBody(m *model.Message) string {
	switch {
	case m.Undecryptable:
		return "_Unable to decrypt this message_"
	case m.Image != nil:
		return "![" + attachmentName(m.Image, m.Body) + "](" + m.Image.URI + ")" + encryptedNote(m.Image)
	case m.File != nil:
		return "📎 [" + attachmentName(m.File, m.Body) + "](" + m.File.URI + ")" + encryptedNote(m.File)
	case m.IsNotice:
		return "_" + strings.TrimSpace(m.Body) + "_"
	default:
		return strings.TrimSpace(m.Body)
	}
}

func attachmentName(src *model.MediaSource, body string) string {
	if src.Name != "" {
		return escapeMarkdown(src.Name)
	}
	return escapeMarkdown(body)
}

func encryptedNote(src *model.MediaSource) string {
	if src.Encrypted() {
		return " _(encrypted)_"
	}
	return ""
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

var markdownEscaper = strings.NewReplacer(
	"#", "\\#", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]",
)

// escapeMarkdown escapes characters that break headings and emphasis.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// escapeYAML quotes s when it contains characters YAML treats specially.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return `"` + s + `"`
	}
	return s
}
