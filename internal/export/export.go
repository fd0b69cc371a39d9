// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

// ErrUnknownFormat is returned by ForFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// ErrEmpty is returned when a transcript has no messages.
var ErrEmpty = errors.New("nothing to export")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Transcript is the loaded timeline of one room.
type Transcript struct {
	RoomID     string
	RoomName   string
	Topic      string
	Encrypted  bool
	Items      []model.TimelineItem
	ExportedAt time.Time
}

// Messages returns the message items in order.
func (t *Transcript) Messages() []*model.Message {
	var out []*model.Message
	for _, it := range t.Items {
		if it.Kind == model.ItemMessage && it.Message != nil {
			out = append(out, it.Message)
		}
	}
	return out
}

// Exporter converts a transcript to one file format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeTimestamps adds the send time to every message.
	IncludeTimestamps bool
	// IncludeState keeps membership and room changes.
	IncludeState bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeTimestamps: true,
		IncludeState:      true,
	}
}

// ForFormat returns the exporter for name: "md", "markdown" or "json".
// An empty name selects Markdown.
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w %q (use md or json)", ErrUnknownFormat, name)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports t into dir and returns the written path. The file is
// readable by the owner only.
func ToFile(t *Transcript, exporter Exporter, dir string) (string, error) {
	if t.ExportedAt.IsZero() {
		t.ExportedAt = time.Now()
	}
	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	path := filepath.Join(dir, FileName(t, exporter.FileExtension()))
	if err := util.AtomicWriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// FileName names the export of t, e.g. "Team_chat_20250102_150405.md".
func FileName(t *Transcript, ext string) string {
	name := t.RoomName
	if name == "" {
		name = t.RoomID
	}
	return fmt.Sprintf("%s_%s%s", sanitizeFilename(name), t.ExportedAt.Format("20060102_150405"), ext)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-",
	"<", "-", ">", "-", "|", "-", "!", "-",
	" ", "_", "\t", "_", "\n", "_", "\r", "_",
)

// sanitizeFilename removes or replaces characters that are invalid in
// filenames and limits the length.
func sanitizeFilename(s string) string {
	const maxLen = 50
	if runes := []rune(s); len(runes) > maxLen {
		s = string(runes[:maxLen])
	}
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '-'
		}
		return r
	}, s)
	s = strings.Trim(s, ".-_")
	if s == "" {
		return "room"
	}
	return s
}

// senderName prefers the display name.
func senderName(m *model.Message) string {
	if m.SenderDisplay != "" {
		return m.SenderDisplay
	}
	return m.Sender
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04")
}
