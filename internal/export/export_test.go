// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

var exportTime = time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)

func sampleTranscript() *Transcript {
	ts := time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC)
	return &Transcript{
		RoomID:     "!room:example.org",
		RoomName:   "Team chat",
		Topic:      "Daily sync",
		Encrypted:  true,
		ExportedAt: exportTime,
		Items: []model.TimelineItem{
			model.DateSeparatorItem("Yesterday"),
			model.StateItem("alice joined the room"),
			model.MessageItem(&model.Message{
				EventID: "$1", Sender: "@alice:example.org", SenderDisplay: "Alice",
				Body: "hello *team*", TS: ts,
			}),
			model.UnreadMarkerItem(),
			model.MessageItem(&model.Message{
				EventID: "$2", Sender: "@bob:example.org", SenderDisplay: "Bob",
				Body: "hi", TS: ts.Add(time.Minute), Edited: true,
				ReplyToEventID: "$1", ReplyToSender: "Alice", ReplyToBody: "hello *team*",
			}),
			model.MessageItem(&model.Message{
				EventID: "$3", Sender: "@bob:example.org", Body: "waves", IsEmote: true, TS: ts.Add(2 * time.Minute),
			}),
			model.MessageItem(&model.Message{
				EventID: "$4", Sender: "@alice:example.org", Body: "cat.png", TS: ts.Add(3 * time.Minute),
				Image: &model.MediaSource{URI: "mxc://example.org/cat", Name: "cat.png", MimeType: "image/png",
					File: &event.EncryptedFileInfo{}},
			}),
			model.MessageItem(&model.Message{
				EventID: "$5", Sender: "@carol:example.org", Body: "secret", Undecryptable: true, TS: ts.Add(4 * time.Minute),
			}),
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, name := range []string{"", "md", "Markdown"} {
		exp, err := ForFormat(name, nil)
		require.NoError(t, err)
		assert.Equal(t, ".md", exp.FileExtension())
	}
	exp, err := ForFormat("json", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", exp.MimeType())

	_, err = ForFormat("html", nil)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "title: Team chat\n")
	assert.Contains(t, md, `room_id: "!room:example.org"`)
	assert.Contains(t, md, "messages: 5\n")
	assert.Contains(t, md, "# Team chat\n\n_Daily sync_")
	assert.Contains(t, md, "## Yesterday\n")
	assert.Contains(t, md, "_alice joined the room_")
	assert.Contains(t, md, "**Alice** <sub>09:15</sub>\n\nhello *team*")
	assert.Contains(t, md, "**Bob** <sub>09:16</sub> _(edited)_")
	assert.Contains(t, md, "> **Alice**: hello *team*")
	assert.Contains(t, md, `\* **@bob:example.org** waves`)
	assert.Contains(t, md, "![cat.png](mxc://example.org/cat) _(encrypted)_")
	assert.Contains(t, md, "_Unable to decrypt this message_")
	assert.NotContains(t, md, "secret")
}

func TestMarkdownWithoutStateOrTimes(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleTranscript())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "joined the room")
	assert.NotContains(t, string(out), "<sub>")
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)

	var doc jsonTranscript
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "!room:example.org", doc.RoomID)
	require.Len(t, doc.Messages, 5)

	kinds := make([]string, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []string{"text", "text", "emote", "image", "undecryptable"}, kinds)
	assert.Equal(t, "$1", doc.Messages[1].ReplyTo)
	assert.True(t, doc.Messages[1].Edited)
	require.NotNil(t, doc.Messages[3].Attachment)
	assert.True(t, doc.Messages[3].Attachment.Encrypted)
	assert.Empty(t, doc.Messages[4].Body)
}

func TestExportEmpty(t *testing.T) {
	empty := &Transcript{RoomID: "!r:x", Items: []model.TimelineItem{model.StateItem("created")}}
	_, err := NewMarkdownExporter(nil).Export(empty)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = NewJSONExporter(nil).Export(empty)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ToFile(sampleTranscript(), NewMarkdownExporter(nil), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Team_chat_20250304_103000.md"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Team chat":             "Team_chat",
		"!abc:example.org":      "abc-example.org",
		"a/b\\c":                "a-b-c",
		"   ":                   "room",
		"..":                    "room",
		"tab\there":             "tab_here",
		strings.Repeat("x", 80): strings.Repeat("x", 50),
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
