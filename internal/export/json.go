// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts as one JSON document.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonTranscript struct {
	RoomID     string        `json:"room_id"`
	RoomName   string        `json:"room_name,omitempty"`
	Topic      string        `json:"topic,omitempty"`
	Encrypted  bool          `json:"encrypted"`
	ExportedAt time.Time     `json:"exported_at"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	EventID    string          `json:"event_id"`
	Sender     string          `json:"sender"`
	SenderName string          `json:"sender_name,omitempty"`
	Time       *time.Time      `json:"time,omitempty"`
	Kind       string          `json:"kind"`
	Body       string          `json:"body,omitempty"`
	Edited     bool            `json:"edited,omitempty"`
	ReplyTo    string          `json:"reply_to,omitempty"`
	Attachment *jsonAttachment `json:"attachment,omitempty"`
}

type jsonAttachment struct {
	Name      string `json:"name,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	URI       string `json:"uri"`
	Size      int    `json:"size,omitempty"`
	Encrypted bool   `json:"encrypted"`
}

// Export converts t to indented JSON. State events and separators are
// left out.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	msgs := t.Messages()
	if len(msgs) == 0 {
		return nil, ErrEmpty
	}

	out := jsonTranscript{
		RoomID:     t.RoomID,
		RoomName:   t.RoomName,
		Topic:      t.Topic,
		Encrypted:  t.Encrypted,
		ExportedAt: t.ExportedAt.UTC(),
		Messages:   make([]jsonMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, e.message(m))
	}
	return json.MarshalIndent(out, "", "  ")
}

func (e *JSONExporter) message(m *model.Message) jsonMessage {
	jm := jsonMessage{
		EventID:    m.EventID,
		Sender:     m.Sender,
		SenderName: m.SenderDisplay,
		Kind:       messageKind(m),
		Body:       m.Body,
		Edited:     m.Edited,
		ReplyTo:    m.ReplyToEventID,
	}
	if e.options.IncludeTimestamps && !m.TS.IsZero() {
		ts := m.TS.UTC()
		jm.Time = &ts
	}
	if m.Undecryptable {
		jm.Body = ""
	}
	src := m.Image
	if src == nil {
		src = m.File
	}
	if src != nil {
		jm.Attachment = &jsonAttachment{
			Name:      src.Name,
			MimeType:  src.MimeType,
			URI:       src.URI,
			Size:      src.Size,
			Encrypted: src.Encrypted(),
		}
	}
	return jm
}

func messageKind(m *model.Message) string {
	switch {
	case m.Undecryptable:
		return "undecryptable"
	case m.Image != nil:
		return "image"
	case m.File != nil:
		return "file"
	case m.IsEmote:
		return "emote"
	case m.IsNotice:
		return "notice"
	default:
		return "text"
	}
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
