// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

var testTS = time.Date(2025, 3, 4, 9, 30, 0, 0, time.Local)

func messageEvent(eventID, sender string, content *event.MessageEventContent) *event.Event {
	return &event.Event{
		ID:        id.EventID(eventID),
		Sender:    id.UserID(sender),
		Type:      event.EventMessage,
		Timestamp: testTS.UnixMilli(),
		Content:   event.Content{Parsed: content},
	}
}

func memberEvent(target string, content *event.MemberEventContent, prev string) *event.Event {
	evt := &event.Event{
		ID:        "$m",
		Sender:    id.UserID(target),
		Type:      event.StateMember,
		StateKey:  &target,
		Timestamp: testTS.UnixMilli(),
		Content:   event.Content{Parsed: content},
	}
	if prev != "" {
		evt.Unsigned.PrevContent = &event.Content{VeryRaw: json.RawMessage(prev)}
	}
	return evt
}

func names(m map[string]string) memberLookup {
	return func(userID string) (string, string) { return m[userID], "" }
}

func TestConvertMessage_Text(t *testing.T) {
	evt := messageEvent("$1", "@alice:example.org", &event.MessageEventContent{MsgType: event.MsgText, Body: "hello"})
	msg := convertMessage(evt, names(map[string]string{"@alice:example.org": "Alice"}))
	require.NotNil(t, msg)

	assert.Equal(t, "$1", msg.EventID)
	assert.Equal(t, "Alice", msg.SenderDisplay)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "09:30", msg.Timestamp)
	assert.False(t, msg.IsEmote)
}

func TestConvertMessage_DisplayFallsBackToLocalpart(t *testing.T) {
	evt := messageEvent("$1", "@bob:example.org", &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"})
	msg := convertMessage(evt, nil)
	assert.Equal(t, "bob", msg.SenderDisplay)
}

func TestConvertMessage_Types(t *testing.T) {
	tests := []struct {
		name    string
		content *event.MessageEventContent
		body    string
		check   func(t *testing.T, evt *event.Event)
	}{
		{"emote", &event.MessageEventContent{MsgType: event.MsgEmote, Body: "waves"}, "waves", nil},
		{"notice", &event.MessageEventContent{MsgType: event.MsgNotice, Body: "bot"}, "bot", nil},
		{"file", &event.MessageEventContent{MsgType: event.MsgFile, Body: "report.pdf", URL: "mxc://x/f"}, "[File] report.pdf", nil},
		{"audio", &event.MessageEventContent{MsgType: event.MsgAudio, Body: "a.ogg", FileName: "voice.ogg", URL: "mxc://x/a"}, "[Audio] voice.ogg", nil},
		{"video", &event.MessageEventContent{MsgType: event.MsgVideo, Body: "clip.mp4", URL: "mxc://x/v"}, "[Video] clip.mp4", nil},
		{"unknown", &event.MessageEventContent{MsgType: "org.example.custom", Body: "?"}, textUnsupported, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := convertMessage(messageEvent("$1", "@a:x", tt.content), nil)
			require.NotNil(t, msg)
			assert.Equal(t, tt.body, msg.Body)
		})
	}
}

func TestConvertMessage_EmoteAndNoticeFlags(t *testing.T) {
	emote := convertMessage(messageEvent("$1", "@a:x", &event.MessageEventContent{MsgType: event.MsgEmote, Body: "waves"}), nil)
	assert.True(t, emote.IsEmote)
	notice := convertMessage(messageEvent("$2", "@a:x", &event.MessageEventContent{MsgType: event.MsgNotice, Body: "n"}), nil)
	assert.True(t, notice.IsNotice)
}

func TestConvertMessage_Image(t *testing.T) {
	content := &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    "cat.png",
		URL:     "mxc://example.org/cat",
		Info:    &event.FileInfo{MimeType: "image/png", Width: 640, Height: 480, Size: 1234},
	}
	msg := convertMessage(messageEvent("$1", "@a:x", content), nil)
	require.NotNil(t, msg.Image)
	assert.Equal(t, "cat.png", msg.Body)
	assert.Equal(t, "mxc://example.org/cat", msg.Image.URI)
	assert.Equal(t, 640, msg.Image.Width)
	assert.False(t, msg.Image.Encrypted())
}

func TestConvertMessage_EncryptedImageUsesFileURL(t *testing.T) {
	content := &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    "secret.png",
		File:    &event.EncryptedFileInfo{URL: "mxc://example.org/enc"},
	}
	msg := convertMessage(messageEvent("$1", "@a:x", content), nil)
	require.NotNil(t, msg.Image)
	assert.Equal(t, "mxc://example.org/enc", msg.Image.URI)
	assert.True(t, msg.Image.Encrypted())
}

func TestConvertMessage_ReplyFallbackStripped(t *testing.T) {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    "> <@bob:x> original text\n\nmy answer",
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{EventID: "$orig"},
		},
		Format:        event.FormatHTML,
		FormattedBody: "<mx-reply><blockquote>original</blockquote></mx-reply>my answer",
	}
	msg := convertMessage(messageEvent("$1", "@a:x", content), nil)
	assert.Equal(t, "my answer", msg.Body)
	assert.Equal(t, "@bob:x", msg.ReplyToSender)
	assert.Equal(t, "original text", msg.ReplyToBody)
	assert.Equal(t, "$orig", msg.ReplyToEventID)
	assert.Equal(t, "my answer", msg.FormattedBody)
	assert.True(t, msg.HasReply())
}

func TestConvertMessage_StripsControlCharacters(t *testing.T) {
	content := &event.MessageEventContent{
		MsgType:   event.MsgText,
		Body:      "> <@bob:x> quoted\x1b[2J\n\nline one\x1b]0;title\a\nline\ttwo",
		RelatesTo: &event.RelatesTo{InReplyTo: &event.InReplyTo{EventID: "$orig"}},
	}
	msg := convertMessage(messageEvent("$1", "@a:x", content), names(map[string]string{"@a:x": "Eve\x1b[31m"}))
	require.NotNil(t, msg)

	assert.Equal(t, "line one]0;title\nline\ttwo", msg.Body)
	assert.Equal(t, "quoted[2J", msg.ReplyToBody)
	assert.Equal(t, "@bob:x", msg.ReplyToSender)
	assert.Equal(t, "Eve[31m", msg.SenderDisplay)
}

func TestUndecryptable(t *testing.T) {
	evt := &event.Event{ID: "$e", Sender: "@a:x", Type: event.EventEncrypted, Timestamp: testTS.UnixMilli()}
	msg := undecryptable(evt, nil)
	assert.Equal(t, "[Unable to decrypt]", msg.Body)
	assert.True(t, msg.Undecryptable)
	assert.Equal(t, "$e", msg.EventID)
}

func TestEditOf(t *testing.T) {
	content := &event.MessageEventContent{
		MsgType:    event.MsgText,
		Body:       "* fixed",
		NewContent: &event.MessageEventContent{MsgType: event.MsgText, Body: "fixed"},
		RelatesTo:  &event.RelatesTo{Type: event.RelReplace, EventID: "$orig"},
	}
	target, msg, ok := editOf(messageEvent("$edit", "@a:x", content), nil)
	require.True(t, ok)
	assert.Equal(t, "$orig", target)
	assert.Equal(t, "$orig", msg.EventID)
	assert.Equal(t, "fixed", msg.Body)
	assert.True(t, msg.Edited)

	plain := messageEvent("$2", "@a:x", &event.MessageEventContent{MsgType: event.MsgText, Body: "x"})
	_, _, ok = editOf(plain, nil)
	assert.False(t, ok)
}

func TestStateText(t *testing.T) {
	name := "Lobby"
	topic := "Chat here"
	empty := ""

	tests := []struct {
		name string
		evt  *event.Event
		want string
	}{
		{
			"join",
			memberEvent("@a:x", &event.MemberEventContent{Membership: event.MembershipJoin, Displayname: "Alice"}, ""),
			"Alice joined the room",
		},
		{
			"leave",
			memberEvent("@a:x", &event.MemberEventContent{Membership: event.MembershipLeave}, `{"membership":"join","displayname":"Alice"}`),
			"a left the room",
		},
		{
			"invite",
			memberEvent("@b:x", &event.MemberEventContent{Membership: event.MembershipInvite, Displayname: "Bob"}, ""),
			"Bob was invited",
		},
		{
			"rename",
			memberEvent("@a:x", &event.MemberEventContent{Membership: event.MembershipJoin, Displayname: "Ally"}, `{"membership":"join","displayname":"Alice"}`),
			"Alice changed their name to Ally",
		},
		{
			"avatar change is silent",
			memberEvent("@a:x", &event.MemberEventContent{Membership: event.MembershipJoin, Displayname: "Alice"}, `{"membership":"join","displayname":"Alice"}`),
			"",
		},
		{
			"room name",
			&event.Event{Type: event.StateRoomName, StateKey: &empty, Content: event.Content{Parsed: &event.RoomNameEventContent{Name: name}}},
			"Room name changed to: Lobby",
		},
		{
			"topic",
			&event.Event{Type: event.StateTopic, StateKey: &empty, Content: event.Content{Parsed: &event.TopicEventContent{Topic: topic}}},
			"Topic changed to: Chat here",
		},
		{
			"power levels are not shown",
			&event.Event{Type: event.StatePowerLevels, StateKey: &empty},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateText(tt.evt, nil))
		})
	}
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", detectMIME("cat.PNG", nil))
	assert.Equal(t, "application/pdf", detectMIME("doc.pdf", nil))
	assert.Equal(t, "image/png", detectMIME("noext", []byte("\x89PNG\r\n\x1a\n0000")))
	assert.Equal(t, event.MsgImage, msgTypeFor("image/jpeg"))
	assert.Equal(t, event.MsgVideo, msgTypeFor("video/mp4"))
	assert.Equal(t, event.MsgAudio, msgTypeFor("audio/ogg"))
	assert.Equal(t, event.MsgFile, msgTypeFor("application/zip"))
}
