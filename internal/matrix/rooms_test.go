// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

func stateEvent(t event.Type, content any) *event.Event {
	empty := ""
	return &event.Event{Type: t, StateKey: &empty, Content: event.Content{Parsed: content}}
}

func intPtr(n int) *int { return &n }

func TestHeroesName(t *testing.T) {
	tests := []struct {
		names  []string
		others int
		want   string
	}{
		{nil, 0, ""},
		{[]string{"Alice"}, 1, "Alice"},
		{[]string{"Alice", "Bob"}, 2, "Alice and Bob"},
		{[]string{"Alice", "Bob"}, 5, "Alice, Bob and 3 others"},
		{[]string{"Alice", "Bob", "Carol"}, 3, "Alice, Bob and 1 other"},
		{[]string{"Alice"}, 4, "Alice and 3 others"},
		{[]string{"Alice", "Bob"}, 0, "Alice and Bob"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, heroesName(tt.names, tt.others), "%v/%d", tt.names, tt.others)
	}
}

func TestRoomCache_NamePrecedence(t *testing.T) {
	c := newRoomCache("@me:x")
	c.applyJoined("!r", &mautrix.SyncJoinedRoom{
		Summary: mautrix.LazyLoadSummary{
			Heroes:            []id.UserID{"@me:x", "@alice:x", "@bob:x"},
			JoinedMemberCount: intPtr(3),
		},
	})
	alice := "@alice:x"
	c.applyState("!r", &event.Event{
		Type: event.StateMember, StateKey: &alice,
		Content: event.Content{Parsed: &event.MemberEventContent{Membership: event.MembershipJoin, Displayname: "Alice"}},
	})

	name := func() string {
		entries := c.entries()
		require.Len(t, entries, 1)
		return entries[0].Name
	}
	assert.Equal(t, "Alice and bob", name(), "heroes exclude the own user")

	c.applyState("!r", stateEvent(event.StateCanonicalAlias, &event.CanonicalAliasEventContent{Alias: "#lobby:x"}))
	assert.Equal(t, "#lobby:x", name())

	c.applyState("!r", stateEvent(event.StateRoomName, &event.RoomNameEventContent{Name: "Lobby"}))
	assert.Equal(t, "Lobby", name())
}

func TestRoomCache_FallsBackToRoomID(t *testing.T) {
	c := newRoomCache("@me:x")
	c.applyJoined("!empty:x", &mautrix.SyncJoinedRoom{})
	assert.Equal(t, "!empty:x", c.entries()[0].Name)
}

func TestRoomCache_Metadata(t *testing.T) {
	c := newRoomCache("@me:x")
	c.applyJoined("!r", &mautrix.SyncJoinedRoom{
		UnreadNotifications: &mautrix.UnreadNotificationCounts{NotificationCount: 4, HighlightCount: 1},
	})
	c.applyState("!r", stateEvent(event.StateEncryption, &event.EncryptionEventContent{Algorithm: id.AlgorithmMegolmV1}))
	c.applyState("!r", stateEvent(event.StateTopic, &event.TopicEventContent{Topic: "things"}))
	c.applyState("!r", stateEvent(event.StateRoomAvatar, &event.RoomAvatarEventContent{URL: "mxc://x/av"}))
	c.setTags("!r", &event.TagEventContent{Tags: event.Tags{
		event.RoomTagFavourite: {Order: "0.5"},
		"u.work":               {},
	}})
	c.setDirect(&event.DirectChatsEventContent{"@bob:x": {"!r", "!other"}})
	c.noteMessage("!r", &model.Message{Body: "latest\nline", TS: testTS})

	entries := c.entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, 4, e.UnreadCount)
	assert.Equal(t, 1, e.MentionCount)
	assert.True(t, e.IsEncrypted)
	assert.Equal(t, "things", e.Topic)
	assert.Equal(t, "mxc://x/av", e.AvatarURL)
	assert.True(t, e.IsFavourite)
	assert.False(t, e.IsLowPriority)
	assert.True(t, e.IsDM)
	assert.Equal(t, "latest line", e.LastMessage)
	assert.True(t, c.isEncrypted("!r"))

	c.setTag("!r", event.RoomTagFavourite, false)
	assert.False(t, c.entries()[0].IsFavourite)

	c.clearUnread("!r")
	assert.Zero(t, c.entries()[0].UnreadCount)
}

func TestRoomCache_OlderMessageDoesNotReplaceLatest(t *testing.T) {
	c := newRoomCache("@me:x")
	c.noteMessage("!r", &model.Message{Body: "new", TS: testTS})
	c.noteMessage("!r", &model.Message{Body: "old", TS: testTS.Add(-1)})
	assert.Equal(t, "new", c.entries()[0].LastMessage)
}

func TestRoomCache_MemberLookupAndRemove(t *testing.T) {
	c := newRoomCache("@me:x")
	bob := "@bob:x"
	c.applyState("!r", &event.Event{
		Type: event.StateMember, StateKey: &bob,
		Content: event.Content{Parsed: &event.MemberEventContent{Membership: event.MembershipJoin, Displayname: "Bob", AvatarURL: "mxc://x/bob"}},
	})
	name, avatar := c.lookup("!r")("@bob:x")
	assert.Equal(t, "Bob", name)
	assert.Equal(t, "mxc://x/bob", avatar)

	c.applyState("!r", &event.Event{
		Type: event.StateMember, StateKey: &bob,
		Content: event.Content{Parsed: &event.MemberEventContent{Membership: event.MembershipLeave}},
	})
	name, _ = c.lookup("!r")("@bob:x")
	assert.Empty(t, name)

	c.remove("!r")
	assert.False(t, c.hasRoom("!r"))
	assert.Empty(t, c.entries())
}

func TestRoomCache_EntriesSortedByID(t *testing.T) {
	c := newRoomCache("@me:x")
	for _, r := range []string{"!c", "!a", "!b"} {
		c.applyJoined(r, &mautrix.SyncJoinedRoom{})
	}
	var ids []string
	for _, e := range c.entries() {
		ids = append(ids, e.RoomID)
	}
	assert.Equal(t, []string{"!a", "!b", "!c"}, ids)
}

func TestRoomCache_StripsControlCharacters(t *testing.T) {
	c := newRoomCache("@me:x")
	c.applyJoined("!named", &mautrix.SyncJoinedRoom{})
	c.applyState("!named", stateEvent(event.StateRoomName, &event.RoomNameEventContent{Name: "evil\x1b[2J\x1b]0;pwned\a"}))
	c.applyState("!named", stateEvent(event.StateTopic, &event.TopicEventContent{Topic: "t\x1b[31mred"}))

	c.applyJoined("!heroes", &mautrix.SyncJoinedRoom{
		Summary: mautrix.LazyLoadSummary{Heroes: []id.UserID{"@mal:x"}, JoinedMemberCount: intPtr(2)},
	})
	mal := "@mal:x"
	c.applyState("!heroes", &event.Event{
		Type: event.StateMember, StateKey: &mal,
		Content: event.Content{Parsed: &event.MemberEventContent{Membership: event.MembershipJoin, Displayname: "Mal\x1b[2J"}},
	})

	entries := c.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Mal[2J", entries[0].Name)
	assert.Equal(t, "evil[2J]0;pwned", entries[1].Name)
	assert.Equal(t, "t[31mred", entries[1].Topic)
	for _, e := range entries {
		assert.False(t, strings.ContainsRune(e.Name+e.Topic, 0x1b), e.RoomID)
	}

	name, _ := c.lookup("!heroes")("@mal:x")
	assert.Equal(t, "Mal[2J", name)
}
