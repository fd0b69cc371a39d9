// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func msg(sender, body string) *Message {
	return &Message{Sender: sender, Body: body}
}

func TestAvatarLetter(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"general", "G"},
		{"#rust:matrix.org", "R"},
		{"!abc:example.org", "A"},
		{"@bob:example.org", "B"},
		{"42 club", "4"},
		{"ümlaut", "Ü"},
		{"", "?"},
		{"###", "?"},
	}
	for _, tt := range tests {
		if got := AvatarLetter(tt.name); got != tt.want {
			t.Errorf("AvatarLetter(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSortMode(t *testing.T) {
	assert.Equal(t, SortAlphabetical, SortRecentActivity.Next())
	assert.Equal(t, SortRecentActivity, SortAlphabetical.Next())
	assert.False(t, SortMode("Random").Valid())
	assert.Equal(t, "A-Z", SortAlphabetical.Label())
}

func TestDateLabel(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	assert.Equal(t, "Today", DateLabel(time.Date(2025, 3, 10, 0, 1, 0, 0, loc), now))
	assert.Equal(t, "Yesterday", DateLabel(time.Date(2025, 3, 9, 23, 59, 0, 0, loc), now))
	assert.Equal(t, "March 08, 2025", DateLabel(time.Date(2025, 3, 8, 12, 0, 0, 0, loc), now))
	// 23:30 UTC on the 9th is already the 10th in loc.
	assert.Equal(t, "Today", DateLabel(time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC), now))
}

func TestStripReplyFallback(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOK      bool
		wantSender  string
		wantPreview string
		wantRest    string
	}{
		{
			name:        "standard fallback",
			body:        "> <@alice:example.org> original text\n> second line\n\nmy reply",
			wantOK:      true,
			wantSender:  "@alice:example.org",
			wantPreview: "original text",
			wantRest:    "my reply",
		},
		{
			name:     "no blank line",
			body:     "> <@alice:example.org> quoted only",
			wantRest: "> <@alice:example.org> quoted only",
		},
		{
			name:     "plain quote",
			body:     "> just quoting\n\ntext",
			wantRest: "> just quoting\n\ntext",
		},
		{
			name:     "plain message",
			body:     "hello",
			wantRest: "hello",
		},
		{
			name:        "multi paragraph reply keeps later blank lines",
			body:        "> <@bob:x> hi\n\nfirst\n\nsecond",
			wantOK:      true,
			wantSender:  "@bob:x",
			wantPreview: "hi",
			wantRest:    "first\n\nsecond",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, preview, rest, ok := StripReplyFallback(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSender, sender)
			assert.Equal(t, tt.wantPreview, preview)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestStripReplyFallback_LongPreviewIsCut(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	_, preview, _, ok := StripReplyFallback("> <@a:b> " + long + "\n\nreply")
	assert.True(t, ok)
	assert.Equal(t, ReplyPreviewRunes+1, len([]rune(preview)))
	assert.Equal(t, '…', []rune(preview)[ReplyPreviewRunes])
}

func TestApplyContinuations(t *testing.T) {
	items := []TimelineItem{
		DateSeparatorItem("Today"),
		MessageItem(msg("@a:x", "1")),
		MessageItem(msg("@a:x", "2")),
		MessageItem(msg("@b:x", "3")),
		StateItem("c joined the room"),
		MessageItem(msg("@b:x", "4")),
		UnreadMarkerItem(),
		MessageItem(msg("@b:x", "5")),
		MessageItem(msg("@b:x", "6")),
	}
	ApplyContinuations(items)

	var got []bool
	for _, it := range items {
		if it.Kind == ItemMessage {
			got = append(got, it.Message.IsContinuation)
		}
	}
	want := []bool{false, true, false, false, false, true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("continuations mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupDateSeparators(t *testing.T) {
	items := []TimelineItem{
		DateSeparatorItem("Yesterday"),
		MessageItem(msg("@a:x", "1")),
		DateSeparatorItem("Today"),
		DateSeparatorItem("Today"),
		MessageItem(msg("@a:x", "2")),
		DateSeparatorItem("Today"),
	}
	got := DedupDateSeparators(items)

	kinds := make([]ItemKind, len(got))
	for i, it := range got {
		kinds[i] = it.Kind
	}
	want := []ItemKind{ItemDateSeparator, ItemMessage, ItemDateSeparator, ItemMessage}
	assert.Equal(t, want, kinds)
}

func TestBuilder(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	day1 := time.Date(2025, 3, 9, 10, 0, 0, 0, loc)
	day2 := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)

	b := NewBuilder(now)
	b.AddMessage(&Message{Sender: "@a:x", TS: day1})
	b.AddMessage(&Message{Sender: "@a:x", TS: day1.Add(time.Minute)})
	b.AddState("", day2) // ignored, no separator
	b.AddState("Topic changed to: hi", day2)
	b.AddMessage(&Message{Sender: "@a:x", TS: day2.Add(time.Minute)})

	items := b.Items()
	kinds := make([]ItemKind, len(items))
	for i, it := range items {
		kinds[i] = it.Kind
	}
	assert.Equal(t, []ItemKind{
		ItemDateSeparator, ItemMessage, ItemMessage,
		ItemDateSeparator, ItemStateEvent, ItemMessage,
	}, kinds)
	assert.Equal(t, "Yesterday", items[0].Text)
	assert.Equal(t, "Today", items[3].Text)
	assert.True(t, items[2].Message.IsContinuation)
	assert.False(t, items[5].Message.IsContinuation, "state event breaks grouping")
}

func TestFindAndLastMessage(t *testing.T) {
	items := []TimelineItem{
		MessageItem(&Message{EventID: "$1"}),
		MessageItem(&Message{EventID: "$2"}),
		StateItem("x"),
	}
	assert.Equal(t, 1, FindMessage(items, "$2"))
	assert.Equal(t, -1, FindMessage(items, "$9"))
	assert.Equal(t, -1, FindMessage(items, ""))
	assert.Equal(t, "$2", LastMessage(items).EventID)
	assert.Nil(t, LastMessage(nil))
}

func TestSenderColorIndex(t *testing.T) {
	// Stable across calls and always inside the palette.
	for _, id := range []string{"@alice:example.org", "@bob:example.org", ""} {
		a := SenderColorIndex(id)
		assert.Equal(t, a, SenderColorIndex(id))
		assert.True(t, a >= 0 && a < SenderPaletteSize)
	}
	// FNV-1a offset basis for the empty string is 2166136261, which is 5 mod 8.
	assert.Equal(t, 5, SenderColorIndex(""))
}

func TestLocalpart(t *testing.T) {
	assert.Equal(t, "alice", Localpart("@alice:example.org"))
	assert.Equal(t, "alice", Localpart("@alice"))
	assert.Equal(t, "!room:x", Localpart("!room:x"))
}

func TestCrossSigningIcons(t *testing.T) {
	assert.Equal(t, "🔒", CrossSigningVerified.Icon())
	assert.Equal(t, "🔓", CrossSigningUnverified.Icon())
	assert.Equal(t, "?", CrossSigningUnknown.Icon())
}

func TestVerificationHeadline(t *testing.T) {
	v := &VerificationState{Phase: VerificationCancelled, Reason: "Cancelled by user"}
	assert.Equal(t, "Verification cancelled: Cancelled by user", v.Headline())
	assert.True(t, v.Finished())

	v = &VerificationState{Phase: VerificationShowingEmoji}
	assert.False(t, v.Finished())
}

func TestMergeEdit(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	orig := &Message{EventID: "$1", Sender: "@a:x", Body: "teh", TS: ts, ReplyToSender: "@b:x"}
	edit := &Message{EventID: "$1", Sender: "@a:x", Body: "the", TS: ts.Add(time.Minute)}

	merged := MergeEdit(orig, edit)
	assert.Equal(t, "the", merged.Body)
	assert.True(t, merged.Edited)
	assert.Equal(t, ts, merged.TS)
	assert.Equal(t, "@b:x", merged.ReplyToSender)
	assert.Equal(t, "teh", orig.Body, "original is not modified")
}
