// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

var now = time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)

func newTestTimeline() *Timeline {
	tl := NewTimeline()
	tl.Now = func() time.Time { return now }
	return tl
}

func message(id, sender string, ts time.Time) model.TimelineItem {
	return model.MessageItem(&model.Message{EventID: id, Sender: sender, Body: id, TS: ts})
}

func kinds(items []model.TimelineItem) []model.ItemKind {
	out := make([]model.ItemKind, len(items))
	for i, it := range items {
		out[i] = it.Kind
	}
	return out
}

func TestSetTimeline_ResetsViewState(t *testing.T) {
	tl := newTestTimeline()
	tl.AtBottom = false
	tl.UnreadMarker = true
	tl.ReplyTo = &ReplyContext{EventID: "$x"}

	tl.SetTimeline("!r", []model.TimelineItem{
		message("$1", "@a:x", now),
		message("$2", "@a:x", now),
	}, "tok")

	assert.Equal(t, "!r", tl.RoomID)
	assert.Equal(t, "tok", tl.PaginationToken)
	assert.True(t, tl.AtBottom)
	assert.False(t, tl.UnreadMarker)
	assert.Nil(t, tl.ReplyTo)
	assert.True(t, tl.Items[1].Message.IsContinuation)
}

func TestSetTimeline_AppendsHeldEvents(t *testing.T) {
	tl := newTestTimeline()
	tl.BeginLoad("!r")
	require.True(t, tl.FirstPageLoading())

	tl.HoldIncoming([]model.TimelineItem{message("$old", "@a:x", now), message("$live", "@b:x", now)}, nil)
	tl.HoldIncoming(nil, []*model.Message{{EventID: "$old", Body: "fixed"}})

	tl.SetTimeline("!r", []model.TimelineItem{message("$old", "@a:x", now)}, "tok")
	require.False(t, tl.FirstPageLoading())

	var ids []string
	for _, m := range tl.Messages() {
		ids = append(ids, m.EventID)
	}
	assert.Equal(t, []string{"$old", "$live"}, ids)
	assert.Equal(t, "fixed", tl.Messages()[0].Body)
	assert.True(t, tl.Messages()[0].Edited)
	assert.False(t, tl.UnreadMarker)
}

func TestBeginLoad_DropsHeldEvents(t *testing.T) {
	tl := newTestTimeline()
	tl.BeginLoad("!a")
	tl.HoldIncoming([]model.TimelineItem{message("$a", "@a:x", now)}, nil)

	tl.BeginLoad("!b")
	tl.SetTimeline("!b", nil, "")
	assert.Empty(t, tl.Messages())
}

func TestClear(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{message("$1", "@a:x", now)}, "tok")
	tl.Sending = true
	tl.Clear()

	assert.Equal(t, "", tl.RoomID)
	assert.Empty(t, tl.Items)
	assert.True(t, tl.AtBottom)
	assert.False(t, tl.Sending)
	require.NotNil(t, tl.Now)
	assert.Equal(t, now, tl.Now())
}

func TestLoadMore_OncePerToken(t *testing.T) {
	tl := newTestTimeline()
	assert.False(t, tl.CanLoadMore(), "no room")

	tl.SetTimeline("!r", nil, "t1")
	tok, ok := tl.BeginLoadMore()
	require.True(t, ok)
	assert.Equal(t, "t1", tok)

	_, ok = tl.BeginLoadMore()
	assert.False(t, ok, "request already in flight")

	tl.PrependItems(nil, "")
	assert.False(t, tl.Loading)
	assert.False(t, tl.CanLoadMore(), "start of history reached")
}

func TestPrependItems_DedupsSeparatorAndRegroups(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{
		model.DateSeparatorItem("Today"),
		message("$3", "@a:x", now),
	}, "t1")

	tl.PrependItems([]model.TimelineItem{
		model.DateSeparatorItem("Yesterday"),
		message("$1", "@b:x", now.Add(-24*time.Hour)),
		model.DateSeparatorItem("Today"),
		message("$2", "@a:x", now.Add(-time.Minute)),
	}, "t0")

	assert.Equal(t, []model.ItemKind{
		model.ItemDateSeparator, model.ItemMessage,
		model.ItemDateSeparator, model.ItemMessage, model.ItemMessage,
	}, kinds(tl.Items))
	assert.Equal(t, "t0", tl.PaginationToken)
	assert.True(t, tl.Items[4].Message.IsContinuation, "$3 now follows $2 from the same sender")
}

func TestAppendIncoming_AtBottomNoMarker(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{
		model.DateSeparatorItem("Today"),
		message("$1", "@a:x", now.Add(-time.Minute)),
	}, "")

	n := tl.AppendIncoming([]model.TimelineItem{message("$2", "@a:x", now)})
	assert.Equal(t, 1, n)
	assert.Equal(t, []model.ItemKind{model.ItemDateSeparator, model.ItemMessage, model.ItemMessage}, kinds(tl.Items))
	assert.True(t, tl.Items[2].Message.IsContinuation)
	assert.False(t, tl.UnreadMarker)
}

func TestAppendIncoming_ScrolledUpInsertsMarkerOnce(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{
		model.DateSeparatorItem("Today"),
		message("$1", "@a:x", now.Add(-time.Minute)),
	}, "")
	tl.AtBottom = false

	tl.AppendIncoming([]model.TimelineItem{message("$2", "@a:x", now)})
	tl.AppendIncoming([]model.TimelineItem{message("$3", "@a:x", now)})

	assert.Equal(t, []model.ItemKind{
		model.ItemDateSeparator, model.ItemMessage,
		model.ItemUnreadMarker, model.ItemMessage, model.ItemMessage,
	}, kinds(tl.Items))
	assert.True(t, tl.UnreadMarker)
	assert.False(t, tl.Items[3].Message.IsContinuation, "marker breaks grouping")
	assert.True(t, tl.Items[4].Message.IsContinuation)
}

func TestAppendIncoming_NewDayGetsSeparator(t *testing.T) {
	tl := newTestTimeline()
	yesterday := now.Add(-24 * time.Hour)
	tl.SetTimeline("!r", []model.TimelineItem{
		model.DateSeparatorItem("Yesterday"),
		message("$1", "@a:x", yesterday),
	}, "")

	tl.AppendIncoming([]model.TimelineItem{message("$2", "@a:x", now)})
	require.Len(t, tl.Items, 4)
	assert.Equal(t, model.ItemDateSeparator, tl.Items[2].Kind)
	assert.Equal(t, "Today", tl.Items[2].Text)
}

func TestAppendIncoming_EmptyTimelineGetsSeparator(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", nil, "")
	tl.AppendIncoming([]model.TimelineItem{message("$1", "@a:x", now)})
	assert.Equal(t, []model.ItemKind{model.ItemDateSeparator, model.ItemMessage}, kinds(tl.Items))
}

func TestAppendIncoming_SkipsDuplicates(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{message("$1", "@a:x", now)}, "")
	tl.AtBottom = false

	n := tl.AppendIncoming([]model.TimelineItem{message("$1", "@a:x", now)})
	assert.Equal(t, 0, n)
	assert.Len(t, tl.Items, 1)
	assert.False(t, tl.UnreadMarker, "no marker without new items")
}

func TestReplaceMessage(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{message("$1", "@a:x", now)}, "")

	ok := tl.ReplaceMessage(&model.Message{EventID: "$1", Sender: "@a:x", Body: "decrypted"})
	require.True(t, ok)
	assert.Equal(t, "decrypted", tl.Messages()[0].Body)

	assert.False(t, tl.ReplaceMessage(&model.Message{EventID: "$404"}))
}

func TestReply(t *testing.T) {
	tl := newTestTimeline()
	m := &model.Message{EventID: "$1", Sender: "@a:x", SenderDisplay: "Alice", Body: "hi"}
	tl.StartReply(m)
	require.NotNil(t, tl.ReplyTo)
	assert.Equal(t, ReplyContext{EventID: "$1", Sender: "@a:x", SenderDisplay: "Alice", Body: "hi"}, *tl.ReplyTo)
	tl.CancelReply()
	assert.Nil(t, tl.ReplyTo)
}

func TestApplyEdit_KeepsIdentity(t *testing.T) {
	tl := newTestTimeline()
	tl.SetTimeline("!r", []model.TimelineItem{message("$1", "@a:x", now)}, "")

	ok := tl.ApplyEdit(&model.Message{EventID: "$1", Sender: "@a:x", Body: "fixed", TS: now.Add(time.Hour)})
	require.True(t, ok)

	got := tl.Messages()[0]
	assert.Equal(t, "fixed", got.Body)
	assert.True(t, got.Edited)
	assert.Equal(t, now, got.TS, "edit keeps the original time")

	assert.False(t, tl.ApplyEdit(&model.Message{EventID: "$404"}))
}
