// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"time"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// ReplyContext is the message the composer is replying to.
type ReplyContext struct {
	EventID       string
	Sender        string
	SenderDisplay string
	Body          string
}

// Timeline is the state of the open room's timeline.
type Timeline struct {
	RoomID            string
	Items             []model.TimelineItem
	PaginationToken   string
	Loading           bool
	Sending           bool
	AttachmentSending bool
	AtBottom          bool
	UnreadMarker      bool
	ReplyTo           *ReplyContext

	// Live events that arrived before the first page.
	early      []model.TimelineItem
	earlyEdits []*model.Message

	// Now is the clock used for date labels. Tests replace it.
	Now func() time.Time
}

// NewTimeline returns an empty timeline scrolled to the bottom.
func NewTimeline() *Timeline {
	return &Timeline{AtBottom: true, Now: time.Now}
}

// Clear forgets the room entirely, as on logout.
func (t *Timeline) Clear() {
	now := t.Now
	*t = Timeline{AtBottom: true, Now: now}
}

// BeginLoad marks roomID as loading and drops the previous room's items.
func (t *Timeline) BeginLoad(roomID string) {
	t.RoomID = roomID
	t.Items = nil
	t.PaginationToken = ""
	t.Loading = true
	t.ReplyTo = nil
	t.early, t.earlyEdits = nil, nil
}

// FirstPageLoading reports whether the room is open but its first page has
// not arrived yet.
func (t *Timeline) FirstPageLoading() bool {
	return t.Loading && len(t.Items) == 0
}

// HoldIncoming keeps live items and edits until SetTimeline installs the
// first page.
func (t *Timeline) HoldIncoming(items []model.TimelineItem, edits []*model.Message) {
	t.early = append(t.early, items...)
	t.earlyEdits = append(t.earlyEdits, edits...)
}

// SetTimeline installs the first page of a room. Scroll position, unread
// marker and reply target are reset. Held live events not in the page are
// appended after it.
func (t *Timeline) SetTimeline(roomID string, items []model.TimelineItem, token string) {
	t.RoomID = roomID
	t.Items = items
	t.PaginationToken = token
	t.Loading = false
	t.AtBottom = true
	t.UnreadMarker = false
	t.ReplyTo = nil
	model.ApplyContinuations(t.Items)

	early, edits := t.early, t.earlyEdits
	t.early, t.earlyEdits = nil, nil
	if len(early) > 0 {
		t.AppendIncoming(early)
	}
	for _, edit := range edits {
		t.ApplyEdit(edit)
	}
}

// CanLoadMore reports whether older history can be requested now.
func (t *Timeline) CanLoadMore() bool {
	return t.RoomID != "" && t.PaginationToken != "" && !t.Loading
}

// BeginLoadMore marks a history request in flight and returns its token.
func (t *Timeline) BeginLoadMore() (string, bool) {
	if !t.CanLoadMore() {
		return "", false
	}
	t.Loading = true
	return t.PaginationToken, true
}

// PrependItems inserts an older page above the current items. A separator
// for the day where the pages meet appears only once.
func (t *Timeline) PrependItems(items []model.TimelineItem, token string) {
	merged := make([]model.TimelineItem, 0, len(items)+len(t.Items))
	merged = append(merged, items...)
	merged = append(merged, t.Items...)
	t.Items = model.DedupDateSeparators(merged)
	model.ApplyContinuations(t.Items)
	t.PaginationToken = token
	t.Loading = false
}

// AppendIncoming adds live messages from sync. Events already present are
// skipped. When the user has scrolled up, an unread marker is placed before
// the first new item, once per room visit. It returns the number of items
// added.
func (t *Timeline) AppendIncoming(items []model.TimelineItem) int {
	fresh := make([]model.TimelineItem, 0, len(items))
	for _, item := range items {
		if item.Kind == model.ItemMessage && item.Message != nil &&
			model.FindMessage(t.Items, item.Message.EventID) >= 0 {
			continue
		}
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return 0
	}

	if !t.AtBottom && !t.UnreadMarker {
		t.Items = append(t.Items, model.UnreadMarkerItem())
		t.UnreadMarker = true
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	clock := now()
	var lastTS time.Time
	if last := model.LastMessage(t.Items); last != nil {
		lastTS = last.TS
	}
	for _, item := range fresh {
		if item.Kind == model.ItemMessage && !item.Message.TS.IsZero() {
			ts := item.Message.TS
			if lastTS.IsZero() || !model.SameDay(lastTS, ts, clock.Location()) {
				t.Items = append(t.Items, model.DateSeparatorItem(model.DateLabel(ts, clock)))
			}
			lastTS = ts
		}
		t.Items = append(t.Items, item)
	}
	model.ApplyContinuations(t.Items)
	return len(fresh)
}

// ReplaceMessage swaps in a new rendering of an existing event, as after an
// edit or a late decryption. It reports whether the event was found.
func (t *Timeline) ReplaceMessage(msg *model.Message) bool {
	i := model.FindMessage(t.Items, msg.EventID)
	if i < 0 {
		return false
	}
	t.Items[i].Message = msg
	model.ApplyContinuations(t.Items)
	return true
}

// ApplyEdit merges an edit into the message it targets. It reports
// whether that message is loaded.
func (t *Timeline) ApplyEdit(edit *model.Message) bool {
	i := model.FindMessage(t.Items, edit.EventID)
	if i < 0 {
		return false
	}
	t.Items[i].Message = model.MergeEdit(t.Items[i].Message, edit)
	return true
}

// Messages returns the messages in order, skipping other items.
func (t *Timeline) Messages() []*model.Message {
	var out []*model.Message
	for _, item := range t.Items {
		if item.Kind == model.ItemMessage && item.Message != nil {
			out = append(out, item.Message)
		}
	}
	return out
}

// StartReply targets msg with the next sent message.
func (t *Timeline) StartReply(msg *model.Message) {
	t.ReplyTo = &ReplyContext{
		EventID:       msg.EventID,
		Sender:        msg.Sender,
		SenderDisplay: msg.SenderDisplay,
		Body:          msg.Body,
	}
}

// CancelReply clears the reply target.
func (t *Timeline) CancelReply() { t.ReplyTo = nil }
