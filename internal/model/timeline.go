// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/cosmic-matrix/internal/util"
)

// =============================================================================
// TIMELINE ITEMS
// =============================================================================

// ItemKind discriminates TimelineItem.
type ItemKind int

const (
	ItemMessage ItemKind = iota
	ItemDateSeparator
	ItemStateEvent
	ItemUnreadMarker
)

// TimelineItem is one row of a room timeline. Message is set for
// ItemMessage; Text holds the label of a date separator or the description
// of a state event.
type TimelineItem struct {
	Kind    ItemKind
	Message *Message
	Text    string
}

// MessageItem wraps m.
func MessageItem(m *Message) TimelineItem {
	return TimelineItem{Kind: ItemMessage, Message: m}
}

// DateSeparatorItem returns a separator labelled label.
func DateSeparatorItem(label string) TimelineItem {
	return TimelineItem{Kind: ItemDateSeparator, Text: label}
}

// StateItem returns a state event row.
func StateItem(text string) TimelineItem {
	return TimelineItem{Kind: ItemStateEvent, Text: text}
}

// UnreadMarkerItem returns the "new messages" divider.
func UnreadMarkerItem() TimelineItem {
	return TimelineItem{Kind: ItemUnreadMarker}
}

// Message is a rendered room message.
type Message struct {
	EventID         string
	Sender          string
	SenderDisplay   string
	SenderAvatarURL string

	Body          string
	FormattedBody string
	Timestamp     string // HH:MM in local time
	TS            time.Time

	IsEmote        bool
	IsNotice       bool
	IsContinuation bool
	Undecryptable  bool
	Edited         bool

	ReplyToEventID string
	ReplyToSender  string
	ReplyToBody    string

	Image *MediaSource
	File  *MediaSource
}

// HasReply reports whether the message quotes another one.
func (m *Message) HasReply() bool {
	return m.ReplyToSender != "" || m.ReplyToEventID != ""
}

// MergeEdit returns orig with the content of edit. Identity, sender,
// time and reply context stay those of orig.
func MergeEdit(orig, edit *Message) *Message {
	merged := *orig
	merged.Body = edit.Body
	merged.FormattedBody = edit.FormattedBody
	merged.IsEmote = edit.IsEmote
	merged.IsNotice = edit.IsNotice
	merged.Image = edit.Image
	merged.File = edit.File
	merged.Edited = true
	return &merged
}

// =============================================================================
// DATES
// =============================================================================

// DateLabel returns "Today", "Yesterday" or a long date for ts relative
// to now, both in now's location.
func DateLabel(ts, now time.Time) string {
	ts = ts.In(now.Location())
	y, m, d := ts.Date()
	ty, tm, td := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	today := time.Date(ty, tm, td, 0, 0, 0, 0, now.Location())

	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return ts.Format("January 02, 2006")
	}
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// =============================================================================
// REPLY FALLBACK
// =============================================================================

// ReplyPreviewRunes limits the quoted text kept from a reply fallback.
const ReplyPreviewRunes = 80

// StripReplyFallback removes the "> <@user> quoted" block that clients put in
// front of reply bodies. It only acts when body starts with "> <@" and has a
// blank line ending the quote; otherwise ok is false and rest is body.
func StripReplyFallback(body string) (sender, preview, rest string, ok bool) {
	if !strings.HasPrefix(body, "> <@") {
		return "", "", body, false
	}
	end := strings.Index(body, "\n\n")
	if end < 0 {
		return "", "", body, false
	}

	quote, rest := body[:end], body[end+2:]
	first := strings.TrimPrefix(util.FirstLine(quote), "> ")

	sender = "@unknown"
	if strings.HasPrefix(first, "<") {
		if i := strings.IndexByte(first, '>'); i > 0 {
			sender = first[1:i]
		}
	}
	if i := strings.IndexByte(first, '>'); i >= 0 {
		preview = util.Preview(strings.TrimSpace(first[i+1:]), ReplyPreviewRunes)
	}
	return sender, preview, rest, true
}

// =============================================================================
// GROUPING
// =============================================================================

// ApplyContinuations marks each message whose previous item is a message from
// the same sender. Any other item kind breaks the group.
func ApplyContinuations(items []TimelineItem) {
	last := ""
	for i := range items {
		if items[i].Kind != ItemMessage || items[i].Message == nil {
			last = ""
			continue
		}
		msg := items[i].Message
		msg.IsContinuation = last != "" && msg.Sender == last
		last = msg.Sender
	}
}

// DedupDateSeparators drops a date separator whose label repeats the
// previous separator's, which happens where a prepended page meets the
// existing timeline on the same day.
func DedupDateSeparators(items []TimelineItem) []TimelineItem {
	out := items[:0]
	last := ""
	for _, item := range items {
		if item.Kind == ItemDateSeparator {
			if item.Text == last {
				continue
			}
			last = item.Text
		}
		out = append(out, item)
	}
	return out
}

// LastMessage returns the newest message in items, or nil.
func LastMessage(items []TimelineItem) *Message {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Kind == ItemMessage && items[i].Message != nil {
			return items[i].Message
		}
	}
	return nil
}

// FindMessage returns the index of the message with eventID, or -1.
func FindMessage(items []TimelineItem, eventID string) int {
	if eventID == "" {
		return -1
	}
	for i := range items {
		if items[i].Kind == ItemMessage && items[i].Message != nil && items[i].Message.EventID == eventID {
			return i
		}
	}
	return -1
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles timeline items in chronological order, inserting a date
// separator whenever the calendar day changes.
type Builder struct {
	now     time.Time
	items   []TimelineItem
	lastDay time.Time
	hasDay  bool
}

// NewBuilder starts an empty timeline. now decides which days are labelled
// Today and Yesterday.
func NewBuilder(now time.Time) *Builder {
	return &Builder{now: now}
}

func (b *Builder) separate(ts time.Time) {
	if ts.IsZero() {
		return
	}
	if b.hasDay && SameDay(b.lastDay, ts, b.now.Location()) {
		return
	}
	b.items = append(b.items, DateSeparatorItem(DateLabel(ts, b.now)))
	b.lastDay = ts
	b.hasDay = true
}

// AddMessage appends m, preceded by a separator on a new day.
func (b *Builder) AddMessage(m *Message) {
	b.separate(m.TS)
	b.items = append(b.items, MessageItem(m))
}

// AddState appends a state event description.
func (b *Builder) AddState(text string, ts time.Time) {
	if text == "" {
		return
	}
	b.separate(ts)
	b.items = append(b.items, StateItem(text))
}

// Items returns the assembled items with continuation markers applied.
func (b *Builder) Items() []TimelineItem {
	ApplyContinuations(b.items)
	return b.items
}
