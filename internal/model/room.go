// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
	"unicode"
)

// =============================================================================
// ROOM ENTRY
// =============================================================================

// RoomEntry is one joined room as shown in the sidebar.
type RoomEntry struct {
	RoomID        string
	Name          string
	Topic         string
	UnreadCount   int
	MentionCount  int
	IsEncrypted   bool
	LastMessage   string
	LastMessageTS time.Time
	AvatarURL     string
	IsFavourite   bool
	IsLowPriority bool
	IsDM          bool
}

// HasUnread reports whether the room has unread messages or mentions.
func (r RoomEntry) HasUnread() bool {
	return r.UnreadCount > 0 || r.MentionCount > 0
}

// AvatarLetter returns the letter shown in place of a room avatar.
func (r RoomEntry) AvatarLetter() string {
	return AvatarLetter(r.Name)
}

// AvatarLetter returns the first letter or digit of name, skipping Matrix
// sigils, upper-cased. It returns "?" when there is none.
func AvatarLetter(name string) string {
	name = strings.TrimLeft(name, "#!@+")
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

// =============================================================================
// SORT MODE
// =============================================================================

// SortMode orders rooms inside each sidebar section.
type SortMode string

const (
	SortRecentActivity SortMode = "RecentActivity"
	SortAlphabetical   SortMode = "Alphabetical"
)

// Valid reports whether m is a known mode.
func (m SortMode) Valid() bool {
	return m == SortRecentActivity || m == SortAlphabetical
}

// Next returns the other mode.
func (m SortMode) Next() SortMode {
	if m == SortAlphabetical {
		return SortRecentActivity
	}
	return SortAlphabetical
}

// Label is the short form shown in the sidebar.
func (m SortMode) Label() string {
	if m == SortAlphabetical {
		return "A-Z"
	}
	return "Recent"
}
