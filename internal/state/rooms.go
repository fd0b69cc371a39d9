// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// Section keys, persisted in settings.json.
const (
	SectionFavourites  = "favourites"
	SectionDMs         = "dms"
	SectionRooms       = "rooms"
	SectionLowPriority = "low_priority"
)

var sectionLabels = map[string]string{
	SectionFavourites:  "Favourites",
	SectionDMs:         "Direct Messages",
	SectionRooms:       "Rooms",
	SectionLowPriority: "Low Priority",
}

var sectionOrder = []string{SectionFavourites, SectionDMs, SectionRooms, SectionLowPriority}

// SectionLabel returns the heading for key.
func SectionLabel(key string) string {
	return sectionLabels[key]
}

// Section is a labelled group of rooms in display order.
type Section struct {
	Key       string
	Label     string
	Collapsed bool
	Rooms     []model.RoomEntry
}

// Row is one line of the sidebar: a section header or a room.
type Row struct {
	Section string
	Header  bool
	Room    model.RoomEntry
}

// =============================================================================
// ROOM LIST
// =============================================================================

// RoomList is the sidebar state.
type RoomList struct {
	rooms     []model.RoomEntry
	filter    string
	sortMode  model.SortMode
	collapsed map[string]bool
	selected  string
	cursor    int
}

// NewRoomList creates an empty list with persisted preferences applied.
func NewRoomList(mode model.SortMode, collapsed map[string]bool) *RoomList {
	if !mode.Valid() {
		mode = model.SortRecentActivity
	}
	c := make(map[string]bool, len(collapsed))
	for k, v := range collapsed {
		c[k] = v
	}
	return &RoomList{sortMode: mode, collapsed: c}
}

// SetRooms replaces the room set with the latest SDK snapshot. The cursor
// follows the room it was on when possible.
func (l *RoomList) SetRooms(rooms []model.RoomEntry) {
	current, hadRow := l.CursorRow()
	l.rooms = rooms
	if hadRow {
		l.restoreCursor(current)
	}
	l.clampCursor()
}

// Rooms returns every room regardless of filter.
func (l *RoomList) Rooms() []model.RoomEntry { return l.rooms }

// Room looks up a room by ID.
func (l *RoomList) Room(roomID string) (model.RoomEntry, bool) {
	for _, r := range l.rooms {
		if r.RoomID == roomID {
			return r, true
		}
	}
	return model.RoomEntry{}, false
}

func (l *RoomList) update(roomID string, fn func(*model.RoomEntry)) bool {
	for i := range l.rooms {
		if l.rooms[i].RoomID == roomID {
			fn(&l.rooms[i])
			return true
		}
	}
	return false
}

// SetFavourite flips the favourite flag locally ahead of the server echo.
func (l *RoomList) SetFavourite(roomID string, fav bool) bool {
	return l.update(roomID, func(r *model.RoomEntry) { r.IsFavourite = fav })
}

// ClearUnread zeroes the counters of a room that has been read.
func (l *RoomList) ClearUnread(roomID string) bool {
	return l.update(roomID, func(r *model.RoomEntry) {
		r.UnreadCount = 0
		r.MentionCount = 0
	})
}

// Selected returns the selected room ID, or "".
func (l *RoomList) Selected() string { return l.selected }

// Select marks roomID as the open room. It reports false when it already was.
func (l *RoomList) Select(roomID string) bool {
	if l.selected == roomID {
		return false
	}
	l.selected = roomID
	return true
}

// Deselect clears the selection.
func (l *RoomList) Deselect() { l.selected = "" }

// SelectedRoomName returns the name of the selected room, or "".
func (l *RoomList) SelectedRoomName() string {
	if r, ok := l.Room(l.selected); ok {
		return r.Name
	}
	return ""
}

// Filter returns the search text.
func (l *RoomList) Filter() string { return l.filter }

// SetFilter changes the search text and moves the cursor to the top.
func (l *RoomList) SetFilter(filter string) {
	if filter == l.filter {
		return
	}
	l.filter = filter
	l.cursor = 0
	l.clampCursor()
}

// SortMode returns the active ordering.
func (l *RoomList) SortMode() model.SortMode { return l.sortMode }

// SetSortMode changes the ordering.
func (l *RoomList) SetSortMode(mode model.SortMode) {
	if mode.Valid() {
		l.sortMode = mode
	}
}

// Collapsed returns a copy of the collapsed section map for persisting.
func (l *RoomList) Collapsed() map[string]bool {
	out := make(map[string]bool, len(l.collapsed))
	for k, v := range l.collapsed {
		out[k] = v
	}
	return out
}

// IsCollapsed reports whether section key is folded.
func (l *RoomList) IsCollapsed(key string) bool { return l.collapsed[key] }

// ToggleSection folds or unfolds a section and returns the new state.
func (l *RoomList) ToggleSection(key string) bool {
	l.collapsed[key] = !l.collapsed[key]
	l.clampCursor()
	return l.collapsed[key]
}

// =============================================================================
// SECTIONS
// =============================================================================

func classify(r model.RoomEntry) string {
	switch {
	case r.IsFavourite:
		return SectionFavourites
	case r.IsLowPriority:
		return SectionLowPriority
	case r.IsDM:
		return SectionDMs
	default:
		return SectionRooms
	}
}

// Sections returns rooms matching the filter grouped and sorted for display.
// Empty sections are omitted.
func (l *RoomList) Sections() []Section {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(l.filter))

	type keyed struct {
		room model.RoomEntry
		name string
	}
	groups := make(map[string][]keyed, len(sectionOrder))
	for _, r := range l.rooms {
		name := fold.String(r.Name)
		if query != "" && !strings.Contains(name, query) {
			continue
		}
		key := classify(r)
		groups[key] = append(groups[key], keyed{room: r, name: name})
	}

	mode := l.sortMode
	sections := make([]Section, 0, len(sectionOrder))
	for _, key := range sectionOrder {
		list := groups[key]
		if len(list) == 0 {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if au, bu := a.room.HasUnread(), b.room.HasUnread(); au != bu {
				return au
			}
			if mode == model.SortRecentActivity && !a.room.LastMessageTS.Equal(b.room.LastMessageTS) {
				return a.room.LastMessageTS.After(b.room.LastMessageTS)
			}
			return a.name < b.name
		})
		rooms := make([]model.RoomEntry, len(list))
		for i, k := range list {
			rooms[i] = k.room
		}
		sections = append(sections, Section{
			Key:       key,
			Label:     sectionLabels[key],
			Collapsed: l.collapsed[key],
			Rooms:     rooms,
		})
	}
	return sections
}

// Rows flattens Sections into sidebar lines, leaving out rooms of collapsed
// sections.
func (l *RoomList) Rows() []Row {
	var rows []Row
	for _, s := range l.Sections() {
		rows = append(rows, Row{Section: s.Key, Header: true})
		if s.Collapsed {
			continue
		}
		for _, r := range s.Rooms {
			rows = append(rows, Row{Section: s.Key, Room: r})
		}
	}
	return rows
}

// =============================================================================
// CURSOR
// =============================================================================

// Cursor returns the highlighted row index.
func (l *RoomList) Cursor() int { return l.cursor }

// CursorRow returns the highlighted row.
func (l *RoomList) CursorRow() (Row, bool) {
	rows := l.Rows()
	if l.cursor < 0 || l.cursor >= len(rows) {
		return Row{}, false
	}
	return rows[l.cursor], true
}

// MoveCursor moves the highlight by delta rows, clamped to the list.
func (l *RoomList) MoveCursor(delta int) {
	l.cursor += delta
	l.clampCursor()
}

// CursorToRoom highlights roomID if it is visible.
func (l *RoomList) CursorToRoom(roomID string) bool {
	for i, row := range l.Rows() {
		if !row.Header && row.Room.RoomID == roomID {
			l.cursor = i
			return true
		}
	}
	return false
}

// NextUnread returns the first room with unread messages after the cursor,
// wrapping around.
func (l *RoomList) NextUnread() (model.RoomEntry, bool) {
	rows := l.Rows()
	for i := 1; i <= len(rows); i++ {
		row := rows[(l.cursor+i)%len(rows)]
		if !row.Header && row.Room.HasUnread() {
			return row.Room, true
		}
	}
	return model.RoomEntry{}, false
}

func (l *RoomList) restoreCursor(prev Row) {
	for i, row := range l.Rows() {
		sameHeader := prev.Header && row.Header && row.Section == prev.Section
		sameRoom := !prev.Header && !row.Header && row.Room.RoomID == prev.Room.RoomID
		if sameHeader || sameRoom {
			l.cursor = i
			return
		}
	}
}

func (l *RoomList) clampCursor() {
	n := len(l.Rows())
	if l.cursor >= n {
		l.cursor = n - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}
