// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const lastMessageRunes = 120

type member struct {
	display string
	avatar  string
}

type roomInfo struct {
	id             string
	name           string
	canonicalAlias string
	topic          string
	avatarURL      string
	encrypted      bool

	heroes  []string
	joined  int
	invited int

	unread    int
	highlight int

	lastMessage string
	lastTS      time.Time

	members map[string]member
}

// roomCache tracks the room metadata the room list needs. It is fed from
// sync responses and state events and read by the UI through entries.
type roomCache struct {
	mu     sync.RWMutex
	ownID  string
	rooms  map[string]*roomInfo
	tags   map[string]map[event.RoomTag]bool
	direct map[string]bool
}

func newRoomCache(ownID string) *roomCache {
	return &roomCache{
		ownID:  ownID,
		rooms:  make(map[string]*roomInfo),
		tags:   make(map[string]map[event.RoomTag]bool),
		direct: make(map[string]bool),
	}
}

func (c *roomCache) room(roomID string) *roomInfo {
	r, ok := c.rooms[roomID]
	if !ok {
		r = &roomInfo{id: roomID, members: make(map[string]member)}
		c.rooms[roomID] = r
	}
	return r
}

// applyJoined records the summary and notification counts of a joined room.
func (c *roomCache) applyJoined(roomID string, jr *mautrix.SyncJoinedRoom) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.room(roomID)
	if jr == nil {
		return
	}
	if len(jr.Summary.Heroes) > 0 {
		r.heroes = r.heroes[:0]
		for _, h := range jr.Summary.Heroes {
			r.heroes = append(r.heroes, h.String())
		}
	}
	if jr.Summary.JoinedMemberCount != nil {
		r.joined = *jr.Summary.JoinedMemberCount
	}
	if jr.Summary.InvitedMemberCount != nil {
		r.invited = *jr.Summary.InvitedMemberCount
	}
	if jr.UnreadNotifications != nil {
		r.unread = jr.UnreadNotifications.NotificationCount
		r.highlight = jr.UnreadNotifications.HighlightCount
	}
}

func (c *roomCache) remove(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
	delete(c.tags, roomID)
}

// applyState updates metadata from a state event of roomID. Names and
// topics are stored without control characters.
func (c *roomCache) applyState(roomID string, evt *event.Event) {
	if evt.StateKey == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.room(roomID)

	switch evt.Type {
	case event.StateRoomName:
		if content := evt.Content.AsRoomName(); content != nil {
			r.name = util.StripControl(content.Name)
		}
	case event.StateCanonicalAlias:
		if content := evt.Content.AsCanonicalAlias(); content != nil {
			r.canonicalAlias = util.StripControl(content.Alias.String())
		}
	case event.StateTopic:
		if content := evt.Content.AsTopic(); content != nil {
			r.topic = util.StripControl(content.Topic)
		}
	case event.StateRoomAvatar:
		if content := evt.Content.AsRoomAvatar(); content != nil {
			r.avatarURL = string(content.URL)
		}
	case event.StateEncryption:
		r.encrypted = true
	case event.StateMember:
		content := evt.Content.AsMember()
		if content == nil {
			return
		}
		userID := *evt.StateKey
		switch content.Membership {
		case event.MembershipJoin, event.MembershipInvite:
			r.members[userID] = member{
				display: util.StripControl(content.Displayname),
				avatar:  string(content.AvatarURL),
			}
		default:
			delete(r.members, userID)
		}
	}
}

// noteMessage records the newest message preview of a room.
func (c *roomCache) noteMessage(roomID string, msg *model.Message) {
	if msg == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.room(roomID)
	if msg.TS.Before(r.lastTS) {
		return
	}
	r.lastTS = msg.TS
	r.lastMessage = util.Preview(msg.Body, lastMessageRunes)
}

// setTags replaces the tag set of roomID from m.tag room account data.
func (c *roomCache) setTags(roomID string, content *event.TagEventContent) {
	tags := make(map[event.RoomTag]bool, len(content.Tags))
	for name := range content.Tags {
		tags[name] = true
	}
	c.mu.Lock()
	c.tags[roomID] = tags
	c.mu.Unlock()
}

// setTag changes one tag locally after a successful server update.
func (c *roomCache) setTag(roomID string, tag event.RoomTag, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags := c.tags[roomID]
	if tags == nil {
		tags = make(map[event.RoomTag]bool)
		c.tags[roomID] = tags
	}
	if on {
		tags[tag] = true
	} else {
		delete(tags, tag)
	}
}

// setDirect replaces the DM room set from m.direct account data.
func (c *roomCache) setDirect(content *event.DirectChatsEventContent) {
	direct := make(map[string]bool)
	for _, rooms := range *content {
		for _, roomID := range rooms {
			direct[roomID.String()] = true
		}
	}
	c.mu.Lock()
	c.direct = direct
	c.mu.Unlock()
}

func (c *roomCache) lookup(roomID string) memberLookup {
	return func(userID string) (string, string) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		r, ok := c.rooms[roomID]
		if !ok {
			return "", ""
		}
		m := r.members[userID]
		return m.display, m.avatar
	}
}

func (c *roomCache) isEncrypted(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	return ok && r.encrypted
}

func (c *roomCache) hasRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

// =============================================================================
// NAMING
// =============================================================================

// heroesName builds a name from room heroes: "A", "A and B", or
// "A, B and N others". others counts every member except the own user.
func heroesName(names []string, others int) string {
	if others < len(names) {
		others = len(names)
	}
	switch {
	case len(names) == 0:
		return ""
	case others == 1:
		return names[0]
	case others == 2 && len(names) >= 2:
		return names[0] + " and " + names[1]
	case len(names) == 1:
		return fmt.Sprintf("%s and %s", names[0], countOthers(others-1))
	}
	return fmt.Sprintf("%s, %s and %s", names[0], names[1], countOthers(others-2))
}

func countOthers(n int) string {
	if n == 1 {
		return "1 other"
	}
	return fmt.Sprintf("%d others", n)
}

// displayName resolves the room name. The caller holds c.mu.
func (c *roomCache) displayName(r *roomInfo) string {
	if r.name != "" {
		return r.name
	}
	if r.canonicalAlias != "" {
		return r.canonicalAlias
	}

	var names []string
	for _, h := range r.heroes {
		if h == c.ownID {
			continue
		}
		name := r.members[h].display
		if name == "" {
			name = model.Localpart(h)
		}
		names = append(names, name)
	}
	others := r.joined + r.invited - 1
	if name := heroesName(names, others); name != "" {
		return name
	}
	return r.id
}

// entries returns one RoomEntry per known room, ordered by room ID so
// repeated syncs produce stable output.
func (c *roomCache) entries() []model.RoomEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.RoomEntry, 0, len(c.rooms))
	for id, r := range c.rooms {
		tags := c.tags[id]
		out = append(out, model.RoomEntry{
			RoomID:        id,
			Name:          c.displayName(r),
			Topic:         r.topic,
			UnreadCount:   r.unread,
			MentionCount:  r.highlight,
			IsEncrypted:   r.encrypted,
			LastMessage:   r.lastMessage,
			LastMessageTS: r.lastTS,
			AvatarURL:     r.avatarURL,
			IsFavourite:   tags[event.RoomTagFavourite],
			IsLowPriority: tags[event.RoomTagLowPriority],
			IsDM:          c.direct[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (c *roomCache) clearUnread(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rooms[roomID]; ok {
		r.unread, r.highlight = 0, 0
	}
}
