// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"errors"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// =============================================================================
// SYNCER
// =============================================================================

// batchSyncer wraps the SDK syncer so that everything dispatched for one
// sync response reaches the UI as one set of updates.
type batchSyncer struct {
	*mautrix.DefaultSyncer
	c *Client
}

func syncFilter(cfg *config.Config) *mautrix.Filter {
	limit := 30
	if cfg != nil && cfg.Timeline.PageSize > 0 {
		limit = cfg.Timeline.PageSize
	}
	return &mautrix.Filter{
		Room: &mautrix.RoomFilter{
			State:    &mautrix.FilterPart{LazyLoadMembers: true},
			Timeline: &mautrix.FilterPart{LazyLoadMembers: true, Limit: limit},
		},
	}
}

// ProcessResponse feeds room summaries to the cache, lets the SDK dispatch
// the events, then flushes what the handlers collected.
func (s *batchSyncer) ProcessResponse(ctx context.Context, res *mautrix.RespSync, since string) error {
	c := s.c
	for roomID, jr := range res.Rooms.Join {
		c.rooms.applyJoined(roomID.String(), jr)
	}

	c.acc.begin()
	err := s.DefaultSyncer.ProcessResponse(ctx, res, since)
	batch := c.acc.end()

	for roomID := range res.Rooms.Leave {
		c.rooms.remove(roomID.String())
	}

	first := c.synced.CompareAndSwap(false, true)
	if first || len(res.Rooms.Join) > 0 || len(res.Rooms.Leave) > 0 || len(res.AccountData.Events) > 0 {
		c.emit(RoomsUpdated{Rooms: c.rooms.entries()})
	}
	for _, roomID := range batch.order {
		if !c.rooms.hasRoom(roomID) {
			continue
		}
		c.emit(IncomingEvents{RoomID: roomID, Items: batch.items[roomID], Edits: batch.edits[roomID]})
	}
	return err
}

// OnFailedSync waits RetryDelay between attempts. A failure before the
// first successful sync, or a revoked token, stops the loop; the sync
// goroutine reports the revoked token.
func (s *batchSyncer) OnFailedSync(_ *mautrix.RespSync, err error) (time.Duration, error) {
	c := s.c
	if errors.Is(err, mautrix.MUnknownToken) {
		return 0, err
	}
	initial := !c.synced.Load()
	c.emit(SyncFailed{Err: err, Initial: initial})
	if initial {
		return 0, err
	}
	c.log.Warn().Err(err).Msg("sync failed, retrying")
	return c.opts.Config.SyncRetryDelay(), nil
}

// =============================================================================
// BATCH ACCUMULATOR
// =============================================================================

type batch struct {
	order []string
	items map[string][]model.TimelineItem
	edits map[string][]*model.Message
	seen  map[string]bool
}

// accumulator collects handler output while a sync response is being
// dispatched. Outside a batch add reports false and the caller emits
// directly.
type accumulator struct {
	mu     sync.Mutex
	active bool
	cur    batch
}

func (a *accumulator) begin() {
	a.mu.Lock()
	a.active = true
	a.cur = batch{
		items: make(map[string][]model.TimelineItem),
		edits: make(map[string][]*model.Message),
		seen:  make(map[string]bool),
	}
	a.mu.Unlock()
}

func (a *accumulator) end() batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
	b := a.cur
	a.cur = batch{}
	return b
}

func (a *accumulator) touch(roomID string) {
	if _, ok := a.cur.items[roomID]; ok {
		return
	}
	if _, ok := a.cur.edits[roomID]; ok {
		return
	}
	a.cur.order = append(a.cur.order, roomID)
}

func (a *accumulator) add(roomID, eventID string, item model.TimelineItem) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return false
	}
	if eventID != "" {
		a.cur.seen[eventID] = true
	}
	a.touch(roomID)
	a.cur.items[roomID] = append(a.cur.items[roomID], item)
	return true
}

func (a *accumulator) addEdit(roomID string, edit *model.Message) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return false
	}
	a.touch(roomID)
	a.cur.edits[roomID] = append(a.cur.edits[roomID], edit)
	return true
}

func (a *accumulator) seen(eventID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active && a.cur.seen[eventID]
}

// pendingSet remembers events shown as undecryptable so a later
// decryption replaces them instead of being appended again.
type pendingSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newPendingSet() pendingSet {
	return pendingSet{ids: make(map[string]bool)}
}

func (p *pendingSet) add(eventID string) {
	p.mu.Lock()
	p.ids[eventID] = true
	p.mu.Unlock()
}

func (p *pendingSet) take(eventID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ids[eventID] {
		return false
	}
	delete(p.ids, eventID)
	return true
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func (c *Client) registerHandlers(s *mautrix.DefaultSyncer) {
	s.OnEventType(event.EventMessage, c.onMessage)
	s.OnEventType(event.EventEncrypted, c.onEncrypted)
	for _, t := range []event.Type{
		event.StateMember,
		event.StateRoomName,
		event.StateCanonicalAlias,
		event.StateTopic,
		event.StateRoomAvatar,
		event.StateEncryption,
	} {
		s.OnEventType(t, c.onState)
	}
	s.OnEventType(event.AccountDataRoomTags, c.onTags)
	s.OnEventType(event.AccountDataDirectChats, c.onDirect)
}

func (c *Client) onMessage(_ context.Context, evt *event.Event) {
	roomID := evt.RoomID.String()
	lookup := c.rooms.lookup(roomID)

	if _, edit, ok := editOf(evt, lookup); ok {
		if !c.acc.addEdit(roomID, edit) {
			c.emit(IncomingEvents{RoomID: roomID, Edits: []*model.Message{edit}})
		}
		return
	}

	msg := convertMessage(evt, lookup)
	if msg == nil {
		return
	}
	c.rooms.noteMessage(roomID, msg)

	if c.utd.take(msg.EventID) {
		c.emit(EventDecrypted{RoomID: roomID, Message: msg})
		return
	}
	if !c.acc.add(roomID, msg.EventID, model.MessageItem(msg)) {
		c.emit(IncomingEvents{RoomID: roomID, Items: []model.TimelineItem{model.MessageItem(msg)}})
	}
}

// onEncrypted runs after the crypto helper. When decryption succeeded the
// plaintext has already been dispatched to onMessage.
func (c *Client) onEncrypted(_ context.Context, evt *event.Event) {
	if c.acc.seen(evt.ID.String()) {
		return
	}
	roomID := evt.RoomID.String()
	msg := undecryptable(evt, c.rooms.lookup(roomID))
	c.utd.add(msg.EventID)
	c.rooms.noteMessage(roomID, msg)
	c.acc.add(roomID, msg.EventID, model.MessageItem(msg))
}

func (c *Client) onState(_ context.Context, evt *event.Event) {
	// Invite state would add the room to the joined list.
	if evt.Mautrix.EventSource&event.SourceInvite != 0 {
		return
	}
	roomID := evt.RoomID.String()
	// Describe before applying so the previous display name is still known.
	text := ""
	if evt.Mautrix.EventSource&event.SourceTimeline != 0 {
		text = stateText(evt, c.rooms.lookup(roomID))
	}
	c.rooms.applyState(roomID, evt)
	if text != "" {
		c.acc.add(roomID, "", model.StateItem(text))
	}
}

func (c *Client) onTags(_ context.Context, evt *event.Event) {
	c.rooms.setTags(evt.RoomID.String(), evt.Content.AsTag())
}

func (c *Client) onDirect(_ context.Context, evt *event.Event) {
	c.rooms.setDirect(evt.Content.AsDirectChats())
}
