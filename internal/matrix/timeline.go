// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"fmt"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

func (c *Client) pageSize() int {
	if n := c.opts.Config.Timeline.PageSize; n > 0 {
		return n
	}
	return 30
}

// LoadTimeline returns the newest page of roomID and the token for the
// page before it.
func (c *Client) LoadTimeline(ctx context.Context, roomID string) ([]model.TimelineItem, string, error) {
	return c.LoadHistory(ctx, roomID, "")
}

// LoadHistory returns the page of roomID that ends at token, oldest first.
// The returned token is empty once the start of the room is reached.
func (c *Client) LoadHistory(ctx context.Context, roomID, token string) ([]model.TimelineItem, string, error) {
	resp, err := c.cli.Messages(ctx, id.RoomID(roomID), token, "", mautrix.DirectionBackward,
		&mautrix.FilterPart{LazyLoadMembers: true}, c.pageSize())
	if err != nil {
		return nil, "", fmt.Errorf("failed to load messages: %w", err)
	}

	for _, evt := range resp.State {
		evt.RoomID = id.RoomID(roomID)
		c.prepareEvent(evt)
		c.rooms.applyState(roomID, evt)
	}

	lookup := c.rooms.lookup(roomID)
	b := model.NewBuilder(time.Now())
	var edits []*model.Message

	for i := len(resp.Chunk) - 1; i >= 0; i-- {
		evt := resp.Chunk[i]
		evt.RoomID = id.RoomID(roomID)
		c.prepareEvent(evt)

		if evt.Type == event.EventEncrypted {
			decrypted, err := c.decrypt(ctx, evt)
			if err != nil {
				c.log.Debug().Err(err).Str("event_id", evt.ID.String()).Msg("history event undecryptable")
				b.AddMessage(undecryptable(evt, lookup))
				continue
			}
			evt = decrypted
		}

		switch {
		case evt.StateKey != nil:
			b.AddState(stateText(evt, lookup), eventTime(evt))
		case evt.Type == event.EventMessage:
			if _, edit, ok := editOf(evt, lookup); ok {
				edits = append(edits, edit)
				continue
			}
			if msg := convertMessage(evt, lookup); msg != nil {
				b.AddMessage(msg)
			}
		}
	}

	items := b.Items()
	for _, edit := range edits {
		if i := model.FindMessage(items, edit.EventID); i >= 0 {
			items[i].Message = model.MergeEdit(items[i].Message, edit)
		}
	}

	next := resp.End
	if len(resp.Chunk) == 0 {
		next = ""
	}
	return items, next, nil
}

// prepareEvent fills in what the sync path sets for us: the type class
// and parsed content.
func (c *Client) prepareEvent(evt *event.Event) {
	if evt.StateKey != nil {
		evt.Type.Class = event.StateEventType
	} else {
		evt.Type.Class = event.MessageEventType
	}
	if evt.Content.Parsed != nil {
		return
	}
	if err := evt.Content.ParseRaw(evt.Type); err != nil {
		c.log.Trace().Err(err).Str("type", evt.Type.Type).Msg("unparsed event content")
	}
}

func (c *Client) decrypt(ctx context.Context, evt *event.Event) (*event.Event, error) {
	if c.cli.Crypto == nil {
		return nil, ErrNoCrypto
	}
	return c.cli.Crypto.Decrypt(ctx, evt)
}
