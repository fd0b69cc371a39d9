// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// OwnProfile fetches the user's display name and avatar. Lookup failures
// leave the field empty.
func (c *Client) OwnProfile(ctx context.Context) (model.Profile, error) {
	p := model.Profile{
		UserID:       c.stored.UserID,
		DeviceID:     c.stored.DeviceID,
		CrossSigning: c.CrossSigningStatus(ctx),
	}
	if resp, err := c.cli.GetOwnDisplayName(ctx); err != nil {
		c.log.Debug().Err(err).Msg("display name lookup failed")
	} else {
		p.DisplayName = resp.DisplayName
	}
	if uri, err := c.cli.GetOwnAvatarURL(ctx); err != nil {
		c.log.Debug().Err(err).Msg("avatar lookup failed")
	} else if !uri.IsEmpty() {
		p.AvatarURL = uri.String()
	}
	return p, nil
}

// SetDisplayName changes the global display name.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	if err := c.cli.SetDisplayName(ctx, name); err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	return nil
}

// SetAvatar uploads the image at path and makes it the user's avatar. It
// returns the new mxc URI.
func (c *Client) SetAvatar(ctx context.Context, path string) (string, error) {
	data, err := c.readUpload(path)
	if err != nil {
		return "", err
	}
	mimeType := detectMIME(path, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", filepath.Base(path), mimeType)
	}
	uri, _, err := c.upload(ctx, filepath.Base(path), mimeType, data, false)
	if err != nil {
		return "", err
	}
	if err := c.cli.SetAvatarURL(ctx, uri); err != nil {
		return "", fmt.Errorf("set avatar: %w", err)
	}
	return uri.String(), nil
}

// ClearAvatar removes the user's avatar.
func (c *Client) ClearAvatar(ctx context.Context) error {
	if err := c.cli.SetAvatarURL(ctx, id.ContentURI{}); err != nil {
		return fmt.Errorf("remove avatar: %w", err)
	}
	return nil
}

// SetFavourite adds or removes the m.favourite tag on roomID.
func (c *Client) SetFavourite(ctx context.Context, roomID string, fav bool) error {
	var err error
	if fav {
		err = c.cli.AddTagWithCustomData(ctx, id.RoomID(roomID), event.RoomTagFavourite, &event.TagMetadata{})
	} else {
		err = c.cli.RemoveTag(ctx, id.RoomID(roomID), event.RoomTagFavourite)
	}
	if err != nil {
		return fmt.Errorf("update favourite: %w", err)
	}
	c.rooms.setTag(roomID, event.RoomTagFavourite, fav)
	return nil
}
