// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/attachment"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// ErrAttachmentTooLarge is returned for files above media.max_upload_mb.
var ErrAttachmentTooLarge = errors.New("attachment too large")

const typingTimeout = 10 * time.Second

func (c *Client) send(ctx context.Context, roomID string, content *event.MessageEventContent) error {
	_, err := c.cli.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content,
		mautrix.ReqSendEvent{TransactionID: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// SendText sends a plain text message, as a reply when replyTo is set.
// Encryption is applied by the SDK for encrypted rooms.
func (c *Client) SendText(ctx context.Context, roomID, body, replyTo string) error {
	content := &event.MessageEventContent{MsgType: event.MsgText, Body: body}
	if strings.HasPrefix(body, "/me ") {
		content.MsgType = event.MsgEmote
		content.Body = strings.TrimPrefix(body, "/me ")
	}
	if replyTo != "" {
		content.RelatesTo = &event.RelatesTo{InReplyTo: &event.InReplyTo{EventID: id.EventID(replyTo)}}
	}
	return c.send(ctx, roomID, content)
}

// msgTypeFor picks the message type for an upload from its MIME type.
func msgTypeFor(mimeType string) event.MessageType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return event.MsgImage
	case strings.HasPrefix(mimeType, "video/"):
		return event.MsgVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return event.MsgAudio
	default:
		return event.MsgFile
	}
}

// upload stores data on the media repository. In encrypted rooms the bytes
// are encrypted first and the returned file info carries the keys.
func (c *Client) upload(ctx context.Context, name, mimeType string, data []byte, encrypt bool) (id.ContentURI, *event.EncryptedFileInfo, error) {
	req := mautrix.ReqUploadMedia{ContentBytes: data, ContentType: mimeType, FileName: name}

	var file *attachment.EncryptedFile
	if encrypt {
		file = attachment.NewEncryptedFile()
		buf := append([]byte(nil), data...)
		file.EncryptInPlace(buf)
		req.ContentBytes = buf
		req.ContentType = "application/octet-stream"
	}

	resp, err := c.cli.UploadMedia(ctx, req)
	if err != nil {
		return id.ContentURI{}, nil, fmt.Errorf("upload failed: %w", err)
	}
	if file == nil {
		return resp.ContentURI, nil, nil
	}
	return resp.ContentURI, &event.EncryptedFileInfo{EncryptedFile: *file, URL: resp.ContentURI.CUString()}, nil
}

func (c *Client) readUpload(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if limit := int64(c.opts.Config.Media.MaxUploadMB) << 20; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d MB", ErrAttachmentTooLarge,
			filepath.Base(path), info.Size(), c.opts.Config.Media.MaxUploadMB)
	}
	return os.ReadFile(path)
}

// SendAttachment uploads the file at path and posts it to roomID.
func (c *Client) SendAttachment(ctx context.Context, roomID, path string) error {
	data, err := c.readUpload(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	mimeType := detectMIME(name, data)

	content := &event.MessageEventContent{
		MsgType:  msgTypeFor(mimeType),
		Body:     name,
		FileName: name,
		Info:     &event.FileInfo{MimeType: mimeType, Size: len(data)},
	}
	if content.MsgType == event.MsgImage {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			content.Info.Width, content.Info.Height = cfg.Width, cfg.Height
		}
	}

	uri, file, err := c.upload(ctx, name, mimeType, data, c.rooms.isEncrypted(roomID))
	if err != nil {
		return err
	}
	if file != nil {
		content.File = file
	} else {
		content.URL = uri.CUString()
	}
	return c.send(ctx, roomID, content)
}

// MarkRead moves the read marker and receipt to eventID.
func (c *Client) MarkRead(ctx context.Context, roomID, eventID string) error {
	if eventID == "" {
		return nil
	}
	if err := c.cli.MarkRead(ctx, id.RoomID(roomID), id.EventID(eventID)); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	c.rooms.clearUnread(roomID)
	return nil
}

// SetTyping sends a typing notice. Starts are rate-limited; stops are
// always sent.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool) error {
	if !c.opts.Config.UI.TypingNotices {
		return nil
	}
	if typing && !c.typing.Allow() {
		return nil
	}
	_, err := c.cli.UserTyping(ctx, id.RoomID(roomID), typing, typingTimeout)
	return err
}
