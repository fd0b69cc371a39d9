// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"encoding/json"
	"regexp"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

// =============================================================================
// TEXTS
// =============================================================================

const (
	textUndecryptable = "[Unable to decrypt]"
	textUnsupported   = "[Unsupported message type]"
)

// memberLookup returns the display name and avatar of userID in the room
// being converted. An empty name falls back to the localpart.
type memberLookup func(userID string) (display, avatar string)

func noMembers(string) (string, string) { return "", "" }

func displayOf(lookup memberLookup, userID string) (string, string) {
	if lookup == nil {
		lookup = noMembers
	}
	name, avatar := lookup(userID)
	name = util.StripControl(name)
	if name == "" {
		name = model.Localpart(userID)
	}
	return name, avatar
}

var mxReply = regexp.MustCompile(`(?s)<mx-reply>.*?</mx-reply>`)

// =============================================================================
// MESSAGES
// =============================================================================

func eventTime(evt *event.Event) time.Time {
	if evt.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(evt.Timestamp).Local()
}

func baseMessage(evt *event.Event, lookup memberLookup) *model.Message {
	sender := evt.Sender.String()
	display, avatar := displayOf(lookup, sender)
	ts := eventTime(evt)
	msg := &model.Message{
		EventID:         evt.ID.String(),
		Sender:          sender,
		SenderDisplay:   display,
		SenderAvatarURL: avatar,
		TS:              ts,
	}
	if !ts.IsZero() {
		msg.Timestamp = ts.Format("15:04")
	}
	return msg
}

// convertMessage turns an m.room.message event into a timeline message.
// It returns nil for events with no message content.
func convertMessage(evt *event.Event, lookup memberLookup) *model.Message {
	content := evt.Content.AsMessage()
	if content == nil {
		return nil
	}
	msg := baseMessage(evt, lookup)
	fillContent(msg, content)

	if rel := content.RelatesTo; rel != nil {
		msg.ReplyToEventID = rel.GetReplyTo().String()
	}
	return msg
}

// fillContent sets the body-derived fields of msg from content.
func fillContent(msg *model.Message, content *event.MessageEventContent) {
	body := content.Body
	switch content.MsgType {
	case event.MsgText:
	case event.MsgEmote:
		msg.IsEmote = true
	case event.MsgNotice:
		msg.IsNotice = true
	case event.MsgImage:
		msg.Image = mediaSource(content)
	case event.MsgFile:
		body = "[File] " + fileName(content)
		msg.File = mediaSource(content)
	case event.MsgAudio:
		body = "[Audio] " + fileName(content)
		msg.File = mediaSource(content)
	case event.MsgVideo:
		body = "[Video] " + fileName(content)
		msg.File = mediaSource(content)
	case event.MsgLocation:
		body = "[Location] " + content.Body
		if content.GeoURI != "" {
			body += " (" + string(content.GeoURI) + ")"
		}
	default:
		body = textUnsupported
	}

	if sender, preview, rest, ok := model.StripReplyFallback(body); ok {
		msg.ReplyToSender = util.StripControl(sender)
		msg.ReplyToBody = util.StripControl(preview)
		body = rest
	}
	msg.Body = util.StripControl(body)

	if content.Format == event.FormatHTML && content.FormattedBody != "" {
		msg.FormattedBody = mxReply.ReplaceAllString(content.FormattedBody, "")
	}
}

func fileName(content *event.MessageEventContent) string {
	if content.FileName != "" {
		return content.FileName
	}
	return content.Body
}

func mediaSource(content *event.MessageEventContent) *model.MediaSource {
	src := &model.MediaSource{
		URI:  string(content.URL),
		File: content.File,
		Name: fileName(content),
	}
	if content.File != nil {
		src.URI = string(content.File.URL)
	}
	if info := content.Info; info != nil {
		src.MimeType = info.MimeType
		src.Width = info.Width
		src.Height = info.Height
		src.Size = info.Size
	}
	if src.URI == "" {
		return nil
	}
	return src
}

// undecryptable is the placeholder for an encrypted event without keys.
func undecryptable(evt *event.Event, lookup memberLookup) *model.Message {
	msg := baseMessage(evt, lookup)
	msg.Body = textUndecryptable
	msg.Undecryptable = true
	return msg
}

// =============================================================================
// EDITS
// =============================================================================

// editOf returns the replacement for an m.replace event: the ID of the
// edited event and its new content rendered as a message. ok is false for
// anything that is not an edit.
func editOf(evt *event.Event, lookup memberLookup) (targetID string, msg *model.Message, ok bool) {
	content := evt.Content.AsMessage()
	if content == nil || content.RelatesTo == nil {
		return "", nil, false
	}
	target := content.RelatesTo.GetReplaceID()
	if target == "" {
		return "", nil, false
	}

	msg = baseMessage(evt, lookup)
	msg.EventID = target.String()
	msg.Edited = true
	if content.NewContent != nil {
		fillContent(msg, content.NewContent)
	} else {
		fillContent(msg, content)
	}
	return target.String(), msg, true
}

// =============================================================================
// STATE EVENTS
// =============================================================================

type memberSnapshot struct {
	Membership  event.Membership `json:"membership"`
	Displayname string           `json:"displayname"`
}

func previousMember(evt *event.Event) memberSnapshot {
	var prev memberSnapshot
	if evt.Unsigned.PrevContent != nil && len(evt.Unsigned.PrevContent.VeryRaw) > 0 {
		_ = json.Unmarshal(evt.Unsigned.PrevContent.VeryRaw, &prev)
	}
	return prev
}

// stateText describes a state event for the timeline. Events that are not
// worth showing yield "".
func stateText(evt *event.Event, lookup memberLookup) string {
	return util.StripControl(describeState(evt, lookup))
}

func describeState(evt *event.Event, lookup memberLookup) string {
	switch evt.Type {
	case event.StateMember:
		content := evt.Content.AsMember()
		if content == nil || evt.StateKey == nil {
			return ""
		}
		target := *evt.StateKey
		name := content.Displayname
		if name == "" {
			name, _ = displayOf(lookup, target)
		}
		prev := previousMember(evt)

		switch content.Membership {
		case event.MembershipJoin:
			if prev.Membership == event.MembershipJoin {
				if prev.Displayname != content.Displayname && content.Displayname != "" {
					old := prev.Displayname
					if old == "" {
						old = model.Localpart(target)
					}
					return old + " changed their name to " + content.Displayname
				}
				return ""
			}
			return name + " joined the room"
		case event.MembershipLeave:
			if prev.Membership == event.MembershipInvite && evt.Sender.String() == target {
				return name + " rejected the invite"
			}
			return name + " left the room"
		case event.MembershipInvite:
			return name + " was invited"
		case event.MembershipBan:
			return name + " was banned"
		}
		return ""

	case event.StateRoomName:
		if content := evt.Content.AsRoomName(); content != nil {
			return "Room name changed to: " + content.Name
		}
	case event.StateTopic:
		if content := evt.Content.AsTopic(); content != nil {
			return "Topic changed to: " + content.Topic
		}
	case event.StateEncryption:
		return "Encryption enabled"
	}
	return ""
}
