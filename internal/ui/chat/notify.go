// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const (
	notifyInterval = 10 * time.Second
	notifyBurst    = 3
	notifyPreview  = 120
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// DesktopNotifier sends notifications through the platform service.
type DesktopNotifier struct{}

// Notify implements Notifier.
func (DesktopNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// notifier decides which incoming messages deserve a notification:
// direct messages and mentions of the own user, in rooms other than the
// open one, limited to a few per interval.
type notifier struct {
	out     Notifier
	limit   *rate.Limiter
	enabled bool
	self    string
	words   []string
}

func newNotifier(out Notifier, self string) *notifier {
	fold := cases.Fold()
	words := []string{fold.String(self)}
	if local := model.Localpart(self); local != "" {
		words = append(words, fold.String(local))
	}
	return &notifier{
		out:   out,
		limit: rate.NewLimiter(rate.Every(notifyInterval), notifyBurst),
		self:  self,
		words: words,
	}
}

func (n *notifier) setEnabled(on bool) { n.enabled = on && n.out != nil }

// setDisplayName adds the own display name to the mention words.
func (n *notifier) setDisplayName(name string) {
	if name == "" {
		return
	}
	folded := cases.Fold().String(name)
	for _, w := range n.words {
		if w == folded {
			return
		}
	}
	n.words = append(n.words, folded)
}

func (n *notifier) mentions(body string) bool {
	folded := cases.Fold().String(body)
	for _, w := range n.words {
		if w != "" && strings.Contains(folded, w) {
			return true
		}
	}
	return false
}

// consider returns a command that notifies about the first message in
// items that qualifies, or nil.
func (n *notifier) consider(room model.RoomEntry, items []model.TimelineItem) tea.Cmd {
	if !n.enabled {
		return nil
	}
	for _, item := range items {
		msg := item.Message
		if item.Kind != model.ItemMessage || msg == nil || msg.Sender == n.self || msg.Undecryptable {
			continue
		}
		if !room.IsDM && !n.mentions(msg.Body) {
			continue
		}
		if !n.limit.Allow() {
			return nil
		}
		title := msg.SenderDisplay
		if !room.IsDM {
			title += " in " + room.Name
		}
		body := util.Preview(msg.Body, notifyPreview)
		out := n.out
		return func() tea.Msg {
			// Errors are dropped; a missing notification daemon is common.
			_ = out.Notify(title, body)
			return nil
		}
	}
	return nil
}
