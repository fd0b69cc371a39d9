// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// Update is a value emitted by the sync loop. The UI receives them from
// Client.Updates one at a time.
type Update interface {
	isUpdate()
}

// RoomsUpdated carries the full joined room list after a sync batch.
type RoomsUpdated struct {
	Rooms []model.RoomEntry
}

// IncomingEvents carries new timeline items for one room, in order.
// Edits holds replacement content for messages already on screen.
type IncomingEvents struct {
	RoomID string
	Items  []model.TimelineItem
	Edits  []*model.Message
}

// EventDecrypted replaces a placeholder once its keys arrive.
type EventDecrypted struct {
	RoomID  string
	Message *model.Message
}

// VerificationRequested reports an incoming SAS request.
type VerificationRequested struct {
	Request model.VerificationRequest
}

// VerificationChanged reports progress of the active verification.
type VerificationChanged struct {
	State model.VerificationState
}

// SyncFailed reports a failed sync request. Initial is set when the very
// first sync failed, in which case the loop has stopped.
type SyncFailed struct {
	Err     error
	Initial bool
}

// SessionExpired means the server rejected the access token. The loop
// has stopped and the stored session should be discarded.
type SessionExpired struct{}

// SyncStopped is the last update sent before the channel closes.
type SyncStopped struct {
	Err error
}

func (RoomsUpdated) isUpdate()          {}
func (IncomingEvents) isUpdate()        {}
func (EventDecrypted) isUpdate()        {}
func (VerificationRequested) isUpdate() {}
func (VerificationChanged) isUpdate()   {}
func (SyncFailed) isUpdate()            {}
func (SessionExpired) isUpdate()        {}
func (SyncStopped) isUpdate()           {}
