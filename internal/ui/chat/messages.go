// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// =============================================================================
// SYNC
// =============================================================================

// updateMsg wraps one value read from Backend.Updates.
type updateMsg struct {
	update matrix.Update
}

// updatesClosedMsg is sent once the update channel has been drained.
type updatesClosedMsg struct{}

// =============================================================================
// RESULTS
// =============================================================================

type timelineLoadedMsg struct {
	RoomID string
	Items  []model.TimelineItem
	Token  string
	Err    error
}

type historyLoadedMsg struct {
	RoomID string
	Items  []model.TimelineItem
	Token  string
	Err    error
}

type sentMsg struct {
	RoomID string
	Body   string
	Err    error
}

type attachmentSentMsg struct {
	RoomID string
	Name   string
	Err    error
}

type mediaLoadedMsg struct {
	EventID string
	Data    []byte
	Err     error
}

// savedMediaMsg reports a file written to disk by the open action.
type savedMediaMsg struct {
	Path string
	Err  error
}

// exportedMsg reports a transcript written by /export.
type exportedMsg struct {
	Path string
	Err  error
}

type profileLoadedMsg struct {
	Profile model.Profile
	Avatar  []byte
	Err     error
}

// profileChangedMsg reports a display name or avatar change.
type profileChangedMsg struct {
	What string
	Err  error
}

type favouriteMsg struct {
	RoomID string
	Fav    bool
	Err    error
}

type crossSigningMsg struct {
	Status model.CrossSigningStatus
}

type bootstrapMsg struct {
	Err error
}

type verificationMsg struct {
	State model.VerificationState
	Err   error
}

type settingsSavedMsg struct {
	Err error
}

type copiedMsg struct {
	Err error
}

type typingSentMsg struct{}

// =============================================================================
// EXPORTED
// =============================================================================

// LoggedOutMsg is emitted after a successful logout. The backend is
// closed and the session removed.
type LoggedOutMsg struct {
	Err error
}

// SessionEndedMsg is emitted when the sync loop stops for good. Expired
// is set when the server revoked the access token.
type SessionEndedMsg struct {
	Expired bool
	Err     error
}
