// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// Backend is the account the view drives. *matrix.Client implements it;
// tests use a fake.
type Backend interface {
	UserID() string
	DeviceID() string

	StartSync(ctx context.Context)
	Updates() <-chan matrix.Update

	LoadTimeline(ctx context.Context, roomID string) ([]model.TimelineItem, string, error)
	LoadHistory(ctx context.Context, roomID, token string) ([]model.TimelineItem, string, error)
	SendText(ctx context.Context, roomID, body, replyTo string) error
	SendAttachment(ctx context.Context, roomID, path string) error
	MarkRead(ctx context.Context, roomID, eventID string) error
	SetTyping(ctx context.Context, roomID string, typing bool) error

	FetchMedia(ctx context.Context, src model.MediaSource) ([]byte, error)
	FetchAvatar(ctx context.Context, mxc string) ([]byte, error)

	OwnProfile(ctx context.Context) (model.Profile, error)
	SetDisplayName(ctx context.Context, name string) error
	SetAvatar(ctx context.Context, path string) (string, error)
	ClearAvatar(ctx context.Context) error
	SetFavourite(ctx context.Context, roomID string, fav bool) error

	CrossSigningStatus(ctx context.Context) model.CrossSigningStatus
	BootstrapCrossSigning(ctx context.Context) error
	StartSelfVerification(ctx context.Context) (model.VerificationState, error)
	AcceptVerification(ctx context.Context, flowID string) (model.VerificationState, error)
	IgnoreVerification(flowID string)
	ConfirmSAS(ctx context.Context) (model.VerificationState, error)
	MismatchSAS(ctx context.Context) (model.VerificationState, error)
	CancelVerification(ctx context.Context) (model.VerificationState, error)

	Logout(ctx context.Context) error
	Close() error
}

var _ Backend = (*matrix.Client)(nil)
