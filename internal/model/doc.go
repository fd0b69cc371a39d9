// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the display-side data structures shared between the
// Matrix adapter and the UI: room list entries, timeline items, media
// sources and verification/cross-signing state.
//
// Everything here is plain data derived from SDK responses. The adapter in
// internal/matrix builds these values; internal/state and the UI consume
// them.
//
// # Key Types
//
//   - RoomEntry: one row of the room list
//   - TimelineItem: message, date separator, state event or unread marker
//   - Message: a rendered m.room.message
//   - VerificationState: progress of a SAS verification
package model
