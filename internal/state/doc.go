// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state holds the UI-independent state machines of the main view:
// the sectioned, filtered and sorted room list, and the timeline of the
// selected room with its pagination cursor, unread marker and reply target.
//
// Both types are plain values mutated from the bubbletea update loop, so
// they carry no locking.
package state
