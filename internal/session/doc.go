// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the logged-in Matrix session and per-user UI
// settings.
//
// Two JSON files live in the config directory:
//
//   - session.json: homeserver, user ID, access token, device ID and the
//     secret the crypto store pickle key is derived from
//   - settings.json: room sort mode and collapsed sidebar sections
//
// Both are written atomically with 0600 permissions.
//
// # Usage
//
//	store, _ := session.DefaultStore()
//	sess, err := store.LoadSession()
//	if errors.Is(err, session.ErrNoSession) {
//	    // show the login form
//	}
package session
