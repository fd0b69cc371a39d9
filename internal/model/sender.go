// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"hash/fnv"
	"strings"
)

// SenderPaletteSize is the number of sender name colours.
const SenderPaletteSize = 8

// SenderColorIndex picks a stable palette slot for a user ID using the
// 32-bit FNV-1a hash, so a sender keeps the same colour everywhere.
func SenderColorIndex(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % SenderPaletteSize)
}

// Localpart returns the user part of a Matrix ID ("@alice:example.org" gives
// "alice"). Anything that is not a user ID is returned unchanged.
func Localpart(userID string) string {
	if !strings.HasPrefix(userID, "@") {
		return userID
	}
	local := userID[1:]
	if i := strings.IndexByte(local, ':'); i >= 0 {
		local = local[:i]
	}
	return local
}
