// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Profile is the logged-in user's own account as shown in the profile
// panel.
type Profile struct {
	UserID       string
	DeviceID     string
	DisplayName  string
	AvatarURL    string
	CrossSigning CrossSigningStatus
}

// Name returns the display name, or the localpart when none is set.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return Localpart(p.UserID)
}
