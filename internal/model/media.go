// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"maunium.net/go/mautrix/event"
)

// MediaSource locates an image or file attached to a message. File is set
// when the media is end-to-end encrypted; URI is then the encrypted blob.
type MediaSource struct {
	URI      string
	File     *event.EncryptedFileInfo
	MimeType string
	Name     string
	Width    int
	Height   int
	Size     int
}

// Encrypted reports whether the media must be decrypted after download.
func (s *MediaSource) Encrypted() bool {
	return s != nil && s.File != nil
}

// CacheKey identifies the downloaded bytes of this source.
func (s *MediaSource) CacheKey() string {
	if s == nil {
		return ""
	}
	return s.URI
}
