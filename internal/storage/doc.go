// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the SQLite plumbing used by cosmic-matrix: a
// shared opener with the pragmas every database gets, and the on-disk media
// cache for avatars and inline images.
//
// Media is cached exactly as downloaded. Encrypted attachments therefore stay
// encrypted at rest and are decrypted on every read.
package storage
