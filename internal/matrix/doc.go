// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package matrix adapts the mautrix SDK to the UI.
//
// Everything that touches mautrix types lives here. The UI sees plain
// string IDs, the types in package model, and a stream of Update values
// produced by the sync loop. Sync, encryption, cross-signing, media
// transfer and verification are all performed by the SDK; this package
// only translates between the two sides.
package matrix
