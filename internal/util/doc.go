// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across cosmic-matrix.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe write used for session.json, settings.json
//     and config.toml
//   - RemoveIfExists: delete a file, treating "not found" as success
//
// Display Width:
//   - TruncateWidth: cut a string to a terminal column budget
//   - PadRight: pad a string to an exact column width
//   - Preview: single-line, rune-limited preview of message text
package util
