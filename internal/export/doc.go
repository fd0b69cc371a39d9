// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the loaded part of a room timeline to a file.
//
// Two formats are supported:
//
//   - Markdown (.md): readable transcript with date headings, reply quotes
//     and attachment links
//   - JSON (.json): one record per message for further processing
//
// Only what the client has loaded is exported; nothing is fetched. Media
// is referenced by its mxc URI, never embedded, and encrypted attachments
// are marked as such.
//
// Example:
//
//	exp, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ToFile(transcript, exp, dir)
package export
