// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the terminal UI.

  - Header (header.go) - selected room, topic and own account
  - StatusBar (statusbar.go) - connection state and key hints
  - ToastManager (toast.go) - auto-dismissing notices
  - Markdown (markdown.go) - glamour rendering of message bodies
  - CodeBlock (codeblock.go) - chroma highlighting of fenced code
  - RenderImage (image.go) - half-block pictures for inline images

Components take a *styles.Theme and a width; none of them hold tea.Model
state of their own except the toast manager.
*/
package components
