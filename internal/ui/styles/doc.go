// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles holds the colour palette and lipgloss styles of the
terminal UI.

# Colours (colors.go)

Every colour is a lipgloss.AdaptiveColor so one palette serves light and
dark terminals. Senders get one of eight fixed colours picked by
model.SenderColorIndex, so a user keeps the same colour everywhere.

# Theme (theme.go)

A Theme is built once per program from the [ui] theme setting ("auto",
"dark" or "light") and rebuilt when the config file changes. Components
take a *Theme instead of reaching for globals.
*/
package styles
