// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the main view of the client: room sidebar, timeline and
composer, plus the verification, profile and help panels.

The view talks to the account only through the Backend interface.
Every SDK call runs in a tea.Cmd and comes back as a message; sync
updates arrive on Backend.Updates, and the command that waits on that
channel is re-armed after each update so exactly one read is pending.

# Files

  - model.go - Model, Options and construction
  - update.go - message and key handling
  - commands.go - tea.Cmd constructors and slash commands
  - sidebar.go, timeline.go, panels.go, view.go - rendering
  - notify.go - desktop notifications for mentions and DMs
*/
package chat
