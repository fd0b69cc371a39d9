// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the cosmic-matrix command line.

With no subcommand the terminal UI starts. The subcommands manage the
stored session and the config file without starting sync:

	cosmic-matrix login            password login, stores session.json
	cosmic-matrix logout           ends the stored session
	cosmic-matrix session [--json] prints the session, token redacted
	cosmic-matrix config path      prints the config file path
	cosmic-matrix config show      prints the effective configuration
	cosmic-matrix config init      writes the default config file
	cosmic-matrix version          prints build information

Global flags: --config selects the config file, --log-level overrides the
configured level. COSMIC_MATRIX_LOG also sets the level.
*/
package cli
