// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates cosmic-matrix configuration.
//
// Settings come from, in order of precedence:
//   - Environment variables (COSMIC_MATRIX_*)
//   - ~/.config/cosmic-matrix/config.toml
//   - Built-in defaults
//
// The config file is optional. A Watcher reports edits to it so the UI can
// pick up display options without a restart.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	width := cfg.UI.ImageWidth
package config
