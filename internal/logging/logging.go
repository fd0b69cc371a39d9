// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by the app and the
// Matrix SDK. While the UI runs, the terminal belongs to bubbletea, so
// records go to a file; CLI subcommands log to stderr instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LevelEnv overrides the configured level.
const LevelEnv = "COSMIC_MATRIX_LOG"

// Config selects where and how much to log.
type Config struct {
	Level   string // trace|debug|info|warn|error|disabled
	File    string // empty with Console=false discards output
	Console bool   // human-readable output on stderr
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// EffectiveLevel applies the environment override to configured.
func EffectiveLevel(configured string) zerolog.Level {
	if v := os.Getenv(LevelEnv); v != "" {
		return ParseLevel(v)
	}
	return ParseLevel(configured)
}

// New returns a logger and a closer for the underlying file, if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := EffectiveLevel(cfg.Level)

	var out io.Writer = io.Discard
	var closer io.Closer = nopCloser{}

	switch {
	case cfg.Console:
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
