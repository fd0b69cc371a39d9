// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to anything cut short for display.
const Ellipsis = "…"

// TruncateWidth cuts s so that it occupies at most maxWidth terminal columns,
// ending in an ellipsis when something was removed. Wide runes (CJK, emoji)
// count as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadRight pads s with spaces to exactly width columns, truncating first
// when it is too long.
func PadRight(s string, width int) string {
	s = TruncateWidth(s, width)
	return runewidth.FillRight(s, width)
}

// Preview flattens text to a single line and limits it to maxRunes runes,
// appending an ellipsis when it was cut.
func Preview(text string, maxRunes int) string {
	line := strings.Join(strings.Fields(text), " ")
	runes := []rune(line)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return line
	}
	return string(runes[:maxRunes]) + Ellipsis
}

// FirstLine returns text up to its first newline.
func FirstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// StripControl removes control characters other than newline and tab, so
// text from other users cannot drive the terminal.
func StripControl(s string) string {
	clean := true
	for _, r := range s {
		if isStripped(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isStripped(r) {
			return -1
		}
		return r
	}, s)
}

func isStripped(r rune) bool {
	return r != '\n' && r != '\t' && unicode.IsControl(r)
}
