// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

var markdownHints = regexp.MustCompile("(?m)(^#{1,6} |^\\s*[-*+] |^\\s*\\d+\\. |^> |```|`[^`]+`|\\*\\*[^*]+\\*\\*|__[^_]+__|\\[[^\\]]+\\]\\([^)]+\\))")

// LooksLikeMarkdown reports whether body uses markdown syntax worth a full
// render. Plain chat lines skip glamour and its margins.
func LooksLikeMarkdown(body string) bool {
	return markdownHints.MatchString(body)
}

// Markdown renders message bodies with glamour. Renderers are expensive to
// build, so one is kept per width and background.
type Markdown struct {
	mu       sync.Mutex
	width    int
	dark     bool
	renderer *glamour.TermRenderer
}

func (m *Markdown) rendererFor(width int, dark bool) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer != nil && m.width == width && m.dark == dark {
		return m.renderer, nil
	}
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	m.renderer, m.width, m.dark = r, width, dark
	return r, nil
}

// Render turns body into terminal text at most width columns wide. Bodies
// without markdown syntax are only wrapped. When glamour fails the fenced
// code fallback is used.
func (m *Markdown) Render(theme *styles.Theme, body string, width int) string {
	if width < 10 {
		width = 10
	}
	if !LooksLikeMarkdown(body) {
		return wordwrap.String(body, width)
	}
	r, err := m.rendererFor(width, theme.IsDark)
	if err != nil {
		return RenderFences(theme, body, width)
	}
	out, err := r.Render(body)
	if err != nil {
		return RenderFences(theme, body, width)
	}
	return strings.Trim(out, "\n")
}
