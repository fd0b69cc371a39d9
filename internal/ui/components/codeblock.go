// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is a fenced code block from a message body.
type CodeBlock struct {
	Language string
	Code     string
}

// Render highlights the block for the theme's colour profile.
func (c CodeBlock) Render(theme *styles.Theme, width int) string {
	code := strings.TrimRight(c.Code, "\n")
	highlighted := Highlight(code, c.Language, theme)

	block := theme.CodeBlock
	if width > 4 {
		block = block.MaxWidth(width)
	}
	out := block.Render(highlighted)
	if c.Language != "" {
		out = theme.Muted.Render(c.Language) + "\n" + out
	}
	return out
}

// =============================================================================
// FENCE SPLITTING
// =============================================================================

// RenderFences wraps plain text to width and renders ``` fenced blocks
// with highlighting. It is the fallback when markdown rendering is off.
func RenderFences(theme *styles.Theme, text string, width int) string {
	var (
		out      []string
		plain    []string
		code     []string
		language string
		inCode   bool
	)
	flushPlain := func() {
		if len(plain) == 0 {
			return
		}
		joined := strings.Join(plain, "\n")
		if width > 0 {
			joined = wordwrap.String(joined, width)
		}
		out = append(out, joined)
		plain = nil
	}
	flushCode := func() {
		out = append(out, CodeBlock{Language: language, Code: strings.Join(code, "\n")}.Render(theme, width))
		code = nil
		language = ""
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCode {
				flushCode()
			} else {
				flushPlain()
				language = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			}
			inCode = !inCode
			continue
		}
		if inCode {
			code = append(code, line)
		} else {
			plain = append(plain, line)
		}
	}
	if inCode {
		flushCode()
	}
	flushPlain()
	return strings.Join(out, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

func formatterFor(profile termenv.Profile) chroma.Formatter {
	name := "terminal"
	switch profile {
	case termenv.TrueColor:
		name = "terminal16m"
	case termenv.ANSI256:
		name = "terminal256"
	case termenv.Ascii:
		return nil
	}
	if f := formatters.Get(name); f != nil {
		return f
	}
	return formatters.Fallback
}

// Highlight returns code with ANSI colours. Unknown languages are guessed
// from the content; on any failure the code comes back unchanged.
func Highlight(code, language string, theme *styles.Theme) string {
	formatter := formatterFor(theme.ColorProfile)
	if formatter == nil {
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "github"
	if theme.IsDark {
		styleName = "monokai"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
