// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNoColor is returned when the terminal cannot show colour cells.
var ErrNoColor = errors.New("terminal has no colour support")

const upperHalfBlock = "▀"

// ImageSize returns the cell grid an image of w×h pixels occupies when
// rendered at most maxCols wide. Each cell covers two pixel rows.
func ImageSize(w, h, maxCols int) (cols, rows int) {
	if w <= 0 || h <= 0 || maxCols <= 0 {
		return 0, 0
	}
	cols = min(w, maxCols)
	pixelRows := h * cols / w
	// Tall images are limited to a square of cells.
	if pixelRows > 2*maxCols {
		pixelRows = 2 * maxCols
		cols = max(1, w*pixelRows/h)
	}
	rows = (pixelRows + 1) / 2
	return cols, max(rows, 1)
}

// RenderImage decodes data and draws it with upper half blocks: the
// foreground is the top pixel and the background the bottom one.
func RenderImage(data []byte, maxCols int, profile termenv.Profile) (string, error) {
	if profile == termenv.Ascii {
		return "", ErrNoColor
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	cols, rows := ImageSize(b.Dx(), b.Dy(), maxCols)
	if cols == 0 {
		return "", errors.New("empty image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < rows; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			top := dst.RGBAAt(x, 2*y)
			bottom := dst.RGBAAt(x, 2*y+1)
			sb.WriteString(profile.String(upperHalfBlock).
				Foreground(profile.Color(hexColor(top))).
				Background(profile.Color(hexColor(bottom))).
				String())
		}
	}
	return sb.String(), nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
