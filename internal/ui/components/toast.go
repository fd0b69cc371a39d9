// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

// Non-blocking notices shown above the composer. They expire on their own
// so sync errors never interrupt typing.

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind selects a toast's colour and icon.
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastError
	ToastWarning
	ToastSuccess
)

// Display durations per kind. Errors stay longest.
const (
	InfoToastDuration    = 4 * time.Second
	WarningToastDuration = 6 * time.Second
	ErrorToastDuration   = 8 * time.Second

	maxToasts     = 4
	toastTickRate = 250 * time.Millisecond
)

// Toast is one notice.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

func durationFor(kind ToastKind) time.Duration {
	switch kind {
	case ToastError:
		return ErrorToastDuration
	case ToastWarning:
		return WarningToastDuration
	default:
		return InfoToastDuration
	}
}

// ExpiredAt reports whether the toast should be gone at now.
func (t Toast) ExpiredAt(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts, newest last.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	now    func() time.Time
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, now: time.Now}
}

// Add shows message and returns the toast's ID. The oldest toast is
// dropped once more than maxToasts are visible.
func (m *ToastManager) Add(kind ToastKind, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := Toast{
		ID:        m.nextID,
		Message:   message,
		Kind:      kind,
		CreatedAt: m.now(),
		Duration:  durationFor(kind),
	}
	m.nextID++
	m.toasts = append(m.toasts, t)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return t.ID
}

func (m *ToastManager) Info(msg string) int    { return m.Add(ToastInfo, msg) }
func (m *ToastManager) Error(msg string) int   { return m.Add(ToastError, msg) }
func (m *ToastManager) Warning(msg string) int { return m.Add(ToastWarning, msg) }
func (m *ToastManager) Success(msg string) int { return m.Add(ToastSuccess, msg) }

// Dismiss removes the toast with id.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// DismissAll clears every toast.
func (m *ToastManager) DismissAll() {
	m.mu.Lock()
	m.toasts = nil
	m.mu.Unlock()
}

// Expire drops toasts that have timed out and reports whether any remain.
func (m *ToastManager) Expire(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.ExpiredAt(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return len(m.toasts) > 0
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// =============================================================================
// TICKS
// =============================================================================

// ToastTickMsg drives expiry while toasts are visible.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd schedules the next expiry check.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(toastTickRate, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// RENDERING
// =============================================================================

func toastLook(theme *styles.Theme, kind ToastKind) (lipgloss.Style, lipgloss.AdaptiveColor, string) {
	switch kind {
	case ToastError:
		return theme.Error, styles.Danger, styles.Indicators.Error
	case ToastWarning:
		return theme.Warning, styles.Warning, styles.Indicators.Warning
	case ToastSuccess:
		return theme.Success, styles.Success, styles.Indicators.Success
	default:
		return theme.InfoText, styles.Info, styles.Indicators.Info
	}
}

// RenderToast renders one toast no wider than width.
func RenderToast(theme *styles.Theme, t Toast, width int) string {
	maxWidth := 60
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	iconStyle, border, icon := toastLook(theme, t.Kind)
	text := wordwrap.String(t.Message, maxWidth-len(icon)-5)
	text = strings.ReplaceAll(text, "\n", "\n"+strings.Repeat(" ", len(icon)+1))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(iconStyle.Render(icon) + " " + theme.Body.Render(text))
}

// RenderToastStack renders toasts right-aligned within width, newest at
// the bottom. It returns "" when there is nothing to show.
func RenderToastStack(theme *styles.Theme, toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, RenderToast(theme, t, width))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}
