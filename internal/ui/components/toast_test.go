// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestToastManager_AddAndExpire(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewToastManager()
	m.now = fixedClock(start)

	info := m.Info("synced")
	m.Error("sync failed")

	toasts := m.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, info, toasts[0].ID)
	assert.Equal(t, ToastError, toasts[1].Kind)

	assert.True(t, m.Expire(start.Add(5*time.Second)), "error toast outlives info")
	require.Len(t, m.Toasts(), 1)
	assert.Equal(t, "sync failed", m.Toasts()[0].Message)

	assert.False(t, m.Expire(start.Add(ErrorToastDuration)))
	assert.Empty(t, m.Toasts())
}

func TestToastManager_KeepsNewest(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < maxToasts+2; i++ {
		m.Info("notice")
	}
	toasts := m.Toasts()
	require.Len(t, toasts, maxToasts)
	assert.Equal(t, maxToasts+2, toasts[len(toasts)-1].ID)
}

func TestToastManager_Dismiss(t *testing.T) {
	m := NewToastManager()
	a := m.Info("a")
	m.Info("b")
	m.Dismiss(a)
	require.Len(t, m.Toasts(), 1)
	assert.Equal(t, "b", m.Toasts()[0].Message)

	m.DismissAll()
	assert.Empty(t, m.Toasts())
}

func TestRenderToastStack(t *testing.T) {
	theme := styles.NewTheme("dark")
	assert.Empty(t, RenderToastStack(theme, nil, 80))

	out := RenderToastStack(theme, []Toast{{Message: "Attachment sent", Kind: ToastSuccess}}, 80)
	assert.Contains(t, out, "Attachment sent")
	assert.Contains(t, out, styles.Indicators.Success)
}
