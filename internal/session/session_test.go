// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

func testSession(t *testing.T) *Stored {
	t.Helper()
	secret, err := NewPickleSecret()
	require.NoError(t, err)
	return &Stored{
		Homeserver:   "https://matrix.example.org",
		UserID:       "@alice:example.org",
		AccessToken:  "syt_abcdefghijklmnop",
		DeviceID:     "DEVICEID",
		PickleSecret: secret,
	}
}

func TestLoadSession_Missing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.LoadSession()
	assert.True(t, errors.Is(err, ErrNoSession), "got %v", err)
}

func TestSaveLoadClearSession(t *testing.T) {
	store := NewStore(t.TempDir())
	sess := testSession(t)

	require.NoError(t, store.SaveSession(sess))

	info, err := os.Stat(store.SessionPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, sess, loaded)

	require.NoError(t, store.ClearSession())
	_, err = store.LoadSession()
	assert.ErrorIs(t, err, ErrNoSession)

	// Clearing twice is fine.
	assert.NoError(t, store.ClearSession())
}

func TestSaveSession_RejectsIncomplete(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.SaveSession(&Stored{Homeserver: "https://x", UserID: "@a:x"})
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLoadSession_Corrupt(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.SessionPath(), []byte("{not json"), 0o600))
	_, err := store.LoadSession()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoSession))
}

func TestPickleKey(t *testing.T) {
	sess := testSession(t)

	k1, err := sess.PickleKey()
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	k2, err := sess.PickleKey()
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "derivation must be deterministic")

	other := *sess
	other.DeviceID = "OTHER"
	k3, err := other.PickleKey()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(k1, k3), "different devices must get different keys")

	_, err = (&Stored{}).PickleKey()
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	sess := testSession(t)
	r := sess.Redacted()
	assert.Equal(t, "syt_…mnop", r.AccessToken)
	assert.Equal(t, "<redacted>", r.PickleSecret)
	assert.Equal(t, sess.UserID, r.UserID)
	assert.Equal(t, "syt_abcdefghijklmnop", sess.AccessToken, "original must be untouched")
}

func TestSettings_DefaultsWhenMissingOrCorrupt(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Equal(t, DefaultSettings(), store.LoadSettings())

	require.NoError(t, os.WriteFile(store.SettingsPath(), []byte("garbage"), 0o600))
	assert.Equal(t, DefaultSettings(), store.LoadSettings())
}

func TestSettings_RoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	settings := Settings{
		SortMode:          model.SortAlphabetical,
		SectionsCollapsed: map[string]bool{"low_priority": true},
	}
	require.NoError(t, store.SaveSettings(settings))
	assert.Equal(t, settings, store.LoadSettings())

	// Settings survive logout.
	require.NoError(t, store.ClearSession())
	assert.Equal(t, settings, store.LoadSettings())
}

func TestSettings_UnknownSortModeFallsBack(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.SettingsPath(), []byte(`{"sort_mode":"Random"}`), 0o600))
	got := store.LoadSettings()
	assert.Equal(t, model.SortRecentActivity, got.SortMode)
	assert.NotNil(t, got.SectionsCollapsed)
}
