// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromPath_ReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[account]
default_homeserver = "example.org"

[ui]
theme = "dark"
render_markdown = false
image_width = 60

[timeline]
page_size = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "example.org", cfg.Account.DefaultHomeserver)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.False(t, cfg.UI.RenderMarkdown)
	assert.Equal(t, 60, cfg.UI.ImageWidth)
	assert.Equal(t, 50, cfg.Timeline.PageSize)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Sync.RetryDelaySeconds)
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	t.Setenv("COSMIC_MATRIX_LOG", "debug")
	t.Setenv("COSMIC_MATRIX_HOMESERVER", "env.example")
	t.Setenv("COSMIC_MATRIX_NOTIFICATIONS", "false")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "env.example", cfg.Account.DefaultHomeserver)
	assert.False(t, cfg.UI.Notifications)
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui\ntheme="), 0o600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "neon"
	cfg.Timeline.PageSize = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"ui.theme", "timeline.page_size", "logging.level"}, fields)
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "matrix.org", cfg.Account.DefaultHomeserver)
	assert.Equal(t, "15:04", cfg.UI.TimeFormat)
}

func TestSaveTo_RoundTripsAndIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.UI.SidebarWidth = 42

	require.NoError(t, SaveTo(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.UI.SidebarWidth)
}

func TestGlobal_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
