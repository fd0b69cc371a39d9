// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jeranaias/cosmic-matrix/internal/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COSMIC_MATRIX_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete cosmic-matrix configuration.
type Config struct {
	Account  AccountConfig  `toml:"account"`
	UI       UIConfig       `toml:"ui"`
	Timeline TimelineConfig `toml:"timeline"`
	Sync     SyncConfig     `toml:"sync"`
	Media    MediaConfig    `toml:"media"`
	Logging  LoggingConfig  `toml:"logging"`
}

// AccountConfig holds login form defaults.
type AccountConfig struct {
	// DefaultHomeserver prefills the login form.
	DefaultHomeserver string `toml:"default_homeserver" env:"HOMESERVER"`
	// DeviceName is the initial display name of devices created at login.
	DeviceName string `toml:"device_name" env:"DEVICE_NAME"`
}

// UIConfig holds display options. All of them reload live.
type UIConfig struct {
	Theme          string `toml:"theme" env:"THEME"` // auto, dark, light
	RenderMarkdown bool   `toml:"render_markdown" env:"RENDER_MARKDOWN"`
	ShowImages     bool   `toml:"show_images" env:"SHOW_IMAGES"`
	ImageWidth     int    `toml:"image_width" env:"IMAGE_WIDTH"`
	SidebarWidth   int    `toml:"sidebar_width" env:"SIDEBAR_WIDTH"`
	TimeFormat     string `toml:"time_format" env:"TIME_FORMAT"`
	Notifications  bool   `toml:"notifications" env:"NOTIFICATIONS"`
	TypingNotices  bool   `toml:"typing_notices" env:"TYPING_NOTICES"`
}

// TimelineConfig controls history loading.
type TimelineConfig struct {
	PageSize int `toml:"page_size" env:"PAGE_SIZE"`
}

// SyncConfig controls the sync loop.
type SyncConfig struct {
	TimeoutSeconds    int `toml:"timeout_seconds" env:"SYNC_TIMEOUT"`
	RetryDelaySeconds int `toml:"retry_delay_seconds" env:"SYNC_RETRY_DELAY"`
}

// MediaConfig controls downloads, uploads and the on-disk cache.
type MediaConfig struct {
	CacheMaxMB             int `toml:"cache_max_mb" env:"MEDIA_CACHE_MB"`
	MaxConcurrentDownloads int `toml:"max_concurrent_downloads" env:"MEDIA_DOWNLOADS"`
	MaxUploadMB            int `toml:"max_upload_mb" env:"MEDIA_MAX_UPLOAD_MB"`
}

// LoggingConfig controls the log file. COSMIC_MATRIX_LOG sets the level.
type LoggingConfig struct {
	Level string `toml:"level" env:"LOG"`
	File  string `toml:"file" env:"LOG_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			DefaultHomeserver: "matrix.org",
			DeviceName:        "cosmic-matrix",
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
			ShowImages:     true,
			ImageWidth:     40,
			SidebarWidth:   30,
			TimeFormat:     "15:04",
			Notifications:  true,
			TypingNotices:  true,
		},
		Timeline: TimelineConfig{
			PageSize: 30,
		},
		Sync: SyncConfig{
			TimeoutSeconds:    30,
			RetryDelaySeconds: 5,
		},
		Media: MediaConfig{
			CacheMaxMB:             256,
			MaxConcurrentDownloads: 4,
			MaxUploadMB:            50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SyncTimeout returns the long-poll timeout.
func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

// SyncRetryDelay returns the pause after a failed sync.
func (c *Config) SyncRetryDelay() time.Duration {
	return time.Duration(c.Sync.RetryDelaySeconds) * time.Second
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads config.toml from the default location. A missing file yields
// the defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config file at path, tolerating its absence.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays COSMIC_MATRIX_* variables on c.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes c to the default config path.
func Save(c *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(c, path)
}

// SaveTo writes c as TOML to path atomically with 0600 permissions.
func SaveTo(c *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# cosmic-matrix configuration\n")
	buf.WriteString("# Environment variables prefixed with " + EnvPrefix + " override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders c as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills zero-valued fields from Default. Booleans are left alone
// since false is a meaningful setting.
func (c *Config) SetDefaults() {
	d := Default()

	if strings.TrimSpace(c.Account.DefaultHomeserver) == "" {
		c.Account.DefaultHomeserver = d.Account.DefaultHomeserver
	}
	if c.Account.DeviceName == "" {
		c.Account.DeviceName = d.Account.DeviceName
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.ImageWidth == 0 {
		c.UI.ImageWidth = d.UI.ImageWidth
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.UI.TimeFormat == "" {
		c.UI.TimeFormat = d.UI.TimeFormat
	}
	if c.Timeline.PageSize == 0 {
		c.Timeline.PageSize = d.Timeline.PageSize
	}
	if c.Sync.TimeoutSeconds == 0 {
		c.Sync.TimeoutSeconds = d.Sync.TimeoutSeconds
	}
	if c.Sync.RetryDelaySeconds == 0 {
		c.Sync.RetryDelaySeconds = d.Sync.RetryDelaySeconds
	}
	if c.Media.CacheMaxMB == 0 {
		c.Media.CacheMaxMB = d.Media.CacheMaxMB
	}
	if c.Media.MaxConcurrentDownloads == 0 {
		c.Media.MaxConcurrentDownloads = d.Media.MaxConcurrentDownloads
	}
	if c.Media.MaxUploadMB == 0 {
		c.Media.MaxUploadMB = d.Media.MaxUploadMB
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs ValidationErrors

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("invalid theme %q, must be one of: auto, dark, light", c.UI.Theme)})
	}
	if c.UI.ImageWidth < 8 || c.UI.ImageWidth > 200 {
		errs = append(errs, ValidationError{"ui.image_width", "must be between 8 and 200"})
	}
	if c.UI.SidebarWidth < 16 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{"ui.sidebar_width", "must be between 16 and 80"})
	}
	if c.Timeline.PageSize < 1 || c.Timeline.PageSize > 500 {
		errs = append(errs, ValidationError{"timeline.page_size", "must be between 1 and 500"})
	}
	if c.Sync.TimeoutSeconds < 1 || c.Sync.TimeoutSeconds > 300 {
		errs = append(errs, ValidationError{"sync.timeout_seconds", "must be between 1 and 300"})
	}
	if c.Sync.RetryDelaySeconds < 1 {
		errs = append(errs, ValidationError{"sync.retry_delay_seconds", "must be positive"})
	}
	if c.Media.CacheMaxMB < 0 {
		errs = append(errs, ValidationError{"media.cache_max_mb", "must not be negative"})
	}
	if c.Media.MaxConcurrentDownloads < 1 || c.Media.MaxConcurrentDownloads > 32 {
		errs = append(errs, ValidationError{"media.max_concurrent_downloads", "must be between 1 and 32"})
	}
	if c.Media.MaxUploadMB < 1 {
		errs = append(errs, ValidationError{"media.max_upload_mb", "must be positive"})
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{"logging.level", fmt.Sprintf("invalid level %q", c.Logging.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SINGLETON
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// Load errors fall back to defaults with a warning on stderr.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the singleton between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
