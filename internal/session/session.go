// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const (
	sessionFile  = "session.json"
	settingsFile = "settings.json"
)

var (
	// ErrNoSession is returned when no session has been saved.
	ErrNoSession = errors.New("no stored session")
	// ErrInvalidSession is returned for a session file missing required fields.
	ErrInvalidSession = errors.New("stored session is incomplete")
)

// =============================================================================
// STORED SESSION
// =============================================================================

// Stored is the content of session.json.
type Stored struct {
	Homeserver   string `json:"homeserver"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	DeviceID     string `json:"device_id"`
	PickleSecret string `json:"pickle_secret,omitempty"`
}

// Validate reports ErrInvalidSession when a required field is empty.
func (s *Stored) Validate() error {
	switch {
	case s.Homeserver == "":
		return fmt.Errorf("%w: homeserver", ErrInvalidSession)
	case s.UserID == "":
		return fmt.Errorf("%w: user_id", ErrInvalidSession)
	case s.AccessToken == "":
		return fmt.Errorf("%w: access_token", ErrInvalidSession)
	case s.DeviceID == "":
		return fmt.Errorf("%w: device_id", ErrInvalidSession)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (s Stored) Redacted() Stored {
	if len(s.AccessToken) > 8 {
		s.AccessToken = s.AccessToken[:4] + "…" + s.AccessToken[len(s.AccessToken)-4:]
	} else if s.AccessToken != "" {
		s.AccessToken = "…"
	}
	if s.PickleSecret != "" {
		s.PickleSecret = "<redacted>"
	}
	return s
}

// NewPickleSecret returns a random base64 secret for a fresh login.
func NewPickleSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pickle secret: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

// PickleKey derives the 32-byte crypto store key from the pickle secret,
// salted with the user and device so that secrets are never reused across
// devices.
func (s *Stored) PickleKey() ([]byte, error) {
	if s.PickleSecret == "" {
		return nil, errors.New("session has no pickle secret")
	}
	secret, err := base64.RawStdEncoding.DecodeString(s.PickleSecret)
	if err != nil {
		return nil, fmt.Errorf("decode pickle secret: %w", err)
	}
	salt := []byte(s.UserID + "|" + s.DeviceID)
	r := hkdf.New(sha256.New, secret, salt, []byte("cosmic-matrix crypto store"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive pickle key: %w", err)
	}
	return key, nil
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes session.json and settings.json in one directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore returns a store in ~/.config/cosmic-matrix.
func DefaultStore() (*Store, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir), nil
}

// Dir returns the directory holding the files.
func (s *Store) Dir() string { return s.dir }

// SessionPath returns the path to session.json.
func (s *Store) SessionPath() string { return filepath.Join(s.dir, sessionFile) }

// SettingsPath returns the path to settings.json.
func (s *Store) SettingsPath() string { return filepath.Join(s.dir, settingsFile) }

// LoadSession reads session.json. It returns ErrNoSession when the file does
// not exist.
func (s *Store) LoadSession() (*Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.SessionPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var stored Stored
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if err := stored.Validate(); err != nil {
		return nil, err
	}
	return &stored, nil
}

// SaveSession writes session.json.
func (s *Store) SaveSession(stored *Stored) error {
	if err := stored.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.AtomicWriteFile(s.SessionPath(), data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// ClearSession deletes session.json. Settings are kept.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.RemoveIfExists(s.SessionPath()); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the content of settings.json.
type Settings struct {
	SortMode          model.SortMode  `json:"sort_mode"`
	SectionsCollapsed map[string]bool `json:"sections_collapsed"`
}

// DefaultSettings sorts by recent activity with every section expanded.
func DefaultSettings() Settings {
	return Settings{
		SortMode:          model.SortRecentActivity,
		SectionsCollapsed: map[string]bool{},
	}
}

// LoadSettings reads settings.json. A missing or unreadable file yields
// the defaults.
func (s *Store) LoadSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()
	data, err := os.ReadFile(s.SettingsPath())
	if err != nil {
		return settings
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings()
	}
	if !settings.SortMode.Valid() {
		settings.SortMode = model.SortRecentActivity
	}
	if settings.SectionsCollapsed == nil {
		settings.SectionsCollapsed = map[string]bool{}
	}
	return settings
}

// SaveSettings writes settings.json.
func (s *Store) SaveSettings(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.AtomicWriteFile(s.SettingsPath(), data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
