// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/cosmic-matrix/internal/export"
	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/ui/components"
	"github.com/jeranaias/cosmic-matrix/internal/util"
)

const (
	requestTimeout = 30 * time.Second
	uploadTimeout  = 5 * time.Minute
	logoutTimeout  = 15 * time.Second
)

// =============================================================================
// SYNC
// =============================================================================

// waitForUpdate reads one update. The handler re-arms it, so only one
// read is ever pending.
func waitForUpdate(ch <-chan matrix.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg{update: u}
	}
}

// =============================================================================
// BACKEND CALLS
// =============================================================================

func (m Model) loadTimelineCmd(roomID string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		items, token, err := b.LoadTimeline(ctx, roomID)
		return timelineLoadedMsg{RoomID: roomID, Items: items, Token: token, Err: err}
	}
}

func (m Model) loadHistoryCmd(roomID, token string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		items, next, err := b.LoadHistory(ctx, roomID, token)
		return historyLoadedMsg{RoomID: roomID, Items: items, Token: next, Err: err}
	}
}

func (m Model) sendTextCmd(roomID, body, replyTo string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return sentMsg{RoomID: roomID, Body: body, Err: b.SendText(ctx, roomID, body, replyTo)}
	}
}

func (m Model) sendAttachmentCmd(roomID, path string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()
		err := b.SendAttachment(ctx, roomID, path)
		return attachmentSentMsg{RoomID: roomID, Name: filepath.Base(path), Err: err}
	}
}

func (m Model) markReadCmd(roomID, eventID string) tea.Cmd {
	if roomID == "" || eventID == "" {
		return nil
	}
	ctx, b, log := m.ctx, m.backend, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		if err := b.MarkRead(ctx, roomID, eventID); err != nil {
			log.Debug().Err(err).Str("room_id", roomID).Msg("mark read failed")
		}
		return nil
	}
}

func (m Model) typingCmd(roomID string, typing bool) tea.Cmd {
	ctx, b, log := m.ctx, m.backend, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		if err := b.SetTyping(ctx, roomID, typing); err != nil {
			log.Debug().Err(err).Msg("typing notice failed")
		}
		return typingSentMsg{}
	}
}

func (m Model) fetchImageCmd(eventID string, src model.MediaSource) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		data, err := b.FetchMedia(ctx, src)
		return mediaLoadedMsg{EventID: eventID, Data: data, Err: err}
	}
}

// saveFileCmd downloads src into the user's download directory.
func (m Model) saveFileCmd(src model.MediaSource) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()
		data, err := b.FetchMedia(ctx, src)
		if err != nil {
			return savedMediaMsg{Err: err}
		}
		path := filepath.Join(downloadDir(), safeFileName(src.Name))
		if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
			return savedMediaMsg{Err: err}
		}
		return savedMediaMsg{Path: path}
	}
}

// exportCmd writes the loaded timeline of roomID to the download
// directory.
func (m Model) exportCmd(roomID string, exp export.Exporter) tea.Cmd {
	t := &export.Transcript{
		RoomID: roomID,
		Items:  append([]model.TimelineItem(nil), m.timeline.Items...),
	}
	if room, ok := m.rooms.Room(roomID); ok {
		t.RoomName = room.Name
		t.Topic = room.Topic
		t.Encrypted = room.IsEncrypted
	}
	return func() tea.Msg {
		path, err := export.ToFile(t, exp, downloadDir())
		return exportedMsg{Path: path, Err: err}
	}
}

func downloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, "Downloads")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return home
}

func safeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "download"
	}
	return name
}

// loadProfileCmd reads the profile and the avatar bytes together.
func (m Model) loadProfileCmd() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		p, err := b.OwnProfile(ctx)
		if err != nil {
			return profileLoadedMsg{Err: err}
		}
		var avatar []byte
		if p.AvatarURL != "" {
			// A missing avatar image is not worth failing the panel for.
			if data, err := b.FetchAvatar(ctx, p.AvatarURL); err == nil {
				avatar = data
			}
		}
		return profileLoadedMsg{Profile: p, Avatar: avatar}
	}
}

func (m Model) setDisplayNameCmd(name string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return profileChangedMsg{What: "Display name", Err: b.SetDisplayName(ctx, name)}
	}
}

func (m Model) setAvatarCmd(path string) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()
		_, err := b.SetAvatar(ctx, path)
		return profileChangedMsg{What: "Avatar", Err: err}
	}
}

func (m Model) clearAvatarCmd() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return profileChangedMsg{What: "Avatar removal", Err: b.ClearAvatar(ctx)}
	}
}

func (m Model) favouriteCmd(roomID string, fav bool) tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return favouriteMsg{RoomID: roomID, Fav: fav, Err: b.SetFavourite(ctx, roomID, fav)}
	}
}

func (m Model) crossSigningCmd() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return crossSigningMsg{Status: b.CrossSigningStatus(ctx)}
	}
}

func (m Model) bootstrapCmd() tea.Cmd {
	ctx, b := m.ctx, m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return bootstrapMsg{Err: b.BootstrapCrossSigning(ctx)}
	}
}

// verificationCmd runs one verification action.
func (m Model) verificationCmd(action func(context.Context) (model.VerificationState, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		state, err := action(ctx)
		return verificationMsg{State: state, Err: err}
	}
}

func (m Model) saveSettingsCmd() tea.Cmd {
	if m.saver == nil {
		return nil
	}
	saver, settings := m.saver, m.settings()
	return func() tea.Msg {
		return settingsSavedMsg{Err: saver.SaveSettings(settings)}
	}
}

// logoutCmd ends the session. Typing stops are flushed first.
func (m Model) logoutCmd() tea.Cmd {
	b, roomID, typing := m.backend, m.timeline.RoomID, m.typing
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)
		if typing && roomID != "" {
			g.Go(func() error { return b.SetTyping(gctx, roomID, false) })
		}
		_ = g.Wait()
		return LoggedOutMsg{Err: b.Logout(ctx)}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{Err: clipboard.WriteAll(text)}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommand is a parsed composer line starting with "/".
type slashCommand struct {
	Name string
	Arg  string
}

// parseSlash splits a composer line into a command and its argument.
// "/me" and lines starting with "//" are messages, not commands.
func parseSlash(line string) (slashCommand, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || strings.HasPrefix(line, "//") {
		return slashCommand{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	name = strings.ToLower(name)
	if name == "" || name == "me" {
		return slashCommand{}, false
	}
	return slashCommand{Name: name, Arg: strings.TrimSpace(arg)}, true
}

var slashHelp = []components.KeyHint{
	{Key: "/attach <path>", Desc: "send a file"},
	{Key: "/avatar <path>|clear", Desc: "change or remove your avatar"},
	{Key: "/nick <name>", Desc: "change your display name"},
	{Key: "/me <text>", Desc: "send an emote"},
	{Key: "/verify", Desc: "verify this device from another one"},
	{Key: "/bootstrap", Desc: "set up cross-signing"},
	{Key: "/fav", Desc: "toggle favourite for this room"},
	{Key: "/sort", Desc: "toggle room sort order"},
	{Key: "/profile", Desc: "show your profile"},
	{Key: "/export [md|json]", Desc: "save the loaded history to a file"},
	{Key: "/logout", Desc: "log out and remove local data"},
	{Key: "/quit", Desc: "quit"},
	{Key: "/help", Desc: "show help"},
}

var errNoRoom = errors.New("no room selected")

// runSlash executes cmd. It returns an error for usage problems, which
// the caller shows as a warning.
func (m *Model) runSlash(cmd slashCommand) (tea.Cmd, error) {
	roomID := m.rooms.Selected()
	switch cmd.Name {
	case "attach":
		if roomID == "" {
			return nil, errNoRoom
		}
		if cmd.Arg == "" {
			return nil, errors.New("usage: /attach <path>")
		}
		if m.timeline.AttachmentSending {
			return nil, errors.New("an attachment is already uploading")
		}
		m.timeline.AttachmentSending = true
		return m.sendAttachmentCmd(roomID, expandHome(cmd.Arg)), nil

	case "avatar":
		switch cmd.Arg {
		case "":
			return nil, errors.New("usage: /avatar <path>|clear")
		case "clear":
			return m.clearAvatarCmd(), nil
		default:
			return m.setAvatarCmd(expandHome(cmd.Arg)), nil
		}

	case "nick":
		if cmd.Arg == "" {
			return nil, errors.New("usage: /nick <name>")
		}
		return m.setDisplayNameCmd(cmd.Arg), nil

	case "verify":
		return m.startVerification(), nil

	case "bootstrap":
		m.toasts.Info("Setting up cross-signing…")
		return m.bootstrapCmd(), nil

	case "fav":
		if roomID == "" {
			return nil, errNoRoom
		}
		return m.toggleFavourite(roomID), nil

	case "sort":
		return m.toggleSort(), nil

	case "profile":
		return m.openProfile(), nil

	case "export":
		if roomID == "" {
			return nil, errNoRoom
		}
		if m.timeline.RoomID != roomID || m.timeline.Loading {
			return nil, errors.New("the timeline is still loading")
		}
		exp, err := export.ForFormat(cmd.Arg, nil)
		if err != nil {
			return nil, err
		}
		return m.exportCmd(roomID, exp), nil

	case "logout":
		m.status.Status = "Logging out…"
		return m.logoutCmd(), nil

	case "quit":
		return tea.Quit, nil

	case "help":
		m.openPanel(panelHelp)
		return nil, nil
	}
	return nil, fmt.Errorf("unknown command /%s, try /help", cmd.Name)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
