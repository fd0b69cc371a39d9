// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.syncLayout()
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.ready = true
		m.layout()
		m.refreshTimeline()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		m.toasts.Expire(msg.Time)
		return m, components.ToastTickCmd()

	case updateMsg:
		cmd := m.handleUpdate(msg.update)
		return m, tea.Batch(cmd, waitForUpdate(m.backend.Updates()))

	case updatesClosedMsg:
		m.syncing = false
		m.offline = true
		m.header.Syncing = false
		return m, nil

	case timelineLoadedMsg:
		return m, m.handleTimelineLoaded(msg)

	case historyLoadedMsg:
		return m, m.handleHistoryLoaded(msg)

	case sentMsg:
		m.timeline.Sending = false
		if msg.Err != nil {
			m.toasts.Error("Send failed: " + msg.Err.Error())
			// Give the text back unless something new was typed.
			if m.composer.Value() == "" {
				m.composer.SetValue(msg.Body)
				m.composer.CursorEnd()
			}
		}
		return m, nil

	case attachmentSentMsg:
		m.timeline.AttachmentSending = false
		if msg.Err != nil {
			m.toasts.Error(fmt.Sprintf("Upload of %s failed: %v", msg.Name, msg.Err))
		} else {
			m.toasts.Success("Sent " + msg.Name)
		}
		return m, nil

	case mediaLoadedMsg:
		m.handleMediaLoaded(msg)
		return m, nil

	case savedMediaMsg:
		if msg.Err != nil {
			m.toasts.Error("Download failed: " + msg.Err.Error())
		} else {
			m.toasts.Success("Saved to " + msg.Path)
		}
		return m, nil

	case exportedMsg:
		if msg.Err != nil {
			m.toasts.Error("Export failed: " + msg.Err.Error())
		} else {
			m.toasts.Success("Exported to " + msg.Path)
		}
		return m, nil

	case profileLoadedMsg:
		m.handleProfileLoaded(msg)
		return m, nil

	case profileChangedMsg:
		m.busy = false
		if msg.Err != nil {
			m.toasts.Error(msg.What + " failed: " + msg.Err.Error())
			return m, nil
		}
		m.toasts.Success(msg.What + " updated")
		if m.panel == panelProfile {
			return m, m.loadProfileCmd()
		}
		return m, nil

	case favouriteMsg:
		if msg.Err != nil {
			m.rooms.SetFavourite(msg.RoomID, !msg.Fav)
			m.toasts.Error("Favourite failed: " + msg.Err.Error())
		}
		return m, nil

	case crossSigningMsg:
		m.crossSigning = msg.Status
		m.header.CrossSigning = msg.Status
		m.profile.CrossSigning = msg.Status
		return m, nil

	case bootstrapMsg:
		return m, m.handleBootstrap(msg.Err)

	case verificationMsg:
		return m, m.handleVerificationResult(msg)

	case settingsSavedMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("save settings failed")
			m.toasts.Warning("Could not save settings")
		}
		return m, nil

	case copiedMsg:
		if msg.Err != nil {
			m.toasts.Error("Clipboard unavailable: " + msg.Err.Error())
		} else {
			m.toasts.Success("Copied to clipboard")
		}
		return m, nil

	case typingSentMsg:
		return m, nil
	}
	return m, nil
}

// =============================================================================
// SYNC UPDATES
// =============================================================================

func (m *Model) handleUpdate(u matrix.Update) tea.Cmd {
	switch u := u.(type) {
	case matrix.RoomsUpdated:
		m.syncing = false
		m.header.Syncing = false
		m.rooms.SetRooms(u.Rooms)
		if sel := m.rooms.Selected(); sel != "" {
			if _, ok := m.rooms.Room(sel); !ok {
				m.rooms.Deselect()
				m.timeline.Clear()
				m.msgCursor = -1
				m.toasts.Info("You are no longer in that room")
				m.refreshTimeline()
			}
		}
		m.refreshHeader()
		return nil

	case matrix.IncomingEvents:
		return m.handleIncoming(u)

	case matrix.EventDecrypted:
		if u.RoomID == m.timeline.RoomID && m.timeline.ReplaceMessage(u.Message) {
			m.refreshTimeline()
			return m.fetchImages([]*model.Message{u.Message})
		}
		return nil

	case matrix.VerificationRequested:
		if m.verification != nil && !m.verification.Finished() {
			m.backend.IgnoreVerification(u.Request.FlowID)
			return nil
		}
		req := u.Request
		m.request = &req
		m.toasts.Info("Verification request from " + req.FromUser)
		return nil

	case matrix.VerificationChanged:
		return m.applyVerification(u.State)

	case matrix.SyncFailed:
		if u.Initial {
			m.syncing = false
			m.header.Syncing = false
			m.toasts.Error("Initial sync failed: " + u.Err.Error())
			return nil
		}
		m.toasts.Warning(fmt.Sprintf("Sync failed, retrying in %s", m.cfg.SyncRetryDelay()))
		return nil

	case matrix.SessionExpired:
		return func() tea.Msg { return SessionEndedMsg{Expired: true} }

	case matrix.SyncStopped:
		m.syncing = false
		m.header.Syncing = false
		if u.Err != nil {
			m.offline = true
			m.toasts.Error("Disconnected: " + u.Err.Error())
		}
		return nil
	}
	return nil
}

func (m *Model) handleIncoming(u matrix.IncomingEvents) tea.Cmd {
	if u.RoomID != m.timeline.RoomID {
		room, ok := m.rooms.Room(u.RoomID)
		if !ok {
			return nil
		}
		return m.notify.consider(room, u.Items)
	}
	// The page may have been read before these events were sent.
	if m.timeline.FirstPageLoading() {
		m.timeline.HoldIncoming(u.Items, u.Edits)
		return nil
	}

	atBottom := m.timeline.AtBottom
	added := m.timeline.AppendIncoming(u.Items)
	for _, edit := range u.Edits {
		m.timeline.ApplyEdit(edit)
	}
	m.refreshTimeline()

	var cmds []tea.Cmd
	var fresh []*model.Message
	for _, item := range u.Items {
		if item.Kind == model.ItemMessage && item.Message != nil {
			fresh = append(fresh, item.Message)
		}
	}
	cmds = append(cmds, m.fetchImages(fresh))
	if added > 0 && atBottom {
		if last := model.LastMessage(m.timeline.Items); last != nil {
			m.rooms.ClearUnread(u.RoomID)
			cmds = append(cmds, m.markReadCmd(u.RoomID, last.EventID))
		}
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// RESULTS
// =============================================================================

func (m *Model) handleTimelineLoaded(msg timelineLoadedMsg) tea.Cmd {
	if msg.RoomID != m.timeline.RoomID {
		return nil
	}
	if msg.Err != nil {
		m.timeline.Loading = false
		m.toasts.Error("Could not load room: " + msg.Err.Error())
		m.refreshTimeline()
		return nil
	}
	m.timeline.SetTimeline(msg.RoomID, msg.Items, msg.Token)
	m.msgCursor = -1
	m.refreshTimeline()
	m.viewport.GotoBottom()

	cmds := []tea.Cmd{m.fetchImages(m.timeline.Messages())}
	if last := model.LastMessage(m.timeline.Items); last != nil {
		m.rooms.ClearUnread(msg.RoomID)
		cmds = append(cmds, m.markReadCmd(msg.RoomID, last.EventID))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleHistoryLoaded(msg historyLoadedMsg) tea.Cmd {
	if msg.RoomID != m.timeline.RoomID {
		return nil
	}
	if msg.Err != nil {
		m.timeline.Loading = false
		m.toasts.Error("Could not load history: " + msg.Err.Error())
		m.refreshTimeline()
		return nil
	}
	before := len(m.timeline.Messages())
	lines := m.viewport.TotalLineCount()
	m.timeline.PrependItems(msg.Items, msg.Token)
	m.refreshTimeline()

	// Keep the lines that were on screen in place.
	m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.TotalLineCount() - lines)
	if m.msgCursor >= 0 {
		m.msgCursor += len(m.timeline.Messages()) - before
	}
	var older []*model.Message
	for _, item := range msg.Items {
		if item.Kind == model.ItemMessage && item.Message != nil {
			older = append(older, item.Message)
		}
	}
	return m.fetchImages(older)
}

func (m *Model) handleMediaLoaded(msg mediaLoadedMsg) {
	delete(m.fetching, msg.EventID)
	if msg.Err != nil {
		m.log.Debug().Err(msg.Err).Str("event_id", msg.EventID).Msg("image fetch failed")
		m.images[msg.EventID] = ""
		if m.preview == msg.EventID {
			m.toasts.Error("Could not load image: " + msg.Err.Error())
			m.closePanel()
		}
		m.refreshTimeline()
		return
	}
	m.imageData[msg.EventID] = msg.Data
	art, err := components.RenderImage(msg.Data, m.cfg.UI.ImageWidth, m.theme.ColorProfile)
	if err != nil {
		art = ""
	}
	m.images[msg.EventID] = art
	m.refreshTimeline()
}

// fetchImages requests inline images not yet loaded or in flight.
func (m *Model) fetchImages(msgs []*model.Message) tea.Cmd {
	if !m.cfg.UI.ShowImages {
		return nil
	}
	var cmds []tea.Cmd
	for _, msg := range msgs {
		if msg == nil || msg.Image == nil {
			continue
		}
		if _, done := m.images[msg.EventID]; done || m.fetching[msg.EventID] {
			continue
		}
		m.fetching[msg.EventID] = true
		cmds = append(cmds, m.fetchImageCmd(msg.EventID, *msg.Image))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleProfileLoaded(msg profileLoadedMsg) {
	m.busy = false
	if msg.Err != nil {
		m.toasts.Error("Could not load profile: " + msg.Err.Error())
		return
	}
	m.profile = msg.Profile
	m.crossSigning = msg.Profile.CrossSigning
	m.header.CrossSigning = msg.Profile.CrossSigning
	m.notify.setDisplayName(msg.Profile.DisplayName)

	m.profileAvatar = ""
	if len(msg.Avatar) > 0 {
		if art, err := components.RenderImage(msg.Avatar, profileAvatarWidth, m.theme.ColorProfile); err == nil {
			m.profileAvatar = art
		}
	}
}

func (m *Model) handleBootstrap(err error) tea.Cmd {
	switch {
	case err == nil:
		m.toasts.Success("Cross-signing is set up")
		return m.crossSigningCmd()
	case errors.Is(err, matrix.ErrUIARequired):
		m.toasts.Warning("Cross-signing setup needs your password. Log in again to set it up.")
	case errors.Is(err, matrix.ErrNoCrypto):
		m.toasts.Error("Encryption is not available")
	default:
		m.toasts.Error("Cross-signing setup failed: " + err.Error())
	}
	return nil
}

// =============================================================================
// VERIFICATION
// =============================================================================

func (m *Model) startVerification() tea.Cmd {
	m.openPanel(panelVerification)
	if m.verification != nil && !m.verification.Finished() {
		return nil
	}
	m.request = nil
	m.verification = &model.VerificationState{
		OtherUser: m.backend.UserID(),
		Phase:     model.VerificationWaitingForAccept,
	}
	return m.verificationCmd(m.backend.StartSelfVerification)
}

func (m *Model) acceptRequest() tea.Cmd {
	req := m.request
	if req == nil {
		return nil
	}
	m.request = nil
	m.button = 0
	m.verification = &model.VerificationState{
		FlowID:      req.FlowID,
		OtherUser:   req.FromUser,
		OtherDevice: req.FromDevice,
		Phase:       model.VerificationSasStarted,
	}
	b, flowID := m.backend, req.FlowID
	return m.verificationCmd(func(ctx context.Context) (model.VerificationState, error) {
		return b.AcceptVerification(ctx, flowID)
	})
}

func (m *Model) ignoreRequest() {
	if m.request == nil {
		return
	}
	m.backend.IgnoreVerification(m.request.FlowID)
	m.request = nil
	if m.verification == nil || m.verification.Finished() {
		m.closePanel()
	}
}

// applyVerification installs state unless it belongs to another flow or
// is older than what is shown.
func (m *Model) applyVerification(st model.VerificationState) tea.Cmd {
	cur := m.verification
	if cur != nil && !cur.Finished() && cur.FlowID != "" && st.FlowID != cur.FlowID {
		return nil
	}
	if cur != nil && cur.FlowID == st.FlowID && st.Phase < cur.Phase {
		return nil
	}
	wasFinished := cur != nil && cur.Finished() && cur.FlowID == st.FlowID
	m.verification = &st
	m.button = 0
	if wasFinished || !st.Finished() {
		return nil
	}
	if st.Phase == model.VerificationDone {
		m.toasts.Success("Device verified")
		return m.crossSigningCmd()
	}
	m.toasts.Warning(st.Headline())
	return nil
}

func (m *Model) handleVerificationResult(msg verificationMsg) tea.Cmd {
	if msg.Err != nil {
		m.toasts.Error("Verification failed: " + msg.Err.Error())
		if m.verification != nil && !m.verification.Finished() {
			m.verification.Phase = model.VerificationCancelled
			m.verification.Reason = msg.Err.Error()
		}
		return nil
	}
	return m.applyVerification(msg.State)
}

// =============================================================================
// ACTIONS
// =============================================================================

// selectRoom opens roomID. Selecting the open room only focuses the
// composer.
func (m *Model) selectRoom(roomID string) tea.Cmd {
	m.rooms.CursorToRoom(roomID)
	m.setFocus(focusComposer)
	if !m.rooms.Select(roomID) {
		return nil
	}
	var cmds []tea.Cmd
	if m.typing && m.timeline.RoomID != "" {
		m.typing = false
		cmds = append(cmds, m.typingCmd(m.timeline.RoomID, false))
	}
	m.timeline.BeginLoad(roomID)
	m.msgCursor = -1
	m.refreshHeader()
	m.refreshTimeline()
	cmds = append(cmds, m.loadTimelineCmd(roomID))
	return tea.Batch(cmds...)
}

func (m *Model) toggleFavourite(roomID string) tea.Cmd {
	room, ok := m.rooms.Room(roomID)
	if !ok {
		return nil
	}
	fav := !room.IsFavourite
	m.rooms.SetFavourite(roomID, fav)
	m.rooms.CursorToRoom(roomID)
	return m.favouriteCmd(roomID, fav)
}

func (m *Model) toggleSort() tea.Cmd {
	m.rooms.SetSortMode(m.rooms.SortMode().Next())
	m.toasts.Info("Sorting rooms: " + m.rooms.SortMode().Label())
	return m.saveSettingsCmd()
}

func (m *Model) openProfile() tea.Cmd {
	m.openPanel(panelProfile)
	m.busy = true
	return tea.Batch(m.loadProfileCmd(), m.crossSigningCmd())
}

// loadMoreIfAtTop requests older history once the view reaches the top.
func (m *Model) loadMoreIfAtTop() tea.Cmd {
	if !m.viewport.AtTop() {
		return nil
	}
	token, ok := m.timeline.BeginLoadMore()
	if !ok {
		return nil
	}
	m.refreshTimeline()
	return m.loadHistoryCmd(m.timeline.RoomID, token)
}

func (m *Model) sendComposer() tea.Cmd {
	line := m.composer.Value()
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if cmd, ok := parseSlash(line); ok {
		m.composer.Reset()
		run, err := m.runSlash(cmd)
		if err != nil {
			m.toasts.Warning(err.Error())
		}
		return run
	}

	roomID := m.rooms.Selected()
	if roomID == "" {
		m.toasts.Warning("Select a room first")
		return nil
	}
	if m.timeline.Sending {
		return nil
	}
	// "//text" sends "/text".
	if strings.HasPrefix(line, "//") {
		line = line[1:]
	}
	replyTo := ""
	if m.timeline.ReplyTo != nil {
		replyTo = m.timeline.ReplyTo.EventID
	}
	m.timeline.Sending = true
	m.timeline.CancelReply()
	m.composer.Reset()
	m.timeline.AtBottom = true
	m.msgCursor = -1

	cmds := []tea.Cmd{m.sendTextCmd(roomID, line, replyTo)}
	if m.typing {
		m.typing = false
		cmds = append(cmds, m.typingCmd(roomID, false))
	}
	return tea.Batch(cmds...)
}

// selectedMessage returns the highlighted message, or nil.
func (m *Model) selectedMessage() *model.Message {
	msgs := m.timeline.Messages()
	if len(msgs) == 0 {
		return nil
	}
	i := m.msgCursor
	if i < 0 || i >= len(msgs) {
		i = len(msgs) - 1
	}
	return msgs[i]
}

func (m *Model) openMessage(msg *model.Message) tea.Cmd {
	switch {
	case msg == nil:
		return nil
	case msg.Image != nil:
		m.preview = msg.EventID
		m.openPanel(panelImage)
		if _, ok := m.imageData[msg.EventID]; ok || m.fetching[msg.EventID] {
			return nil
		}
		delete(m.images, msg.EventID)
		m.fetching[msg.EventID] = true
		return m.fetchImageCmd(msg.EventID, *msg.Image)
	case msg.File != nil:
		m.toasts.Info("Downloading " + msg.File.Name + "…")
		return m.saveFileCmd(*msg.File)
	}
	m.toasts.Info("Nothing to open in this message")
	return nil
}

// =============================================================================
// FOCUS AND PANELS
// =============================================================================

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusComposer {
		m.composer.Focus()
	} else {
		m.composer.Blur()
	}
	if f != focusTimeline {
		m.msgCursor = -1
	}
}

func (m *Model) cycleFocus(delta int) {
	order := []focus{focusSidebar, focusTimeline, focusComposer}
	i := (int(m.focus) + delta + len(order)) % len(order)
	m.setFocus(order[i])
	if m.focus == focusTimeline && m.msgCursor < 0 {
		m.msgCursor = len(m.timeline.Messages()) - 1
	}
}

func (m *Model) openPanel(p panel) {
	m.panel = p
	m.button = 0
	m.editingAvatar = false
	m.composer.Blur()
}

func (m *Model) closePanel() {
	m.panel = panelNone
	m.preview = ""
	m.editingAvatar = false
	m.pathIn.Blur()
	m.pathIn.Reset()
	m.setFocus(m.focus)
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.panel != panelNone {
		return m, m.handlePanelKey(msg)
	}
	if m.searching {
		return m, m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.FocusNext):
		m.cycleFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.FocusPrev):
		m.cycleFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.Search):
		m.startSearch()
		return m, nil
	case key.Matches(msg, m.keys.NextUnread):
		if room, ok := m.rooms.NextUnread(); ok {
			return m, m.selectRoom(room.RoomID)
		}
		m.toasts.Info("No unread rooms")
		return m, nil
	case key.Matches(msg, m.keys.Profile):
		return m, m.openProfile()
	case key.Matches(msg, m.keys.Verify):
		if m.request != nil || m.verification != nil {
			m.openPanel(panelVerification)
			return m, nil
		}
		return m, m.startVerification()
	case msg.Type == tea.KeyF1:
		m.openPanel(panelHelp)
		return m, nil
	}

	switch m.focus {
	case focusSidebar:
		return m, m.handleSidebarKey(msg)
	case focusTimeline:
		return m, m.handleTimelineKey(msg)
	default:
		return m, m.handleComposerKey(msg)
	}
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.rooms.MoveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.rooms.MoveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.rooms.MoveCursor(-m.bodyHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.rooms.MoveCursor(m.bodyHeight())
	case key.Matches(msg, m.keys.Top):
		m.rooms.MoveCursor(-len(m.rooms.Rows()))
	case key.Matches(msg, m.keys.Bottom):
		m.rooms.MoveCursor(len(m.rooms.Rows()))
	case key.Matches(msg, m.keys.Select):
		row, ok := m.rooms.CursorRow()
		if !ok {
			return nil
		}
		if row.Header {
			m.rooms.ToggleSection(row.Section)
			return m.saveSettingsCmd()
		}
		return m.selectRoom(row.Room.RoomID)
	case key.Matches(msg, m.keys.Sort):
		return m.toggleSort()
	case key.Matches(msg, m.keys.Favourite):
		if row, ok := m.rooms.CursorRow(); ok && !row.Header {
			return m.toggleFavourite(row.Room.RoomID)
		}
	case key.Matches(msg, m.keys.Help):
		m.openPanel(panelHelp)
	case msg.String() == "/":
		m.startSearch()
	case key.Matches(msg, m.keys.Back):
		if m.rooms.Filter() != "" {
			m.search.Reset()
			m.rooms.SetFilter("")
		}
	}
	return nil
}

func (m *Model) handleTimelineKey(msg tea.KeyMsg) tea.Cmd {
	msgs := m.timeline.Messages()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.msgCursor > 0 {
			m.msgCursor--
			m.refreshTimeline()
			m.ensureCursorVisible()
		} else {
			m.viewport.LineUp(1)
		}
		return m.afterScroll()
	case key.Matches(msg, m.keys.Down):
		if m.msgCursor >= 0 && m.msgCursor < len(msgs)-1 {
			m.msgCursor++
			m.refreshTimeline()
			m.ensureCursorVisible()
		} else {
			m.viewport.LineDown(1)
		}
		return m.afterScroll()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m.afterScroll()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m.afterScroll()
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		if len(msgs) > 0 {
			m.msgCursor = 0
			m.refreshTimeline()
		}
		return m.afterScroll()
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		m.msgCursor = len(msgs) - 1
		m.refreshTimeline()
		return m.afterScroll()
	case key.Matches(msg, m.keys.Reply):
		if sel := m.selectedMessage(); sel != nil && sel.EventID != "" {
			m.timeline.StartReply(sel)
			m.setFocus(focusComposer)
		}
	case key.Matches(msg, m.keys.Copy):
		if sel := m.selectedMessage(); sel != nil {
			return copyCmd(sel.Body)
		}
	case key.Matches(msg, m.keys.Open):
		return m.openMessage(m.selectedMessage())
	case key.Matches(msg, m.keys.Help):
		m.openPanel(panelHelp)
	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Back):
		m.setFocus(focusComposer)
		m.refreshTimeline()
	}
	return nil
}

func (m *Model) handleComposerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		return m.sendComposer()
	case tea.KeyEsc:
		if m.timeline.ReplyTo != nil {
			m.timeline.CancelReply()
			return nil
		}
		m.setFocus(focusSidebar)
		return nil
	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m.afterScroll()
	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m.afterScroll()
	}

	before := m.composer.Value()
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return tea.Batch(cmd, m.typingChanged(before, m.composer.Value()))
}

// typingChanged sends a typing notice when the draft starts or empties.
func (m *Model) typingChanged(before, after string) tea.Cmd {
	roomID := m.rooms.Selected()
	if roomID == "" || before == after || !m.cfg.UI.TypingNotices {
		return nil
	}
	if _, isCmd := parseSlash(after); isCmd {
		return nil
	}
	switch {
	case after != "" && !m.typing:
		m.typing = true
		return m.typingCmd(roomID, true)
	case after == "" && m.typing:
		m.typing = false
		return m.typingCmd(roomID, false)
	}
	return nil
}

func (m *Model) startSearch() {
	m.searching = true
	m.setFocus(focusSidebar)
	m.search.SetValue(m.rooms.Filter())
	m.search.CursorEnd()
	m.search.Focus()
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.Reset()
		m.rooms.SetFilter("")
		return nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		if row, ok := m.rooms.CursorRow(); ok && !row.Header {
			return m.selectRoom(row.Room.RoomID)
		}
		return nil
	case tea.KeyUp:
		m.rooms.MoveCursor(-1)
		return nil
	case tea.KeyDown:
		m.rooms.MoveCursor(1)
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.rooms.SetFilter(m.search.Value())
	// Land on the first room rather than its section header.
	if row, ok := m.rooms.CursorRow(); ok && row.Header {
		m.rooms.MoveCursor(1)
	}
	return cmd
}

// =============================================================================
// PANEL KEYS
// =============================================================================

func (m *Model) handlePanelKey(msg tea.KeyMsg) tea.Cmd {
	if m.panel == panelProfile && m.editingAvatar {
		return m.handleAvatarPathKey(msg)
	}
	buttons := m.panelButtons()
	switch {
	case key.Matches(msg, m.keys.Back):
		m.closePanel()
		return nil
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.FocusPrev):
		if len(buttons) > 0 {
			m.button = (m.button - 1 + len(buttons)) % len(buttons)
		}
		return nil
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.FocusNext):
		if len(buttons) > 0 {
			m.button = (m.button + 1) % len(buttons)
		}
		return nil
	case key.Matches(msg, m.keys.Select):
		if len(buttons) == 0 {
			m.closePanel()
			return nil
		}
		if m.button >= len(buttons) {
			m.button = 0
		}
		return m.pressButton(buttons[m.button].action)
	}
	if m.panel == panelHelp || m.panel == panelImage {
		m.closePanel()
	}
	return nil
}

func (m *Model) handleAvatarPathKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.editingAvatar = false
		m.pathIn.Blur()
		m.pathIn.Reset()
		return nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.pathIn.Value())
		m.editingAvatar = false
		m.pathIn.Blur()
		m.pathIn.Reset()
		if path == "" {
			return nil
		}
		m.busy = true
		return m.setAvatarCmd(expandHome(path))
	}
	var cmd tea.Cmd
	m.pathIn, cmd = m.pathIn.Update(msg)
	return cmd
}

// buttonAction identifies what a panel button does.
type buttonAction int

const (
	actionClose buttonAction = iota
	actionAccept
	actionIgnore
	actionMatch
	actionMismatch
	actionCancel
	actionChangeAvatar
	actionRemoveAvatar
	actionVerify
	actionBootstrap
)

type button struct {
	label  string
	action buttonAction
}

// panelButtons lists the buttons of the open panel.
func (m *Model) panelButtons() []button {
	switch m.panel {
	case panelVerification:
		v := m.verification
		switch {
		case m.request != nil && (v == nil || v.Finished()):
			return []button{{"Accept", actionAccept}, {"Ignore", actionIgnore}}
		case v == nil || v.Finished():
			return []button{{"Close", actionClose}}
		case v.Phase == model.VerificationShowingEmoji:
			return []button{{"They match", actionMatch}, {"They don't match", actionMismatch}, {"Cancel", actionCancel}}
		default:
			return []button{{"Cancel", actionCancel}}
		}
	case panelProfile:
		buttons := []button{{"Change avatar", actionChangeAvatar}}
		if m.profile.AvatarURL != "" {
			buttons = append(buttons, button{"Remove avatar", actionRemoveAvatar})
		}
		if m.crossSigning != model.CrossSigningVerified {
			buttons = append(buttons, button{"Verify", actionVerify}, button{"Set up cross-signing", actionBootstrap})
		}
		return append(buttons, button{"Close", actionClose})
	}
	return nil
}

func (m *Model) pressButton(action buttonAction) tea.Cmd {
	b := m.backend
	switch action {
	case actionAccept:
		return m.acceptRequest()
	case actionIgnore:
		m.ignoreRequest()
	case actionMatch:
		m.button = 0
		return m.verificationCmd(b.ConfirmSAS)
	case actionMismatch:
		m.button = 0
		return m.verificationCmd(b.MismatchSAS)
	case actionCancel:
		m.button = 0
		return m.verificationCmd(b.CancelVerification)
	case actionChangeAvatar:
		m.editingAvatar = true
		m.pathIn.Reset()
		return m.pathIn.Focus()
	case actionRemoveAvatar:
		m.busy = true
		return m.clearAvatarCmd()
	case actionVerify:
		return m.startVerification()
	case actionBootstrap:
		m.toasts.Info("Setting up cross-signing…")
		return m.bootstrapCmd()
	case actionClose:
		m.closePanel()
	}
	return nil
}

// =============================================================================
// MOUSE AND SCROLLING
// =============================================================================

const wheelLines = 3

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if m.panel != panelNone {
		return m, nil
	}
	switch msg.Type {
	case tea.MouseWheelUp:
		m.viewport.LineUp(wheelLines)
		return m, m.afterScroll()
	case tea.MouseWheelDown:
		m.viewport.LineDown(wheelLines)
		return m, m.afterScroll()
	}
	return m, nil
}

// afterScroll records whether the view follows new messages and loads
// history at the top.
func (m *Model) afterScroll() tea.Cmd {
	m.timeline.AtBottom = m.viewport.AtBottom()
	if m.timeline.AtBottom && m.focus != focusTimeline {
		m.msgCursor = -1
	}
	return m.loadMoreIfAtTop()
}
