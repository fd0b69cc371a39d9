// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/session"
	"github.com/jeranaias/cosmic-matrix/internal/ui/styles"
)

// fakeBackend records calls and returns canned results.
type fakeBackend struct {
	mu sync.Mutex

	updates chan matrix.Update

	timelines map[string][]model.TimelineItem
	tokens    map[string]string
	history   []model.TimelineItem
	sendErr   error
	accept    model.VerificationState

	loads     []string
	histories []string
	sent      []string
	replies   []string
	reads     []string
	favs      map[string]bool
	ignored   []string
	confirmed int
	mismatch  int
	cancelled int
	started   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		updates:   make(chan matrix.Update, 8),
		timelines: map[string][]model.TimelineItem{},
		tokens:    map[string]string{},
		favs:      map[string]bool{},
	}
}

func (f *fakeBackend) UserID() string                { return "@me:example.org" }
func (f *fakeBackend) DeviceID() string              { return "DEVICE" }
func (f *fakeBackend) StartSync(context.Context)     {}
func (f *fakeBackend) Updates() <-chan matrix.Update { return f.updates }

func (f *fakeBackend) LoadTimeline(_ context.Context, roomID string) ([]model.TimelineItem, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, roomID)
	return f.timelines[roomID], f.tokens[roomID], nil
}

func (f *fakeBackend) LoadHistory(_ context.Context, roomID, token string) ([]model.TimelineItem, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, token)
	return f.history, "", nil
}

func (f *fakeBackend) SendText(_ context.Context, roomID, body, replyTo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	f.replies = append(f.replies, replyTo)
	return f.sendErr
}

func (f *fakeBackend) SendAttachment(context.Context, string, string) error { return nil }

func (f *fakeBackend) MarkRead(_ context.Context, roomID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, eventID)
	return nil
}

func (f *fakeBackend) SetTyping(context.Context, string, bool) error { return nil }

func (f *fakeBackend) FetchMedia(context.Context, model.MediaSource) ([]byte, error) {
	return nil, errors.New("no media")
}

func (f *fakeBackend) FetchAvatar(context.Context, string) ([]byte, error) { return nil, nil }

func (f *fakeBackend) OwnProfile(context.Context) (model.Profile, error) {
	return model.Profile{UserID: f.UserID(), DeviceID: f.DeviceID(), DisplayName: "Me"}, nil
}

func (f *fakeBackend) SetDisplayName(context.Context, string) error      { return nil }
func (f *fakeBackend) SetAvatar(context.Context, string) (string, error) { return "mxc://x/y", nil }
func (f *fakeBackend) ClearAvatar(context.Context) error                 { return nil }

func (f *fakeBackend) SetFavourite(_ context.Context, roomID string, fav bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favs[roomID] = fav
	return nil
}

func (f *fakeBackend) CrossSigningStatus(context.Context) model.CrossSigningStatus {
	return model.CrossSigningUnverified
}

func (f *fakeBackend) BootstrapCrossSigning(context.Context) error { return matrix.ErrUIARequired }

func (f *fakeBackend) StartSelfVerification(context.Context) (model.VerificationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return model.VerificationState{FlowID: "flow-out", OtherUser: f.UserID(), Phase: model.VerificationWaitingForAccept}, nil
}

func (f *fakeBackend) AcceptVerification(_ context.Context, flowID string) (model.VerificationState, error) {
	return f.accept, nil
}

func (f *fakeBackend) IgnoreVerification(flowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignored = append(f.ignored, flowID)
}

func (f *fakeBackend) ConfirmSAS(context.Context) (model.VerificationState, error) {
	f.mu.Lock()
	f.confirmed++
	f.mu.Unlock()
	return model.VerificationState{FlowID: "flow-1", Phase: model.VerificationConfirming}, nil
}

func (f *fakeBackend) MismatchSAS(context.Context) (model.VerificationState, error) {
	f.mu.Lock()
	f.mismatch++
	f.mu.Unlock()
	return model.VerificationState{FlowID: "flow-1", Phase: model.VerificationCancelled, Reason: "They don't match"}, nil
}

func (f *fakeBackend) CancelVerification(context.Context) (model.VerificationState, error) {
	f.mu.Lock()
	f.cancelled++
	f.mu.Unlock()
	return model.VerificationState{FlowID: "flow-1", Phase: model.VerificationCancelled, Reason: "Cancelled by user"}, nil
}

func (f *fakeBackend) Logout(context.Context) error { return nil }
func (f *fakeBackend) Close() error                 { return nil }

// fakeSaver captures saved settings.
type fakeSaver struct {
	saved []session.Settings
}

func (s *fakeSaver) SaveSettings(settings session.Settings) error {
	s.saved = append(s.saved, settings)
	return nil
}

// fakeNotifier captures notifications.
type fakeNotifier struct {
	titles []string
}

func (n *fakeNotifier) Notify(title, body string) error {
	n.titles = append(n.titles, title)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	cfg := config.Default()
	cfg.UI.ShowImages = false
	cfg.UI.RenderMarkdown = false
	m := New(Options{
		Backend:  b,
		Config:   cfg,
		Settings: session.DefaultSettings(),
		Saver:    &fakeSaver{},
		Theme:    styles.NewTheme(styles.ModeDark),
		Logger:   zerolog.Nop(),
	})
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// step feeds msg through Update.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// run executes cmd and any batch it returns, feeding each result back
// through Update and running what that returns in turn. Only use with
// commands that return promptly.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = run(t, m, c)
		}
		return m
	}
	if msg == nil {
		return m
	}
	m, next := step(t, m, msg)
	return run(t, m, next)
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "ctrl+v":
		return tea.KeyMsg{Type: tea.KeyCtrlV}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func textMessage(id, sender, body string) model.TimelineItem {
	return model.MessageItem(&model.Message{EventID: id, Sender: sender, SenderDisplay: model.Localpart(sender), Body: body})
}
