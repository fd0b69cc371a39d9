// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"maunium.net/go/mautrix/crypto/verificationhelper"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

const (
	reasonUser     = "Cancelled by user"
	reasonMismatch = "They don't match"

	sasStartTimeout = 30 * time.Second
)

// verifier drives SAS emoji verification through the SDK helper and
// mirrors its progress as model.VerificationState updates. Only one flow
// is tracked at a time.
type verifier struct {
	c      *Client
	helper *verificationhelper.VerificationHelper

	mu        sync.Mutex
	active    *model.VerificationState
	initiator bool
	pending   *model.VerificationRequest

	wg sync.WaitGroup
}

func newVerifier(ctx context.Context, c *Client) (*verifier, error) {
	v := &verifier{c: c}
	v.helper = verificationhelper.NewVerificationHelper(
		c.cli,
		c.crypto.machine(),
		verificationhelper.NewInMemoryVerificationStore(),
		v,
		false, // show QR
		false, // scan QR
		true,  // SAS
	)
	if err := v.helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialise verification: %w", err)
	}
	return v, nil
}

func (v *verifier) close() { v.wg.Wait() }

func snapshot(s *model.VerificationState) model.VerificationState {
	out := *s
	out.Emojis = append([]model.SasEmoji(nil), s.Emojis...)
	return out
}

// update applies fn to the flow txnID if it is the active one and emits
// the result.
func (v *verifier) update(txnID id.VerificationTransactionID, fn func(*model.VerificationState)) {
	v.mu.Lock()
	if v.active == nil || v.active.FlowID != string(txnID) {
		v.mu.Unlock()
		return
	}
	fn(v.active)
	state := snapshot(v.active)
	v.mu.Unlock()

	v.c.emit(VerificationChanged{State: state})
}

// =============================================================================
// SDK CALLBACKS
// =============================================================================

func (v *verifier) VerificationRequested(_ context.Context, txnID id.VerificationTransactionID, from id.UserID, fromDevice id.DeviceID) {
	req := model.VerificationRequest{
		FlowID:     string(txnID),
		FromUser:   from.String(),
		FromDevice: fromDevice.String(),
	}
	v.mu.Lock()
	busy := v.active != nil && !v.active.Finished()
	if !busy {
		v.pending = &req
	}
	v.mu.Unlock()

	if busy {
		v.c.log.Info().Str("flow_id", req.FlowID).Msg("ignoring verification request during active flow")
		return
	}
	v.c.emit(VerificationRequested{Request: req})
}

func (v *verifier) VerificationReady(_ context.Context, txnID id.VerificationTransactionID, otherDeviceID id.DeviceID, supportsSAS, _ bool, _ *verificationhelper.QRCode) {
	v.mu.Lock()
	start := v.initiator && supportsSAS
	v.mu.Unlock()

	v.update(txnID, func(s *model.VerificationState) {
		s.OtherDevice = otherDeviceID.String()
		s.Phase = model.VerificationSasStarted
	})
	if !start {
		return
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sasStartTimeout)
		defer cancel()
		if err := v.helper.StartSAS(ctx, txnID); err != nil {
			v.c.log.Warn().Err(err).Msg("start SAS failed")
			v.update(txnID, func(s *model.VerificationState) {
				s.Phase = model.VerificationCancelled
				s.Reason = err.Error()
			})
		}
	}()
}

func (v *verifier) ShowSAS(_ context.Context, txnID id.VerificationTransactionID, emojis []rune, descriptions []string, _ []int) {
	pairs := make([]model.SasEmoji, 0, len(emojis))
	for i, r := range emojis {
		e := model.SasEmoji{Symbol: string(r)}
		if i < len(descriptions) {
			e.Description = descriptions[i]
		}
		pairs = append(pairs, e)
	}
	v.update(txnID, func(s *model.VerificationState) {
		s.Phase = model.VerificationShowingEmoji
		s.Emojis = pairs
	})
}

func (v *verifier) VerificationCancelled(_ context.Context, txnID id.VerificationTransactionID, code event.VerificationCancelCode, reason string) {
	if reason == "" {
		reason = string(code)
	}
	v.mu.Lock()
	if v.pending != nil && v.pending.FlowID == string(txnID) {
		v.pending = nil
	}
	v.mu.Unlock()

	v.update(txnID, func(s *model.VerificationState) {
		s.Phase = model.VerificationCancelled
		s.Reason = reason
	})
}

func (v *verifier) VerificationDone(_ context.Context, txnID id.VerificationTransactionID, _ event.VerificationMethod) {
	v.update(txnID, func(s *model.VerificationState) {
		s.Phase = model.VerificationDone
	})
}

// =============================================================================
// ACTIONS
// =============================================================================

func (v *verifier) activeFlow() (id.VerificationTransactionID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil || v.active.Finished() {
		return "", ErrNoActiveVerification
	}
	return id.VerificationTransactionID(v.active.FlowID), nil
}

func (v *verifier) start(ctx context.Context, userID string) (model.VerificationState, error) {
	txnID, err := v.helper.StartVerification(ctx, id.UserID(userID))
	if err != nil {
		return model.VerificationState{}, fmt.Errorf("start verification: %w", err)
	}
	state := model.VerificationState{
		FlowID:    string(txnID),
		OtherUser: userID,
		Phase:     model.VerificationWaitingForAccept,
	}
	v.mu.Lock()
	v.active = &state
	v.initiator = true
	v.pending = nil
	v.mu.Unlock()
	return state, nil
}

func (v *verifier) accept(ctx context.Context, flowID string) (model.VerificationState, error) {
	v.mu.Lock()
	req := v.pending
	v.mu.Unlock()
	if req == nil || req.FlowID != flowID {
		return model.VerificationState{}, fmt.Errorf("verification request %s not found", flowID)
	}

	// Tracked before answering so the SAS start that follows finds it.
	state := model.VerificationState{
		FlowID:      flowID,
		OtherUser:   req.FromUser,
		OtherDevice: req.FromDevice,
		Phase:       model.VerificationSasStarted,
	}
	v.mu.Lock()
	v.active = &state
	v.initiator = false
	v.pending = nil
	v.mu.Unlock()

	if err := v.helper.AcceptVerification(ctx, id.VerificationTransactionID(flowID)); err != nil {
		v.mu.Lock()
		v.active = nil
		v.mu.Unlock()
		return model.VerificationState{}, fmt.Errorf("accept verification: %w", err)
	}
	return state, nil
}

func (v *verifier) ignore(flowID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending != nil && v.pending.FlowID == flowID {
		v.pending = nil
	}
}

func (v *verifier) confirm(ctx context.Context) (model.VerificationState, error) {
	txnID, err := v.activeFlow()
	if err != nil {
		return model.VerificationState{}, err
	}
	if err := v.helper.ConfirmSAS(ctx, txnID); err != nil {
		return model.VerificationState{}, fmt.Errorf("confirm verification: %w", err)
	}
	return v.set(txnID, model.VerificationConfirming, ""), nil
}

func (v *verifier) cancel(ctx context.Context, code event.VerificationCancelCode, reason string) (model.VerificationState, error) {
	txnID, err := v.activeFlow()
	if err != nil {
		return model.VerificationState{}, err
	}
	if err := v.helper.CancelVerification(ctx, txnID, code, reason); err != nil {
		v.c.log.Warn().Err(err).Msg("cancel verification failed")
	}
	return v.set(txnID, model.VerificationCancelled, reason), nil
}

func (v *verifier) set(txnID id.VerificationTransactionID, phase model.VerificationPhase, reason string) model.VerificationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil || v.active.FlowID != string(txnID) {
		return model.VerificationState{FlowID: string(txnID), Phase: phase, Reason: reason}
	}
	// A completion reported by the SDK while the call was in flight wins.
	if !v.active.Finished() {
		v.active.Phase = phase
		v.active.Reason = reason
	}
	return snapshot(v.active)
}

// =============================================================================
// CLIENT API
// =============================================================================

func (c *Client) verifierOrErr() (*verifier, error) {
	if c.verify == nil {
		return nil, ErrNoCrypto
	}
	return c.verify, nil
}

// StartSelfVerification asks the user's other devices to verify this one.
func (c *Client) StartSelfVerification(ctx context.Context) (model.VerificationState, error) {
	v, err := c.verifierOrErr()
	if err != nil {
		return model.VerificationState{}, err
	}
	return v.start(ctx, c.stored.UserID)
}

// AcceptVerification accepts the pending incoming request flowID.
func (c *Client) AcceptVerification(ctx context.Context, flowID string) (model.VerificationState, error) {
	v, err := c.verifierOrErr()
	if err != nil {
		return model.VerificationState{}, err
	}
	return v.accept(ctx, flowID)
}

// IgnoreVerification drops a pending request without answering it.
func (c *Client) IgnoreVerification(flowID string) {
	if c.verify != nil {
		c.verify.ignore(flowID)
	}
}

// ConfirmSAS reports that the emoji match.
func (c *Client) ConfirmSAS(ctx context.Context) (model.VerificationState, error) {
	v, err := c.verifierOrErr()
	if err != nil {
		return model.VerificationState{}, err
	}
	return v.confirm(ctx)
}

// MismatchSAS reports that the emoji differ, cancelling the flow.
func (c *Client) MismatchSAS(ctx context.Context) (model.VerificationState, error) {
	v, err := c.verifierOrErr()
	if err != nil {
		return model.VerificationState{}, err
	}
	return v.cancel(ctx, event.VerificationCancelCodeSASMismatch, reasonMismatch)
}

// CancelVerification aborts the active flow.
func (c *Client) CancelVerification(ctx context.Context) (model.VerificationState, error) {
	v, err := c.verifierOrErr()
	if err != nil {
		return model.VerificationState{}, err
	}
	return v.cancel(ctx, event.VerificationCancelCodeUser, reasonUser)
}
