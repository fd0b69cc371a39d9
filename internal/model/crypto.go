// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CROSS-SIGNING
// =============================================================================

// CrossSigningStatus summarises whether this device is vouched for by the
// account's cross-signing identity.
type CrossSigningStatus int

const (
	CrossSigningUnknown CrossSigningStatus = iota
	CrossSigningUnverified
	CrossSigningVerified
)

// Icon is shown in the header next to the user ID.
func (s CrossSigningStatus) Icon() string {
	switch s {
	case CrossSigningVerified:
		return "🔒"
	case CrossSigningUnverified:
		return "🔓"
	default:
		return "?"
	}
}

func (s CrossSigningStatus) String() string {
	switch s {
	case CrossSigningVerified:
		return "Verified"
	case CrossSigningUnverified:
		return "Not verified"
	default:
		return "Unknown"
	}
}

// =============================================================================
// SAS VERIFICATION
// =============================================================================

// VerificationPhase is a step of an interactive emoji verification.
type VerificationPhase int

const (
	VerificationWaitingForAccept VerificationPhase = iota
	VerificationSasStarted
	VerificationShowingEmoji
	VerificationConfirming
	VerificationDone
	VerificationCancelled
)

// SasEmoji is one of the seven symbols both devices display.
type SasEmoji struct {
	Symbol      string
	Description string
}

// VerificationState is the current verification as shown in the panel.
type VerificationState struct {
	FlowID      string
	OtherUser   string
	OtherDevice string
	Phase       VerificationPhase
	Emojis      []SasEmoji
	Reason      string // set when Phase is VerificationCancelled
}

// Finished reports whether the flow has ended either way.
func (v *VerificationState) Finished() bool {
	return v.Phase == VerificationDone || v.Phase == VerificationCancelled
}

// Headline is the panel's status line.
func (v *VerificationState) Headline() string {
	switch v.Phase {
	case VerificationWaitingForAccept:
		return "Waiting for the other device to accept…"
	case VerificationSasStarted:
		return "Exchanging keys…"
	case VerificationShowingEmoji:
		return "Compare these emoji with the other device"
	case VerificationConfirming:
		return "Waiting for the other device to confirm…"
	case VerificationDone:
		return "Verification complete"
	case VerificationCancelled:
		if v.Reason == "" {
			return "Verification cancelled"
		}
		return "Verification cancelled: " + v.Reason
	}
	return ""
}

// VerificationRequest is an incoming request awaiting Accept or Ignore.
type VerificationRequest struct {
	FlowID     string
	FromUser   string
	FromDevice string
}
