// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"database/sql"
	"fmt"

	"go.mau.fi/util/dbutil"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto"
	"maunium.net/go/mautrix/crypto/cryptohelper"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/storage"
)

type cryptoState struct {
	helper *cryptohelper.CryptoHelper
	raw    *sql.DB
}

func (s *cryptoState) machine() *crypto.OlmMachine {
	if s == nil || s.helper == nil {
		return nil
	}
	return s.helper.Machine()
}

// initCrypto opens the crypto store and enables end-to-end encryption on
// the SDK client.
func (c *Client) initCrypto(ctx context.Context) error {
	key, err := c.stored.PickleKey()
	if err != nil {
		return err
	}

	raw, err := storage.Open(c.opts.cryptoPath())
	if err != nil {
		return fmt.Errorf("open crypto store: %w", err)
	}
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		raw.Close()
		return fmt.Errorf("open crypto store: %w", err)
	}

	helper, err := cryptohelper.NewCryptoHelper(c.cli, key, db)
	if err != nil {
		raw.Close()
		return fmt.Errorf("create crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		raw.Close()
		return fmt.Errorf("initialise encryption: %w", err)
	}
	c.cli.Crypto = helper
	c.crypto = &cryptoState{helper: helper, raw: raw}

	verify, err := newVerifier(ctx, c)
	if err != nil {
		c.closeCrypto()
		return err
	}
	c.verify = verify
	return nil
}

func (c *Client) closeCrypto() error {
	if c.crypto == nil {
		return nil
	}
	s := c.crypto
	c.crypto = nil
	c.cli.Crypto = nil
	var err error
	if s.helper != nil {
		err = s.helper.Close()
	}
	if cerr := s.raw.Close(); err == nil {
		err = cerr
	}
	return err
}

// =============================================================================
// CROSS-SIGNING
// =============================================================================

// CrossSigningStatus reports whether this device is part of the user's
// cross-signed identity.
func (c *Client) CrossSigningStatus(ctx context.Context) model.CrossSigningStatus {
	mach := c.crypto.machine()
	if mach == nil {
		return model.CrossSigningUnknown
	}
	if keys := mach.CrossSigningKeys; keys != nil &&
		keys.MasterKey != nil && keys.SelfSigningKey != nil && keys.UserSigningKey != nil {
		return model.CrossSigningVerified
	}
	if mach.IsDeviceTrusted(ctx, mach.OwnIdentity()) {
		return model.CrossSigningVerified
	}
	return model.CrossSigningUnverified
}

// BootstrapCrossSigning creates and uploads cross-signing keys if the
// account has none, then signs this device. Key upload needs the login
// password, which is only kept in memory for sessions started with Login.
func (c *Client) BootstrapCrossSigning(ctx context.Context) error {
	mach := c.crypto.machine()
	if mach == nil {
		return ErrNoCrypto
	}
	if mach.GetOwnCrossSigningPublicKeys(ctx) != nil {
		c.log.Info().Msg("cross-signing already set up")
		return nil
	}

	password := c.rememberedPassword()
	if password == "" {
		return ErrUIARequired
	}

	keys, err := mach.GenerateCrossSigningKeys()
	if err != nil {
		return fmt.Errorf("generate cross-signing keys: %w", err)
	}
	localpart := model.Localpart(c.stored.UserID)
	err = mach.PublishCrossSigningKeys(ctx, keys, func(resp *mautrix.RespUserInteractive) interface{} {
		return &mautrix.ReqUIAuthLogin{
			BaseAuthData: mautrix.BaseAuthData{
				Type:    mautrix.AuthTypePassword,
				Session: resp.Session,
			},
			User:     localpart,
			Password: password,
		}
	})
	if err != nil {
		return fmt.Errorf("publish cross-signing keys: %w", err)
	}
	if err := mach.SignOwnDevice(ctx, mach.OwnIdentity()); err != nil {
		return fmt.Errorf("sign own device: %w", err)
	}
	c.log.Info().Msg("cross-signing bootstrapped")
	return nil
}
