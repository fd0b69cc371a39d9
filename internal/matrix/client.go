// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/session"
	"github.com/jeranaias/cosmic-matrix/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionExpired is returned by Restore when the server no longer
	// accepts the stored access token.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoCrypto is returned by encryption features when the crypto store
	// is not open.
	ErrNoCrypto = errors.New("encryption is not available")
	// ErrUIARequired is returned when key upload needs a password and none
	// was entered during this run.
	ErrUIARequired = errors.New("UIA required but no password in memory")
	// ErrNoActiveVerification is returned by SAS actions with no flow open.
	ErrNoActiveVerification = errors.New("no active verification")
)

const (
	cryptoDBFile = "crypto.db"
	mediaDBFile  = "media.db"

	updatesBuffer = 64
)

// =============================================================================
// CLIENT
// =============================================================================

// Options configures Login and Restore.
type Options struct {
	Config  *config.Config
	Store   *session.Store
	DataDir string
	Logger  zerolog.Logger
}

func (o Options) cryptoPath() string { return filepath.Join(o.DataDir, cryptoDBFile) }
func (o Options) mediaPath() string  { return filepath.Join(o.DataDir, mediaDBFile) }

// Client is a logged-in Matrix account.
type Client struct {
	cli    *mautrix.Client
	log    zerolog.Logger
	opts   Options
	stored *session.Stored

	rooms  *roomCache
	acc    accumulator
	utd    pendingSet
	crypto *cryptoState
	verify *verifier
	media  *mediaFetcher

	pwMu     sync.Mutex
	password string

	typing *rate.Limiter

	updates  chan Update
	emitMu   sync.RWMutex
	closed   bool
	syncCtx  context.Context
	stopSync context.CancelFunc
	started  atomic.Bool
	synced   atomic.Bool
	wg       sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Login authenticates with a password, writes the session file and opens
// a fresh crypto store for the new device.
func Login(ctx context.Context, opts Options, homeserver, username, password string) (*Client, error) {
	hs := ResolveHomeserver(ctx, homeserver, opts.Logger)
	cli, err := mautrix.NewClient(hs, "", "")
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	resp, err := cli.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: username,
		},
		Password:                 password,
		InitialDeviceDisplayName: opts.Config.Account.DeviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	secret, err := session.NewPickleSecret()
	if err != nil {
		return nil, err
	}
	stored := &session.Stored{
		Homeserver:   hs,
		UserID:       resp.UserID.String(),
		AccessToken:  resp.AccessToken,
		DeviceID:     resp.DeviceID.String(),
		PickleSecret: secret,
	}

	// The crypto store belongs to one device; a new login starts clean.
	if err := storage.RemoveDatabase(opts.cryptoPath()); err != nil {
		return nil, fmt.Errorf("reset crypto store: %w", err)
	}
	if err := opts.Store.SaveSession(stored); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	c, err := newClient(ctx, opts, cli, stored)
	if err != nil {
		return nil, err
	}
	c.rememberPassword(password)
	opts.Logger.Info().Str("user_id", stored.UserID).Str("device_id", stored.DeviceID).Msg("logged in")
	return c, nil
}

// Restore resumes the session stored on disk. It returns
// session.ErrNoSession when there is none and ErrSessionExpired when the
// token has been revoked.
func Restore(ctx context.Context, opts Options) (*Client, error) {
	stored, err := opts.Store.LoadSession()
	if err != nil {
		return nil, err
	}

	cli, err := mautrix.NewClient(stored.Homeserver, id.UserID(stored.UserID), stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	cli.DeviceID = id.DeviceID(stored.DeviceID)

	if _, err := cli.Whoami(ctx); err != nil {
		if errors.Is(err, mautrix.MUnknownToken) {
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("session restore failed: %w", err)
	}

	if stored.PickleSecret == "" {
		// Without the secret the existing store cannot be unpickled.
		if stored.PickleSecret, err = session.NewPickleSecret(); err != nil {
			return nil, err
		}
		if err := storage.RemoveDatabase(opts.cryptoPath()); err != nil {
			return nil, fmt.Errorf("reset crypto store: %w", err)
		}
		if err := opts.Store.SaveSession(stored); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}

	c, err := newClient(ctx, opts, cli, stored)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info().Str("user_id", stored.UserID).Msg("session restored")
	return c, nil
}

func newClient(ctx context.Context, opts Options, cli *mautrix.Client, stored *session.Stored) (*Client, error) {
	c, base := wireClient(opts, cli, stored)

	if err := c.initCrypto(ctx); err != nil {
		return nil, err
	}
	// The crypto helper may swap in its own persistent sync store. Room
	// metadata lives in memory, so every launch starts from a full sync.
	cli.Store = mautrix.NewMemorySyncStore()
	// Registered after the crypto helper so decrypted events are seen
	// before their encrypted originals.
	c.registerHandlers(base)

	media, err := newMediaFetcher(cli, opts, c.log)
	if err != nil {
		c.closeCrypto()
		return nil, err
	}
	c.media = media
	return c, nil
}

// wireClient builds the Client around cli and installs the batching
// syncer. Event handlers are registered by the caller.
func wireClient(opts Options, cli *mautrix.Client, stored *session.Stored) (*Client, *mautrix.DefaultSyncer) {
	log := opts.Logger
	cli.Log = log.With().Str("component", "mautrix").Logger()
	cli.StateStore = mautrix.NewMemoryStateStore()
	cli.Store = mautrix.NewMemorySyncStore()

	c := &Client{
		cli:     cli,
		log:     log.With().Str("component", "matrix").Logger(),
		opts:    opts,
		stored:  stored,
		rooms:   newRoomCache(stored.UserID),
		utd:     newPendingSet(),
		typing:  rate.NewLimiter(rate.Every(3*time.Second), 1),
		updates: make(chan Update, updatesBuffer),
	}

	base, ok := cli.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		base = mautrix.NewDefaultSyncer()
	}
	syncer := &batchSyncer{DefaultSyncer: base, c: c}
	syncer.FilterJSON = syncFilter(opts.Config)
	cli.Syncer = syncer
	base.OnEvent(cli.StateStoreSyncHandler)
	return c, base
}

// UserID returns the logged-in user.
func (c *Client) UserID() string { return c.stored.UserID }

// DeviceID returns this device.
func (c *Client) DeviceID() string { return c.stored.DeviceID }

// Homeserver returns the base URL in use.
func (c *Client) Homeserver() string { return c.stored.Homeserver }

// Updates delivers sync results. It is closed after the sync loop stops.
func (c *Client) Updates() <-chan Update { return c.updates }

func (c *Client) rememberPassword(pw string) {
	c.pwMu.Lock()
	c.password = pw
	c.pwMu.Unlock()
}

func (c *Client) rememberedPassword() string {
	c.pwMu.Lock()
	defer c.pwMu.Unlock()
	return c.password
}

// =============================================================================
// SYNC LOOP
// =============================================================================

// StartSync runs the sync loop until ctx is cancelled, Close is called, or
// the loop gives up. Calling it again has no effect.
func (c *Client) StartSync(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.syncCtx, c.stopSync = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.cli.SyncWithContext(c.syncCtx)
		switch {
		case errors.Is(err, context.Canceled):
			err = nil
		case errors.Is(err, mautrix.MUnknownToken):
			// The stop after SessionExpired carries no error.
			c.emit(SessionExpired{})
			err = nil
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("sync loop stopped")
		}
		c.finish(SyncStopped{Err: err})
	}()
}

// emit sends u to the UI, dropping it once the client is closing.
func (c *Client) emit(u Update) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.closed {
		return
	}
	ctx := c.syncCtx
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case c.updates <- u:
	case <-ctx.Done():
	}
}

func (c *Client) finish(last Update) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.updates <- last:
	default:
	}
	c.closed = true
	close(c.updates)
}

// Close stops the sync loop and releases the stores. The server session
// stays valid.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.stopSync != nil {
			c.stopSync()
		}
		c.cli.StopSync()
		c.wg.Wait()
		c.finish(SyncStopped{})

		if c.verify != nil {
			c.verify.close()
		}
		var errs []error
		if c.media != nil {
			errs = append(errs, c.media.close())
		}
		errs = append(errs, c.closeCrypto())
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// Logout ends the session on the server, then removes the session file
// and the crypto store. Server errors are logged and do not stop the
// local cleanup.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.cli.Logout(ctx); err != nil {
		c.log.Warn().Err(err).Msg("server logout failed")
	}
	closeErr := c.Close()
	if err := c.opts.Store.ClearSession(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if err := storage.RemoveDatabase(c.opts.cryptoPath()); err != nil {
		return fmt.Errorf("remove crypto store: %w", err)
	}
	c.log.Info().Msg("logged out")
	return closeErr
}

// LogoutStored ends a stored session without starting sync or crypto,
// for use from the command line.
func LogoutStored(ctx context.Context, opts Options) error {
	stored, err := opts.Store.LoadSession()
	if err != nil {
		return err
	}
	cli, err := mautrix.NewClient(stored.Homeserver, id.UserID(stored.UserID), stored.AccessToken)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if _, err := cli.Logout(ctx); err != nil {
		opts.Logger.Warn().Err(err).Msg("server logout failed")
	}
	if err := opts.Store.ClearSession(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return storage.RemoveDatabase(opts.cryptoPath())
}
