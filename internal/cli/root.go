// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/logging"
	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/session"
	"github.com/jeranaias/cosmic-matrix/internal/ui/app"
	"github.com/jeranaias/cosmic-matrix/internal/ui/chat"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	logFileName   = "cosmic-matrix.log"
	watchDebounce = 250 * time.Millisecond
)

// =============================================================================
// SHARED STATE
// =============================================================================

// globals holds the persistent flags.
type globals struct {
	configPath string
	logLevel   string
}

// env is everything a command needs once flags are parsed.
type env struct {
	cfg     *config.Config
	cfgPath string
	store   *session.Store
	dataDir string
}

// load resolves paths and reads the config file. A missing file yields
// the defaults.
func (g *globals) load() (*env, error) {
	path := g.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)

	store, err := session.DefaultStore()
	if err != nil {
		return nil, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDir(dataDir); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, cfgPath: path, store: store, dataDir: dataDir}, nil
}

// logger opens the log. The UI owns the terminal, so it logs to a file;
// the other commands log to stderr. --log-level wins over everything.
func (e *env) logger(console bool, level string) (zerolog.Logger, io.Closer, error) {
	lc := logging.Config{Level: e.cfg.Logging.Level, Console: console}
	if !console {
		lc.File = e.cfg.Logging.File
		if lc.File == "" {
			lc.File = filepath.Join(e.dataDir, logFileName)
		}
	}
	log, closer, err := logging.New(lc)
	if err != nil {
		return log, closer, err
	}
	if level != "" {
		log = log.Level(logging.ParseLevel(level))
	}
	return log, closer, nil
}

func (e *env) matrixOptions(log zerolog.Logger) matrix.Options {
	return matrix.Options{
		Config:  e.cfg,
		Store:   e.store,
		DataDir: e.dataDir,
		Logger:  log,
	}
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. With no subcommand it starts the
// terminal UI.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "cosmic-matrix",
		Short:         "A terminal chat client for Matrix",
		Long:          "cosmic-matrix is a Matrix chat client with end-to-end encryption,\ncross-signing and emoji verification.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, g)
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/cosmic-matrix/config.toml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newLoginCommand(g),
		newLogoutCommand(g),
		newSessionCommand(g),
		newConfigCommand(g),
		newVersionCommand(),
	)
	return root
}

func runUI(cmd *cobra.Command, g *globals) error {
	if !Interactive() {
		return errors.New("cosmic-matrix needs an interactive terminal")
	}
	e, err := g.load()
	if err != nil {
		return err
	}
	log, closer, err := e.logger(false, g.logLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info().Str("version", Version).Str("commit", GitCommit).Msg("starting")

	var reloads <-chan config.Reload
	watcher, err := config.NewWatcher(e.cfgPath, watchDebounce)
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
	} else {
		watcher.Start(cmd.Context())
		defer watcher.Close()
		reloads = watcher.Changes()
	}

	root := app.New(app.Options{
		Connector: app.MatrixConnector{Options: e.matrixOptions(log)},
		Store:     e.store,
		Config:    e.cfg,
		Reloads:   reloads,
		Notifier:  chat.DesktopNotifier{},
		Logger:    log,
	})

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		if cerr := m.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close account")
		}
	}
	if err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	log.Info().Msg("exiting")
	return nil
}
