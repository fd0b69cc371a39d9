// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/cosmic-matrix/internal/matrix"
	"github.com/jeranaias/cosmic-matrix/internal/session"
)

const (
	loginTimeout  = 2 * time.Minute
	logoutTimeout = 30 * time.Second
)

var errAborted = errors.New("aborted")

// =============================================================================
// LOGIN
// =============================================================================

func newLoginCommand(g *globals) *cobra.Command {
	var homeserver, username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a password and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !Interactive() {
				return errors.New("login needs an interactive terminal")
			}
			e, err := g.load()
			if err != nil {
				return err
			}
			log, closer, err := e.logger(true, g.logLevel)
			if err != nil {
				return err
			}
			defer closer.Close()

			p := newPrompter()
			if homeserver == "" {
				if homeserver, err = p.ask("Homeserver", e.cfg.Account.DefaultHomeserver); err != nil {
					p.Close()
					return err
				}
			}
			if username == "" {
				if username, err = p.ask("Username", ""); err != nil {
					p.Close()
					return err
				}
			}
			// liner must release the terminal before the raw password read.
			p.Close()

			out := cmd.OutOrStdout()
			password, err := readPassword(out, "Password: ")
			if err != nil {
				return err
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()
			client, err := matrix.Login(ctx, e.matrixOptions(log), homeserver, username, password)
			if err != nil {
				return err
			}
			defer client.Close()

			// The password is only in memory now, so set up cross-signing
			// while it is available.
			if err := client.BootstrapCrossSigning(ctx); err != nil {
				fmt.Fprintln(out, WarningStyle.Render("Cross-signing setup failed: "+err.Error()))
			}
			fmt.Fprintf(out, "%s Logged in as %s (device %s)\n",
				SuccessStyle.Render("✓"), client.UserID(), client.DeviceID())
			return nil
		},
	}
	cmd.Flags().StringVar(&homeserver, "homeserver", "", "homeserver name or URL")
	cmd.Flags().StringVarP(&username, "user", "u", "", "username or full user ID")
	return cmd
}

// prompter reads answers with line editing.
type prompter struct {
	line *liner.State
}

func newPrompter() *prompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &prompter{line: line}
}

// ask prompts for label, offering def as editable text.
func (p *prompter) ask(label, def string) (string, error) {
	prompt := label + ": "
	var (
		s   string
		err error
	)
	if def != "" {
		s, err = p.line.PromptWithSuggestion(prompt, def, -1)
	} else {
		s, err = p.line.Prompt(prompt)
	}
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) Close() {
	p.line.Close()
}

// readPassword reads a line from the terminal without echo.
func readPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// =============================================================================
// LOGOUT
// =============================================================================

func newLogoutCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session and delete local keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			log, closer, err := e.logger(true, g.logLevel)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), logoutTimeout)
			defer cancel()
			out := cmd.OutOrStdout()
			err = matrix.LogoutStored(ctx, e.matrixOptions(log))
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(out, DimStyle.Render("Not logged in."))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, SuccessStyle.Render("✓")+" Logged out")
			return nil
		},
	}
}

// =============================================================================
// SESSION
// =============================================================================

func newSessionCommand(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session with the token redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			stored, err := e.store.LoadSession()
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(out, DimStyle.Render("No stored session. Run `cosmic-matrix login`."))
				return nil
			}
			if err != nil {
				return err
			}
			r := stored.Redacted()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}

			fmt.Fprintln(out, TitleStyle.Render("Stored session"))
			fmt.Fprintln(out, RenderField("User", r.UserID))
			fmt.Fprintln(out, RenderField("Device", r.DeviceID))
			fmt.Fprintln(out, RenderField("Homeserver", r.Homeserver))
			fmt.Fprintln(out, RenderField("Access token", r.AccessToken))
			fmt.Fprintln(out, RenderField("File", e.store.SessionPath()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
