// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
)

// DefaultHomeserver is used when the login form is left empty.
const DefaultHomeserver = "matrix.org"

// NormalizeHomeserver turns user input into a base URL. A missing scheme
// becomes https and trailing slashes are dropped.
func NormalizeHomeserver(input string) string {
	hs := strings.TrimSpace(input)
	if hs == "" {
		hs = DefaultHomeserver
	}
	if !strings.Contains(hs, "://") {
		hs = "https://" + hs
	}
	return strings.TrimRight(hs, "/")
}

// serverName extracts the host part used for .well-known lookups. It is
// empty when input already names a scheme, since the user chose an
// explicit URL.
func serverName(input string) string {
	hs := strings.TrimSpace(input)
	if hs == "" {
		return DefaultHomeserver
	}
	if strings.Contains(hs, "://") {
		return ""
	}
	u, err := url.Parse("https://" + strings.TrimRight(hs, "/"))
	if err != nil || u.Host == "" || u.Path != "" {
		return ""
	}
	return u.Host
}

// ResolveHomeserver normalises input and, for bare server names, follows
// the client .well-known delegation. Discovery failures fall back to the
// normalised input.
func ResolveHomeserver(ctx context.Context, input string, log zerolog.Logger) string {
	fallback := NormalizeHomeserver(input)
	name := serverName(input)
	if name == "" {
		return fallback
	}

	wk, err := mautrix.DiscoverClientAPI(ctx, name)
	if err != nil {
		log.Debug().Err(err).Str("server_name", name).Msg("well-known discovery failed")
		return fallback
	}
	if wk == nil || wk.Homeserver.BaseURL == "" {
		return fallback
	}
	return NormalizeHomeserver(wk.Homeserver.BaseURL)
}
