// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/model"
	"github.com/jeranaias/cosmic-matrix/internal/storage"
)

// mediaFetcher downloads media with bounded concurrency, collapses
// concurrent requests for the same URI and keeps results in the disk
// cache. Cached bytes are exactly what the server sent, so encrypted
// media stays encrypted at rest.
type mediaFetcher struct {
	cli   *mautrix.Client
	cache *storage.MediaCache
	sem   *semaphore.Weighted
	group singleflight.Group
	log   zerolog.Logger
}

func newMediaFetcher(cli *mautrix.Client, opts Options, log zerolog.Logger) (*mediaFetcher, error) {
	media := opts.Config.Media
	workers := int64(media.MaxConcurrentDownloads)
	if workers < 1 {
		workers = 1
	}
	f := &mediaFetcher{
		cli: cli,
		sem: semaphore.NewWeighted(workers),
		log: log,
	}

	cache, err := storage.OpenMediaCache(opts.mediaPath(), int64(media.CacheMaxMB)<<20)
	if err != nil {
		// Media still works, just without the cache.
		log.Warn().Err(err).Msg("media cache unavailable")
	} else {
		f.cache = cache
	}
	return f, nil
}

func (f *mediaFetcher) close() error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Close()
}

func (f *mediaFetcher) download(ctx context.Context, uri string) ([]byte, error) {
	parsed, err := id.ParseContentURI(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid media URI %q: %w", uri, err)
	}

	v, err, _ := f.group.Do(uri, func() (any, error) {
		if f.cache != nil {
			data, err := f.cache.Get(ctx, uri)
			if err == nil {
				return data, nil
			}
			if !errors.Is(err, storage.ErrNotCached) {
				f.log.Debug().Err(err).Msg("media cache read failed")
			}
		}

		if err := f.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer f.sem.Release(1)

		data, err := f.cli.DownloadBytes(ctx, parsed)
		if err != nil {
			return nil, fmt.Errorf("media fetch failed: %w", err)
		}
		if f.cache != nil {
			if err := f.cache.Put(ctx, uri, data); err != nil {
				f.log.Debug().Err(err).Msg("media cache write failed")
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// FetchMedia downloads src, decrypting it when it came from an encrypted
// room. The returned slice is owned by the caller.
func (c *Client) FetchMedia(ctx context.Context, src model.MediaSource) ([]byte, error) {
	if src.URI == "" {
		return nil, errors.New("media has no URI")
	}
	data, err := c.media.download(ctx, src.URI)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), data...)
	if src.File == nil {
		return out, nil
	}
	file := src.File.EncryptedFile
	if err := file.DecryptInPlace(out); err != nil {
		return nil, fmt.Errorf("decrypt media: %w", err)
	}
	return out, nil
}

// FetchAvatar downloads an avatar by mxc URI.
func (c *Client) FetchAvatar(ctx context.Context, mxc string) ([]byte, error) {
	data, err := c.media.download(ctx, mxc)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// detectMIME prefers the file extension and falls back to sniffing.
func detectMIME(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
		return t
	}
	t := http.DetectContentType(data)
	if base, _, err := mime.ParseMediaType(t); err == nil {
		return base
	}
	return t
}
