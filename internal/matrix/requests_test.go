// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/attachment"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/jeranaias/cosmic-matrix/internal/model"
)

// apiServer serves mux as a homeserver for a single test.
func apiServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func messageIDs(items []model.TimelineItem) []string {
	var ids []string
	for _, it := range items {
		if it.Kind == model.ItemMessage {
			ids = append(ids, it.Message.EventID)
		}
	}
	return ids
}

// =============================================================================
// HISTORY
// =============================================================================

const historyPage = `{
  "start": "t1",
  "end": "t2",
  "chunk": [
    {"type": "m.room.message", "event_id": "$edit", "sender": "@alice:test", "origin_server_ts": 1700000003000,
     "content": {"msgtype": "m.text", "body": "* fixed",
                 "m.new_content": {"msgtype": "m.text", "body": "fixed"},
                 "m.relates_to": {"rel_type": "m.replace", "event_id": "$1"}}},
    {"type": "m.room.message", "event_id": "$2", "sender": "@bob:test", "origin_server_ts": 1700000002000,
     "content": {"msgtype": "m.text", "body": "second"}},
    {"type": "m.room.message", "event_id": "$1", "sender": "@alice:test", "origin_server_ts": 1700000001000,
     "content": {"msgtype": "m.text", "body": "frist"}}
  ]
}`

func TestLoadHistory_OldestFirstWithEdits(t *testing.T) {
	var mu sync.Mutex
	var froms, dirs []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_matrix/client/v3/rooms/{room}/messages", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		froms = append(froms, q.Get("from"))
		dirs = append(dirs, q.Get("dir"))
		mu.Unlock()
		if q.Get("from") == "t2" {
			writeJSON(w, `{"start": "t2", "chunk": []}`)
			return
		}
		writeJSON(w, historyPage)
	})
	c := newTestClient(t, apiServer(t, mux).URL)

	items, token, err := c.LoadHistory(context.Background(), "!r:test", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t2", token)
	assert.Equal(t, []string{"$1", "$2"}, messageIDs(items))

	first := items[model.FindMessage(items, "$1")].Message
	assert.Equal(t, "fixed", first.Body)
	assert.True(t, first.Edited)

	items, token, err = c.LoadHistory(context.Background(), "!r:test", "t2")
	require.NoError(t, err)
	assert.Empty(t, token, "an empty page is the start of the room")
	assert.Empty(t, messageIDs(items))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"t1", "t2"}, froms)
	assert.Equal(t, []string{"b", "b"}, dirs)
}

// =============================================================================
// SENDING
// =============================================================================

func TestSendText_ReplyWithUUIDTransaction(t *testing.T) {
	type sent struct {
		eventType string
		txnID     string
		content   map[string]any
	}
	got := make(chan sent, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /_matrix/client/v3/rooms/{room}/send/{type}/{txn}", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var content map[string]any
		_ = json.Unmarshal(raw, &content)
		got <- sent{eventType: r.PathValue("type"), txnID: r.PathValue("txn"), content: content}
		writeJSON(w, `{"event_id": "$sent"}`)
	})
	c := newTestClient(t, apiServer(t, mux).URL)

	require.NoError(t, c.SendText(context.Background(), "!r:test", "hi there", "$orig"))
	req := <-got

	assert.Equal(t, "m.room.message", req.eventType)
	_, err := uuid.Parse(req.txnID)
	assert.NoError(t, err, "transaction id %q", req.txnID)
	assert.Equal(t, "m.text", req.content["msgtype"])
	assert.Equal(t, "hi there", req.content["body"])

	relates, ok := req.content["m.relates_to"].(map[string]any)
	require.True(t, ok, "m.relates_to present")
	reply, ok := relates["m.in_reply_to"].(map[string]any)
	require.True(t, ok, "m.in_reply_to present")
	assert.Equal(t, "$orig", reply["event_id"])

	require.NoError(t, c.SendText(context.Background(), "!r:test", "/me waves", ""))
	req = <-got
	assert.Equal(t, "m.emote", req.content["msgtype"])
	assert.Equal(t, "waves", req.content["body"])
	assert.NotContains(t, req.content, "m.relates_to")
}

// =============================================================================
// MEDIA
// =============================================================================

// receivedFile returns file as a client would see it in an event.
func receivedFile(t *testing.T, file *attachment.EncryptedFile, uri string) *event.EncryptedFileInfo {
	t.Helper()
	raw, err := json.Marshal(file)
	require.NoError(t, err)
	info := &event.EncryptedFileInfo{URL: id.ContentURIString(uri)}
	require.NoError(t, json.Unmarshal(raw, &info.EncryptedFile))
	return info
}

func mediaServer(t *testing.T, payload []byte, hits *atomic.Int32) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_matrix/client/v1/media/download/{server}/{file}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("server") != "test" || r.PathValue("file") != "secret" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	})
	c := newTestClient(t, apiServer(t, mux).URL)
	media, err := newMediaFetcher(c.cli, c.opts, c.log)
	require.NoError(t, err)
	c.media = media
	t.Cleanup(func() { _ = media.close() })
	return c
}

func TestFetchMedia_DecryptsEncryptedSource(t *testing.T) {
	plaintext := []byte("not really a png")
	file := attachment.NewEncryptedFile()
	ciphertext := append([]byte(nil), plaintext...)
	file.EncryptInPlace(ciphertext)

	var hits atomic.Int32
	c := mediaServer(t, ciphertext, &hits)

	src := model.MediaSource{
		URI:      "mxc://test/secret",
		MimeType: "image/png",
		File:     receivedFile(t, file, "mxc://test/secret"),
	}
	data, err := c.FetchMedia(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, plaintext, data)

	again, err := c.FetchMedia(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, plaintext, again, "cached ciphertext decrypts the same")
	assert.Equal(t, int32(1), hits.Load())

	raw, err := c.FetchMedia(context.Background(), model.MediaSource{URI: "mxc://test/secret"})
	require.NoError(t, err)
	assert.Equal(t, ciphertext, raw, "plain sources are returned as stored")
}

func TestFetchMedia_TamperedCiphertextFails(t *testing.T) {
	file := attachment.NewEncryptedFile()
	ciphertext := []byte("payload")
	file.EncryptInPlace(ciphertext)
	ciphertext[0] ^= 0xff

	var hits atomic.Int32
	c := mediaServer(t, ciphertext, &hits)

	_, err := c.FetchMedia(context.Background(), model.MediaSource{
		URI:  "mxc://test/secret",
		File: receivedFile(t, file, "mxc://test/secret"),
	})
	assert.ErrorIs(t, err, attachment.HashMismatch)
}

// =============================================================================
// ROOM TAGS
// =============================================================================

func TestSetFavourite_TagsRoom(t *testing.T) {
	type call struct {
		method string
		user   string
		room   string
		tag    string
	}
	var mu sync.Mutex
	var calls []call
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/v3/user/{user}/rooms/{room}/tags/{tag}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{r.Method, r.PathValue("user"), r.PathValue("room"), r.PathValue("tag")})
		mu.Unlock()
		writeJSON(w, `{}`)
	})
	c := newTestClient(t, apiServer(t, mux).URL)
	c.rooms.applyJoined("!r:test", &mautrix.SyncJoinedRoom{})

	favourite := func() bool {
		for _, e := range c.rooms.entries() {
			if e.RoomID == "!r:test" {
				return e.IsFavourite
			}
		}
		t.Fatal("room missing from cache")
		return false
	}

	require.NoError(t, c.SetFavourite(context.Background(), "!r:test", true))
	assert.True(t, favourite())
	require.NoError(t, c.SetFavourite(context.Background(), "!r:test", false))
	assert.False(t, favourite())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []call{
		{http.MethodPut, "@me:test", "!r:test", "m.favourite"},
		{http.MethodDelete, "@me:test", "!r:test", "m.favourite"},
	}, calls)
}

func TestSetFavourite_ServerErrorKeepsCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/v3/user/{user}/rooms/{room}/tags/{tag}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errcode": "M_FORBIDDEN", "error": "no"}`))
	})
	c := newTestClient(t, apiServer(t, mux).URL)
	c.rooms.applyJoined("!r:test", &mautrix.SyncJoinedRoom{})

	err := c.SetFavourite(context.Background(), "!r:test", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, mautrix.MForbidden)
	assert.False(t, c.rooms.entries()[0].IsFavourite)
}
