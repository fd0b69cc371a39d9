// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/cosmic-matrix/internal/config"
	"github.com/jeranaias/cosmic-matrix/internal/model"
)

func TestAccumulator_GroupsByRoomInOrder(t *testing.T) {
	var a accumulator
	assert.False(t, a.add("!r", "$0", model.StateItem("x")), "inactive outside a batch")

	a.begin()
	assert.True(t, a.add("!b", "$1", model.MessageItem(&model.Message{EventID: "$1"})))
	assert.True(t, a.add("!a", "$2", model.MessageItem(&model.Message{EventID: "$2"})))
	assert.True(t, a.add("!b", "", model.StateItem("joined")))
	assert.True(t, a.addEdit("!c", &model.Message{EventID: "$1"}))
	assert.True(t, a.seen("$2"))
	assert.False(t, a.seen("$9"))

	b := a.end()
	assert.Equal(t, []string{"!b", "!a", "!c"}, b.order)
	assert.Len(t, b.items["!b"], 2)
	assert.Len(t, b.edits["!c"], 1)

	assert.False(t, a.seen("$2"), "seen is reset after the batch")
	assert.False(t, a.addEdit("!c", &model.Message{}))
}

func TestPendingSet(t *testing.T) {
	p := newPendingSet()
	p.add("$1")
	assert.True(t, p.take("$1"))
	assert.False(t, p.take("$1"), "taken once")
	assert.False(t, p.take("$2"))
}

func TestSyncFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Timeline.PageSize = 12
	f := syncFilter(cfg)
	assert.True(t, f.Room.State.LazyLoadMembers)
	assert.Equal(t, 12, f.Room.Timeline.Limit)

	assert.Equal(t, 30, syncFilter(nil).Room.Timeline.Limit)
}

func TestNormalizeHomeserver(t *testing.T) {
	tests := map[string]string{
		"":                        "https://matrix.org",
		"matrix.org":              "https://matrix.org",
		"  example.com/ ":         "https://example.com",
		"http://localhost:8008":   "http://localhost:8008",
		"https://matrix.example/": "https://matrix.example",
		"example.com:8448":        "https://example.com:8448",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHomeserver(in), "input %q", in)
	}
}

func TestServerName(t *testing.T) {
	assert.Equal(t, "matrix.org", serverName(""))
	assert.Equal(t, "example.com", serverName("example.com"))
	assert.Equal(t, "example.com:8448", serverName("example.com:8448"))
	assert.Empty(t, serverName("https://example.com"), "explicit URLs skip discovery")
	assert.Empty(t, serverName("example.com/path"))
}
