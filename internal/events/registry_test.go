package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHandler struct {
	subType string
}

func (h *staticHandler) SubscriptionType() string { return h.subType }

func (h *staticHandler) Handle(context.Context, json.RawMessage) error { return nil }

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	online := &staticHandler{subType: "stream.online"}
	r := NewRegistry(online)

	for _, key := range []string{"stream.online", "Stream.Online", "STREAM.ONLINE"} {
		h, ok := r.Get(key)
		require.True(t, ok, "lookup %q", key)
		assert.Same(t, online, h)
	}

	_, ok := r.Get("channel.unknown")
	assert.False(t, ok)
}

func TestRegistryListsAllHandlers(t *testing.T) {
	r := NewRegistry(
		&staticHandler{subType: "stream.online"},
		&staticHandler{subType: "stream.offline"},
		&staticHandler{subType: "channel.follow"},
	)

	assert.Len(t, r.All(), 3)
	assert.ElementsMatch(t,
		[]string{"stream.online", "stream.offline", "channel.follow"},
		r.SubscriptionTypes())
}

func TestRegistryLastHandlerWinsOnDuplicateType(t *testing.T) {
	first := &staticHandler{subType: "channel.cheer"}
	second := &staticHandler{subType: "channel.cheer"}
	r := NewRegistry(first, second)

	h, ok := r.Get("channel.cheer")
	require.True(t, ok)
	assert.Same(t, second, h)
	assert.Len(t, r.All(), 1)
}
