package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// ChannelUpdateHandler handles channel.update. A category change mid-stream
// snapshots the tallies of the outgoing game and restores (or initializes)
// the tallies of the incoming one, then broadcasts the refreshed state.
type ChannelUpdateHandler struct {
	scopes ScopeFactory
	clock  clockwork.Clock
}

func NewChannelUpdateHandler(scopes ScopeFactory, clock clockwork.Clock) *ChannelUpdateHandler {
	return &ChannelUpdateHandler{scopes: scopes, clock: clock}
}

func (h *ChannelUpdateHandler) SubscriptionType() string { return "channel.update" }

func (h *ChannelUpdateHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev channelUpdateEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	// Title-only updates carry no category; nothing to do.
	if ev.BroadcasterUserID == "" || ev.CategoryID == "" {
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		counters, err := loadOrCreateCounters(ctx, sc, ev.BroadcasterUserID)
		if err != nil {
			return fmt.Errorf("failed to load counters: %w", err)
		}
		if counters.GameID == ev.CategoryID {
			return nil
		}

		if err := saveGameSnapshot(ctx, sc, counters, h.clock.Now()); err != nil {
			slog.WarnContext(ctx, "Saving game snapshot failed",
				"broadcaster_user_id", ev.BroadcasterUserID, "game_id", counters.GameID, "error", err)
		}
		restoreGameCounters(ctx, sc, counters, ev.CategoryID, ev.CategoryName)

		if err := sc.Counters.Save(ctx, counters); err != nil {
			return fmt.Errorf("failed to save counters: %w", err)
		}

		if err := sc.Overlay.NotifyStreamStarted(ctx, counters); err != nil {
			slog.WarnContext(ctx, "Overlay state broadcast failed",
				"broadcaster_user_id", ev.BroadcasterUserID, "error", err)
		}
		return nil
	})
}
