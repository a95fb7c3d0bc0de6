package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
)

// StreamOfflineHandler clears the stream-start stamp, saves the final
// per-game tallies, broadcasts the cleared state, and stops the invite
// broadcast loop.
type StreamOfflineHandler struct {
	scopes    ScopeFactory
	scheduler BroadcastScheduler
	clock     clockwork.Clock
}

func NewStreamOfflineHandler(scopes ScopeFactory, scheduler BroadcastScheduler, clock clockwork.Clock) *StreamOfflineHandler {
	return &StreamOfflineHandler{scopes: scopes, scheduler: scheduler, clock: clock}
}

func (h *StreamOfflineHandler) SubscriptionType() string { return "stream.offline" }

func (h *StreamOfflineHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev streamOfflineEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		defer h.scheduler.Stop(ev.BroadcasterUserID)

		counters, err := sc.Counters.GetByBroadcaster(ctx, ev.BroadcasterUserID)
		if errors.Is(err, domain.ErrCountersNotFound) {
			return h.notifyEnded(ctx, sc, ev.BroadcasterUserID)
		}
		if err != nil {
			return fmt.Errorf("failed to load counters: %w", err)
		}

		counters.StreamStarted = nil
		if err := sc.Counters.Save(ctx, counters); err != nil {
			return fmt.Errorf("failed to save counters: %w", err)
		}

		if err := saveGameSnapshot(ctx, sc, counters, h.clock.Now()); err != nil {
			slog.WarnContext(ctx, "Saving final game snapshot failed",
				"broadcaster_user_id", ev.BroadcasterUserID, "game_id", counters.GameID, "error", err)
		}

		return h.notifyEnded(ctx, sc, ev.BroadcasterUserID)
	})
}

func (h *StreamOfflineHandler) notifyEnded(ctx context.Context, sc *Scope, broadcasterID string) error {
	if err := sc.Overlay.NotifyStreamEnded(ctx, broadcasterID); err != nil {
		slog.WarnContext(ctx, "Overlay stream-ended broadcast failed",
			"broadcaster_user_id", broadcasterID, "error", err)
	}
	return nil
}
