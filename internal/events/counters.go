package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pscheid92/streamward/internal/domain"
)

// saveGameSnapshot persists the cumulative tallies for the counters'
// current game, so they survive a switch to another category.
func saveGameSnapshot(ctx context.Context, sc *Scope, c *domain.Counters, now time.Time) error {
	if c.GameID == "" {
		return nil
	}
	return sc.Counters.SaveGameSnapshot(ctx, &domain.GameSnapshot{
		BroadcasterID: c.BroadcasterID,
		GameID:        c.GameID,
		GameName:      c.GameName,
		Follows:       c.Follows,
		Subs:          c.Subs,
		GiftedSubs:    c.GiftedSubs,
		BitsTotal:     c.BitsTotal,
		SavedAt:       now,
	})
}

// restoreGameCounters switches the counters to a new active game. If a
// snapshot for that game exists its tallies are adopted, so each game
// keeps independent counts; otherwise the current tallies carry over.
func restoreGameCounters(ctx context.Context, sc *Scope, c *domain.Counters, gameID, gameName string) {
	snap, err := sc.Counters.GetGameSnapshot(ctx, c.BroadcasterID, gameID)
	switch {
	case err == nil:
		c.Follows = snap.Follows
		c.Subs = snap.Subs
		c.GiftedSubs = snap.GiftedSubs
		c.BitsTotal = snap.BitsTotal
	case !errors.Is(err, domain.ErrSnapshotNotFound):
		slog.WarnContext(ctx, "Game snapshot lookup failed, keeping current tallies",
			"broadcaster_user_id", c.BroadcasterID, "game_id", gameID, "error", err)
	}
	c.GameID = gameID
	c.GameName = gameName
}

// loadOrCreateCounters fetches the broadcaster's counters, creating a
// fresh zeroed record when none exist yet.
func loadOrCreateCounters(ctx context.Context, sc *Scope, broadcasterID string) (*domain.Counters, error) {
	counters, err := sc.Counters.GetByBroadcaster(ctx, broadcasterID)
	if errors.Is(err, domain.ErrCountersNotFound) {
		return &domain.Counters{BroadcasterID: broadcasterID}, nil
	}
	if err != nil {
		return nil, err
	}
	return counters, nil
}
