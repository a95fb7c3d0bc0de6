package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/metrics"
)

// StreamOnlineHandler reacts to a stream going live: it resets the
// session-scoped tallies, restores per-game counters, announces the stream
// to the overlay and the external notifier, starts the invite broadcast
// loop, and applies content classification labels for the detected game.
type StreamOnlineHandler struct {
	scopes    ScopeFactory
	scheduler BroadcastScheduler
	tracker   SendTracker
	clock     clockwork.Clock
}

func NewStreamOnlineHandler(scopes ScopeFactory, scheduler BroadcastScheduler, tracker SendTracker, clock clockwork.Clock) *StreamOnlineHandler {
	return &StreamOnlineHandler{scopes: scopes, scheduler: scheduler, tracker: tracker, clock: clock}
}

func (h *StreamOnlineHandler) SubscriptionType() string { return "stream.online" }

func (h *StreamOnlineHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev streamOnlineEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil // malformed events are expected occasionally, not actionable
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		counters, err := loadOrCreateCounters(ctx, sc, ev.BroadcasterUserID)
		if err != nil {
			return fmt.Errorf("failed to load counters: %w", err)
		}

		// Restore the per-game tallies for the currently detected category.
		info, infoErr := sc.Streams.GetChannelInfo(ctx, ev.BroadcasterUserID)
		if infoErr != nil {
			slog.WarnContext(ctx, "Channel info lookup failed, keeping current game",
				"broadcaster_user_id", ev.BroadcasterUserID, "error", infoErr)
		} else if info.GameID != "" && info.GameID != counters.GameID {
			restoreGameCounters(ctx, sc, counters, info.GameID, info.GameName)
		}

		started := h.parseStartedAt(ev.StartedAt)
		counters.BitsThisStream = 0
		counters.StreamStarted = &started

		if err := sc.Counters.Save(ctx, counters); err != nil {
			return fmt.Errorf("failed to save counters: %w", err)
		}

		if err := sc.Overlay.NotifyStreamStarted(ctx, counters); err != nil {
			slog.WarnContext(ctx, "Overlay stream-started broadcast failed",
				"broadcaster_user_id", ev.BroadcasterUserID, "error", err)
		}

		h.scheduler.Start(ev.BroadcasterUserID)

		h.sendNotification(ctx, sc, ev, info, started)
		h.applyContentLabels(ctx, sc, counters)

		return nil
	})
}

// sendNotification enriches and delivers the outbound stream-online
// notification. Enrichment failure never prevents the send; a failed
// idempotency claim suppresses it entirely.
func (h *StreamOnlineHandler) sendNotification(ctx context.Context, sc *Scope, ev streamOnlineEvent, info *domain.ChannelInfo, started time.Time) {
	ann := domain.StreamAnnouncement{
		BroadcasterID:   ev.BroadcasterUserID,
		BroadcasterName: displayName(ev.BroadcasterUserName, ev.BroadcasterUserID),
		StartedAt:       started,
	}

	stream, err := sc.Streams.GetStream(ctx, ev.BroadcasterUserID)
	switch {
	case err == nil:
		ann.Title = stream.Title
		ann.GameName = stream.GameName
		ann.ViewerCount = stream.ViewerCount
		ann.ThumbnailURL = stream.ThumbnailURL
	case info != nil:
		// Fall back to static channel info; proceed with minimal data if
		// that lookup failed too.
		ann.Title = info.Title
		ann.GameName = info.GameName
		if info.BroadcasterName != "" {
			ann.BroadcasterName = info.BroadcasterName
		}
	default:
		// Both lookups failed; proceed with minimal data.
		if !errors.Is(err, domain.ErrStreamNotLive) {
			slog.WarnContext(ctx, "Stream enrichment failed, sending minimal notification",
				"broadcaster_user_id", ev.BroadcasterUserID, "error", err)
		}
	}

	claimKey := started.UTC().Format(time.RFC3339)
	claimed, err := sc.Claims.Claim(ctx, ev.BroadcasterUserID, claimKey)
	if err != nil {
		// Without a confirmed claim the at-most-once guarantee would be
		// lost, so the notification is skipped rather than risked twice.
		slog.ErrorContext(ctx, "Idempotency claim failed, skipping notification",
			"broadcaster_user_id", ev.BroadcasterUserID, "claim_key", claimKey, "error", err)
		return
	}
	if !claimed {
		metrics.DuplicateEventsTotal.Inc()
		slog.InfoContext(ctx, "Duplicate stream-online delivery suppressed",
			"broadcaster_user_id", ev.BroadcasterUserID, "claim_key", claimKey)
		return
	}

	sendErr := sc.Notifier.NotifyStreamOnline(ctx, ann)
	if sendErr != nil {
		slog.WarnContext(ctx, "Stream-online notification failed",
			"broadcaster_user_id", ev.BroadcasterUserID, "error", sendErr)
		metrics.NotificationsSentTotal.WithLabelValues("failure").Inc()
	} else {
		metrics.NotificationsSentTotal.WithLabelValues("success").Inc()
	}
	h.tracker.Record(ev.BroadcasterUserID, sendErr == nil)
}

// applyContentLabels applies the detected game's classification labels,
// preferring the library entry, then the broadcaster's configured fallback
// labels. Unseen games are upserted into the library. Best-effort only.
func (h *StreamOnlineHandler) applyContentLabels(ctx context.Context, sc *Scope, counters *domain.Counters) {
	if counters.GameID == "" {
		return
	}

	var labels []string
	entry, err := sc.Games.Get(ctx, counters.BroadcasterID, counters.GameID)
	switch {
	case err == nil:
		labels = entry.Labels
	case errors.Is(err, domain.ErrGameNotFound):
		user, userErr := sc.Users.GetByID(ctx, counters.BroadcasterID)
		if userErr == nil {
			labels = user.FallbackLabels
		}
		upsertErr := sc.Games.Upsert(ctx, &domain.GameEntry{
			BroadcasterID: counters.BroadcasterID,
			GameID:        counters.GameID,
			GameName:      counters.GameName,
			Labels:        labels,
			UpdatedAt:     h.clock.Now(),
		})
		if upsertErr != nil {
			slog.WarnContext(ctx, "Game library upsert failed",
				"broadcaster_user_id", counters.BroadcasterID, "game_id", counters.GameID, "error", upsertErr)
		}
	default:
		slog.WarnContext(ctx, "Game library lookup failed",
			"broadcaster_user_id", counters.BroadcasterID, "game_id", counters.GameID, "error", err)
		return
	}

	if len(labels) == 0 {
		return
	}
	if err := sc.Streams.ApplyContentLabels(ctx, counters.BroadcasterID, labels); err != nil {
		slog.WarnContext(ctx, "Applying content classification labels failed",
			"broadcaster_user_id", counters.BroadcasterID, "error", err)
	}
}

func (h *StreamOnlineHandler) parseStartedAt(raw string) time.Time {
	if started, err := time.Parse(time.RFC3339, raw); err == nil {
		return started
	}
	return h.clock.Now()
}
