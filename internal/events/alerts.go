package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/metrics"
)

// The alert handlers share one shape: extract the relevant fields with
// sensible defaults, bump the matching tallies, and route a single
// structured alert to the overlay. Counter persistence is best-effort;
// the alert is the point.

// FollowHandler handles channel.follow.
type FollowHandler struct {
	scopes ScopeFactory
}

func NewFollowHandler(scopes ScopeFactory) *FollowHandler { return &FollowHandler{scopes: scopes} }

func (h *FollowHandler) SubscriptionType() string { return "channel.follow" }

func (h *FollowHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev followEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		bumpCounters(ctx, sc, ev.BroadcasterUserID, func(c *domain.Counters) {
			c.Follows++
		})
		return emitAlert(ctx, sc, domain.Alert{
			Kind:          domain.AlertFollow,
			BroadcasterID: ev.BroadcasterUserID,
			DisplayName:   displayName(ev.UserName, fallbackName),
		})
	})
}

// CheerHandler handles channel.cheer.
type CheerHandler struct {
	scopes ScopeFactory
}

func NewCheerHandler(scopes ScopeFactory) *CheerHandler { return &CheerHandler{scopes: scopes} }

func (h *CheerHandler) SubscriptionType() string { return "channel.cheer" }

func (h *CheerHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev cheerEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	name := ev.UserName
	if ev.IsAnonymous {
		name = anonymousName
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		bumpCounters(ctx, sc, ev.BroadcasterUserID, func(c *domain.Counters) {
			c.BitsThisStream += ev.Bits
			c.BitsTotal += ev.Bits
		})
		return emitAlert(ctx, sc, domain.Alert{
			Kind:          domain.AlertCheer,
			BroadcasterID: ev.BroadcasterUserID,
			DisplayName:   displayName(name, anonymousName),
			Bits:          ev.Bits,
			Message:       ev.Message,
		})
	})
}

// RaidHandler handles channel.raid. The alert is routed to the raid target.
type RaidHandler struct {
	scopes ScopeFactory
}

func NewRaidHandler(scopes ScopeFactory) *RaidHandler { return &RaidHandler{scopes: scopes} }

func (h *RaidHandler) SubscriptionType() string { return "channel.raid" }

func (h *RaidHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev raidEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.ToBroadcasterUserID == "" {
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		return emitAlert(ctx, sc, domain.Alert{
			Kind:          domain.AlertRaid,
			BroadcasterID: ev.ToBroadcasterUserID,
			DisplayName:   displayName(ev.FromBroadcasterUserName, fallbackName),
			Viewers:       ev.Viewers,
		})
	})
}

// SubscribeHandler handles channel.subscribe.
type SubscribeHandler struct {
	scopes ScopeFactory
}

func NewSubscribeHandler(scopes ScopeFactory) *SubscribeHandler {
	return &SubscribeHandler{scopes: scopes}
}

func (h *SubscribeHandler) SubscriptionType() string { return "channel.subscribe" }

func (h *SubscribeHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev subscribeEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		bumpCounters(ctx, sc, ev.BroadcasterUserID, func(c *domain.Counters) {
			c.Subs++
		})
		return emitAlert(ctx, sc, domain.Alert{
			Kind:          domain.AlertSub,
			BroadcasterID: ev.BroadcasterUserID,
			DisplayName:   displayName(ev.UserName, fallbackName),
			Tier:          tierLabel(ev.Tier),
		})
	})
}

// SubscriptionGiftHandler handles channel.subscription.gift.
type SubscriptionGiftHandler struct {
	scopes ScopeFactory
}

func NewSubscriptionGiftHandler(scopes ScopeFactory) *SubscriptionGiftHandler {
	return &SubscriptionGiftHandler{scopes: scopes}
}

func (h *SubscriptionGiftHandler) SubscriptionType() string { return "channel.subscription.gift" }

func (h *SubscriptionGiftHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev subscriptionGiftEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	name := ev.UserName
	if ev.IsAnonymous {
		name = anonymousName
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		bumpCounters(ctx, sc, ev.BroadcasterUserID, func(c *domain.Counters) {
			c.GiftedSubs += ev.Total
			c.Subs += ev.Total
		})
		return emitAlert(ctx, sc, domain.Alert{
			Kind:          domain.AlertSubGift,
			BroadcasterID: ev.BroadcasterUserID,
			DisplayName:   displayName(name, anonymousName),
			Tier:          tierLabel(ev.Tier),
			GiftCount:     ev.Total,
		})
	})
}

// bumpCounters applies a tally mutation and persists it. Failures are
// logged and swallowed; a lost tally must not block the alert.
func bumpCounters(ctx context.Context, sc *Scope, broadcasterID string, mutate func(*domain.Counters)) {
	counters, err := loadOrCreateCounters(ctx, sc, broadcasterID)
	if err != nil {
		slog.WarnContext(ctx, "Counter lookup failed, skipping tally update",
			"broadcaster_user_id", broadcasterID, "error", err)
		return
	}
	mutate(counters)
	if err := sc.Counters.Save(ctx, counters); err != nil {
		slog.WarnContext(ctx, "Counter save failed",
			"broadcaster_user_id", broadcasterID, "error", err)
	}
}

func emitAlert(ctx context.Context, sc *Scope, alert domain.Alert) error {
	if err := sc.Overlay.NotifyAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to broadcast %s alert: %w", alert.Kind, err)
	}
	metrics.OverlayAlertsTotal.WithLabelValues(string(alert.Kind)).Inc()
	return nil
}
