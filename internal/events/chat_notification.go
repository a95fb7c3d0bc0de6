package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pscheid92/streamward/internal/domain"
)

// ChatNotificationHandler handles channel.chat.notification, the combined
// chat-event stream. The notice_type field selects the alert shape; new
// notice types the service does not know yet are ignored. Independently of
// the branch taken, a message carrying the community invite prompt
// triggers a throttled invite send.
type ChatNotificationHandler struct {
	scopes ScopeFactory
	sender InviteSender
}

func NewChatNotificationHandler(scopes ScopeFactory, sender InviteSender) *ChatNotificationHandler {
	return &ChatNotificationHandler{scopes: scopes, sender: sender}
}

func (h *ChatNotificationHandler) SubscriptionType() string { return "channel.chat.notification" }

func (h *ChatNotificationHandler) Handle(ctx context.Context, event json.RawMessage) error {
	var ev chatNotificationEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil
	}
	if ev.BroadcasterUserID == "" {
		return nil
	}

	if containsInvitePrompt(ev.Message.Text) {
		if err := h.sender.Send(ctx, ev.BroadcasterUserID); err != nil {
			slog.WarnContext(ctx, "Invite send failed",
				"broadcaster_user_id", ev.BroadcasterUserID, "error", err)
		}
	}

	alert, ok := h.buildAlert(ev)
	if !ok {
		slog.DebugContext(ctx, "Ignoring unhandled chat notice",
			"broadcaster_user_id", ev.BroadcasterUserID, "notice_type", ev.NoticeType)
		return nil
	}

	return runScoped(ctx, h.scopes, func(ctx context.Context, sc *Scope) error {
		return emitAlert(ctx, sc, alert)
	})
}

func (h *ChatNotificationHandler) buildAlert(ev chatNotificationEvent) (domain.Alert, bool) {
	name := ev.ChatterUserName
	if ev.ChatterIsAnon {
		name = anonymousName
	}

	alert := domain.Alert{
		BroadcasterID: ev.BroadcasterUserID,
		DisplayName:   displayName(name, fallbackName),
	}

	switch ev.NoticeType {
	case "sub":
		if ev.Sub == nil {
			return domain.Alert{}, false
		}
		alert.Kind = domain.AlertSub
		alert.Tier = tierLabel(ev.Sub.SubTier)
		alert.Months = ev.Sub.DurationMonths
	case "resub":
		if ev.Resub == nil {
			return domain.Alert{}, false
		}
		alert.Kind = domain.AlertResub
		alert.Tier = tierLabel(ev.Resub.SubTier)
		alert.Months = ev.Resub.CumulativeMonths
		alert.Message = ev.Message.Text
	case "sub_gift":
		if ev.SubGift == nil {
			return domain.Alert{}, false
		}
		alert.Kind = domain.AlertSubGift
		alert.Tier = tierLabel(ev.SubGift.SubTier)
		alert.GiftCount = 1
		alert.Message = ev.SubGift.RecipientName
	case "community_sub_gift":
		if ev.CommunitySubGift == nil {
			return domain.Alert{}, false
		}
		alert.Kind = domain.AlertCommunityGift
		alert.Tier = tierLabel(ev.CommunitySubGift.SubTier)
		alert.GiftCount = ev.CommunitySubGift.Total
	case "raid":
		if ev.Raid == nil {
			return domain.Alert{}, false
		}
		alert.Kind = domain.AlertRaid
		alert.DisplayName = displayName(ev.Raid.UserName, fallbackName)
		alert.Viewers = ev.Raid.ViewerCount
	case "announcement":
		alert.Kind = domain.AlertAnnouncement
		alert.Message = ev.Message.Text
	default:
		return domain.Alert{}, false
	}

	return alert, true
}
