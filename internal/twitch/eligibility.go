package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/streamward/internal/domain"
)

// moderatorLookup answers whether a user moderates a channel.
type moderatorLookup interface {
	IsModerator(ctx context.Context, accessToken, broadcasterID, userID string) (bool, error)
}

// Checker resolves a broadcaster's delivery channel. A broadcaster whose
// token cannot be refreshed cannot be messaged at all; one where the bot
// lacks moderator status falls back to delivery as the broadcaster's own
// identity.
type Checker struct {
	refresher  tokenRefresher
	moderators moderatorLookup
	botUserID  string
}

func NewChecker(refresher tokenRefresher, moderators moderatorLookup, botUserID string) *Checker {
	return &Checker{refresher: refresher, moderators: moderators, botUserID: botUserID}
}

func (c *Checker) Check(ctx context.Context, _ *domain.User, broadcasterID string) (domain.BotEligibility, error) {
	user, err := c.refresher.EnsureValidToken(ctx, broadcasterID)
	if err != nil {
		var refreshErr *TokenRefreshError
		if errors.As(err, &refreshErr) {
			slog.Warn("Broadcaster token unusable, cannot deliver",
				"broadcaster_user_id", broadcasterID, "revoked", refreshErr.Revoked)
			return domain.BotEligibility{CanDeliver: false}, nil
		}
		return domain.BotEligibility{}, fmt.Errorf("failed to ensure valid token: %w", err)
	}

	isMod, err := c.moderators.IsModerator(ctx, user.AccessToken, broadcasterID, c.botUserID)
	if err != nil {
		// Moderator lookup failing is not fatal; fall back to the
		// broadcaster's own identity.
		slog.Warn("Moderator lookup failed, falling back to broadcaster identity",
			"broadcaster_user_id", broadcasterID, "error", err)
		return domain.BotEligibility{CanDeliver: true, UseBotChannel: false}, nil
	}

	return domain.BotEligibility{
		CanDeliver:    true,
		UseBotChannel: isMod,
		BotUserID:     c.botUserID,
	}, nil
}
