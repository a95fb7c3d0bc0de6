package twitch

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/nicklaw5/helix/v2"
	"github.com/pscheid92/streamward/internal/domain"
)

// tokenRefresher keeps user access tokens valid across calls.
type tokenRefresher interface {
	EnsureValidToken(ctx context.Context, broadcasterID string) (*domain.User, error)
}

// Client wraps the Helix API client. App-token calls (stream and channel
// lookups) and user-token calls (chat, channel edits, subscriptions) share
// one underlying client, so every call serializes on the mutex while the
// right token is set.
type Client struct {
	mu        sync.Mutex
	client    *helix.Client
	refresher tokenRefresher
}

func NewClient(clientID, clientSecret string, refresher tokenRefresher) (*Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	resp, err := client.RequestAppAccessToken(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to request app access token: %w", err)
	}
	client.SetAppAccessToken(resp.Data.AccessToken)

	return &Client{client: client, refresher: refresher}, nil
}

// GetStream returns live metadata for the broadcaster, or ErrStreamNotLive
// when no stream is active.
func (c *Client) GetStream(_ context.Context, broadcasterID string) (*domain.StreamInfo, error) {
	c.mu.Lock()
	resp, err := c.client.GetStreams(&helix.StreamsParams{UserIDs: []string{broadcasterID}})
	c.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to get streams: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	if len(resp.Data.Streams) == 0 {
		return nil, domain.ErrStreamNotLive
	}

	stream := resp.Data.Streams[0]
	return &domain.StreamInfo{
		Title:        stream.Title,
		GameID:       stream.GameID,
		GameName:     stream.GameName,
		ViewerCount:  stream.ViewerCount,
		StartedAt:    stream.StartedAt,
		ThumbnailURL: stream.ThumbnailURL,
	}, nil
}

func (c *Client) GetChannelInfo(_ context.Context, broadcasterID string) (*domain.ChannelInfo, error) {
	c.mu.Lock()
	resp, err := c.client.GetChannelInformation(&helix.GetChannelInformationParams{
		BroadcasterIDs: []string{broadcasterID},
	})
	c.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to get channel information: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	if len(resp.Data.Channels) == 0 {
		return nil, domain.ErrChannelNotFound
	}

	channel := resp.Data.Channels[0]
	return &domain.ChannelInfo{
		BroadcasterName: channel.BroadcasterName,
		Title:           channel.Title,
		GameID:          channel.GameID,
		GameName:        channel.GameName,
	}, nil
}

// ApplyContentLabels replaces the channel's content classification labels.
// Requires the broadcaster's user token.
func (c *Client) ApplyContentLabels(ctx context.Context, broadcasterID string, labels []string) error {
	user, err := c.refresher.EnsureValidToken(ctx, broadcasterID)
	if err != nil {
		return err
	}

	ccls := make([]helix.ContentClassificationLabel, 0, len(labels))
	for _, label := range labels {
		ccls = append(ccls, helix.ContentClassificationLabel{ID: label, IsEnabled: true})
	}

	c.mu.Lock()
	c.client.SetUserAccessToken(user.AccessToken)
	resp, err := c.client.EditChannelInformation(&helix.EditChannelInformationParams{
		BroadcasterID:               broadcasterID,
		ContentClassificationLabels: ccls,
	})
	c.client.SetUserAccessToken("")
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to edit channel information: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	return nil
}

// SendChatMessage posts text into the broadcaster's chat as senderID, using
// the sender's user token.
func (c *Client) SendChatMessage(ctx context.Context, broadcasterID, senderID, text string) error {
	user, err := c.refresher.EnsureValidToken(ctx, senderID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.client.SetUserAccessToken(user.AccessToken)
	resp, err := c.client.SendChatMessage(&helix.SendChatMessageParams{
		BroadcasterID: broadcasterID,
		SenderID:      senderID,
		Message:       text,
	})
	c.client.SetUserAccessToken("")
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	return nil
}

// IsModerator reports whether userID moderates the broadcaster's channel.
// Requires the broadcaster's user token.
func (c *Client) IsModerator(_ context.Context, accessToken, broadcasterID, userID string) (bool, error) {
	c.mu.Lock()
	c.client.SetUserAccessToken(accessToken)
	resp, err := c.client.GetModerators(&helix.GetModeratorsParams{
		BroadcasterID: broadcasterID,
		UserIDs:       []string{userID},
	})
	c.client.SetUserAccessToken("")
	c.mu.Unlock()

	if err != nil {
		return false, fmt.Errorf("failed to get moderators: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	return len(resp.Data.Moderators) > 0, nil
}

// CreateSubscription registers one EventSub subscription on the given
// WebSocket session, using the broadcaster's user token. An already
// existing subscription (409) is treated as success.
func (c *Client) CreateSubscription(ctx context.Context, subscriptionType, broadcasterID, botUserID, sessionID string) error {
	user, err := c.refresher.EnsureValidToken(ctx, broadcasterID)
	if err != nil {
		return err
	}

	sub := subscriptionRequest(subscriptionType, broadcasterID, botUserID, sessionID)

	c.mu.Lock()
	c.client.SetUserAccessToken(user.AccessToken)
	resp, err := c.client.CreateEventSubSubscription(&sub)
	c.client.SetUserAccessToken("")
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to create eventsub subscription: %w", err)
	}
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	return nil
}

// subscriptionRequest builds the version and condition each subscription
// type requires.
func subscriptionRequest(subscriptionType, broadcasterID, botUserID, sessionID string) helix.EventSubSubscription {
	sub := helix.EventSubSubscription{
		Type:    subscriptionType,
		Version: "1",
		Condition: helix.EventSubCondition{
			BroadcasterUserID: broadcasterID,
		},
		Transport: helix.EventSubTransport{
			Method:    "websocket",
			SessionID: sessionID,
		},
	}

	switch subscriptionType {
	case "channel.follow":
		sub.Version = "2"
		sub.Condition.ModeratorUserID = broadcasterID
	case "channel.update":
		sub.Version = "2"
	case "channel.raid":
		sub.Condition.BroadcasterUserID = ""
		sub.Condition.ToBroadcasterUserID = broadcasterID
	case "channel.chat.notification":
		sub.Condition.UserID = botUserID
	}

	return sub
}
