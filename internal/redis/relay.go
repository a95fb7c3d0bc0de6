package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pscheid92/streamward/internal/domain"
	"github.com/redis/go-redis/v9"
)

const overlayChannel = "overlay:events"

const (
	envelopeStreamStarted = "stream_started"
	envelopeStreamEnded   = "stream_ended"
	envelopeAlert         = "alert"
)

// envelope is the wire format on the overlay pub/sub channel. The same
// bytes minus routing are forwarded verbatim to overlay clients.
type envelope struct {
	Type          string          `json:"type"`
	BroadcasterID string          `json:"broadcaster_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// broadcastTarget is the local fan-out the subscriber feeds.
type broadcastTarget interface {
	Broadcast(broadcasterID string, data []byte)
}

// AlertRelay implements domain.OverlaySink by publishing overlay events to
// Redis, so they reach the overlay clients of every instance.
type AlertRelay struct {
	client *redis.Client
}

func NewAlertRelay(client *redis.Client) *AlertRelay {
	return &AlertRelay{client: client}
}

func (r *AlertRelay) NotifyStreamStarted(ctx context.Context, counters *domain.Counters) error {
	payload, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("failed to encode counters: %w", err)
	}
	return r.publish(ctx, envelope{
		Type:          envelopeStreamStarted,
		BroadcasterID: counters.BroadcasterID,
		Payload:       payload,
	})
}

func (r *AlertRelay) NotifyStreamEnded(ctx context.Context, broadcasterID string) error {
	return r.publish(ctx, envelope{
		Type:          envelopeStreamEnded,
		BroadcasterID: broadcasterID,
	})
}

func (r *AlertRelay) NotifyAlert(ctx context.Context, alert domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	return r.publish(ctx, envelope{
		Type:          envelopeAlert,
		BroadcasterID: alert.BroadcasterID,
		Payload:       payload,
	})
}

func (r *AlertRelay) publish(ctx context.Context, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := r.client.Publish(ctx, overlayChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish overlay event: %w", err)
	}
	return nil
}

// Subscriber feeds relayed overlay events into the local hub.
type Subscriber struct {
	client *redis.Client
	target broadcastTarget
}

func NewSubscriber(client *redis.Client, target broadcastTarget) *Subscriber {
	return &Subscriber{client: client, target: target}
}

// Run consumes the overlay channel until the context is cancelled.
// Malformed messages are dropped with a log line.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, overlayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("overlay subscription closed")
			}
			s.deliver(msg.Payload)
		}
	}
}

func (s *Subscriber) deliver(raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		slog.Warn("Dropping malformed overlay event", "error", err)
		return
	}
	if env.BroadcasterID == "" {
		return
	}
	s.target.Broadcast(env.BroadcasterID, []byte(raw))
}
