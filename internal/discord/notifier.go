// Package discord delivers stream-online announcements to a Discord
// webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/platform/retry"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Notifier implements domain.StreamNotifier against a Discord webhook.
// Webhook calls are rate limited and wrapped in a circuit breaker, so a
// broken webhook cannot stall or hammer the event pipeline.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

func NewNotifier(webhookURL string) *Notifier {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "discord-webhook",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		// Discord allows 30 webhook requests per minute.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title     string     `json:"title"`
	URL       string     `json:"url,omitempty"`
	Color     int        `json:"color"`
	Fields    []field    `json:"fields,omitempty"`
	Image     *embedURL  `json:"image,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedURL struct {
	URL string `json:"url"`
}

const embedColorLive = 0x9146FF

// NotifyStreamOnline posts the announcement. A notifier without a
// configured webhook URL is a no-op, so the feature is opt-in.
func (n *Notifier) NotifyStreamOnline(ctx context.Context, ann domain.StreamAnnouncement) error {
	if n.webhookURL == "" {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	body, err := json.Marshal(buildPayload(ann))
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts:      3,
		InitialBackoff:   500 * time.Millisecond,
		RateLimitBackoff: 5 * time.Second,
	}
	_, err = n.breaker.Execute(func() (any, error) {
		return nil, retry.DoVoid(ctx, policy, classifyWebhookError, func() error {
			return n.post(ctx, body)
		})
	})
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

func classifyWebhookError(err error) retry.Action {
	var se *statusError
	if !errors.As(err, &se) {
		return retry.Retry // network error
	}
	switch {
	case se.code == http.StatusTooManyRequests:
		return retry.Throttled
	case se.code >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

func buildPayload(ann domain.StreamAnnouncement) webhookPayload {
	e := embed{
		Title: fmt.Sprintf("%s is live!", ann.BroadcasterName),
		URL:   fmt.Sprintf("https://twitch.tv/%s", ann.BroadcasterName),
		Color: embedColorLive,
	}
	if !ann.StartedAt.IsZero() {
		started := ann.StartedAt
		e.Timestamp = &started
	}
	if ann.Title != "" {
		e.Fields = append(e.Fields, field{Name: "Title", Value: ann.Title})
	}
	if ann.GameName != "" {
		e.Fields = append(e.Fields, field{Name: "Game", Value: ann.GameName, Inline: true})
	}
	if ann.ViewerCount > 0 {
		e.Fields = append(e.Fields, field{Name: "Viewers", Value: fmt.Sprint(ann.ViewerCount), Inline: true})
	}
	if ann.ThumbnailURL != "" {
		e.Image = &embedURL{URL: ann.ThumbnailURL}
	}
	return webhookPayload{Embeds: []embed{e}}
}
