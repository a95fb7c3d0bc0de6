package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// subscriptionCreator is the subset of Client used during provisioning.
type subscriptionCreator interface {
	CreateSubscription(ctx context.Context, subscriptionType, broadcasterID, botUserID, sessionID string) error
}

// Provisioner registers the full subscription matrix (every monitored
// broadcaster crossed with every handled subscription type) on a fresh
// session. Creation is idempotent upstream, so re-provisioning after a
// reconnect is safe.
type Provisioner struct {
	client       subscriptionCreator
	broadcasters []string
	types        []string
	botUserID    string
}

func NewProvisioner(client subscriptionCreator, broadcasters, subscriptionTypes []string, botUserID string) *Provisioner {
	return &Provisioner{
		client:       client,
		broadcasters: broadcasters,
		types:        subscriptionTypes,
		botUserID:    botUserID,
	}
}

// Provision creates every subscription on the session. Failures are
// collected rather than aborting, so one broken broadcaster does not
// leave the rest unsubscribed.
func (p *Provisioner) Provision(ctx context.Context, sessionID string) error {
	var errs []error
	for _, broadcasterID := range p.broadcasters {
		for _, subscriptionType := range p.types {
			err := p.client.CreateSubscription(ctx, subscriptionType, broadcasterID, p.botUserID, sessionID)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s for %s: %w", subscriptionType, broadcasterID, err))
				continue
			}
			slog.Debug("Subscription provisioned",
				"broadcaster_user_id", broadcasterID, "subscription_type", subscriptionType)
		}
	}
	return errors.Join(errs...)
}
