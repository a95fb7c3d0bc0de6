package events

import "context"

// BroadcastScheduler is the per-broadcaster recurring invite loop, started
// when a stream goes online and stopped when it goes offline.
type BroadcastScheduler interface {
	Start(broadcasterID string)
	Stop(broadcasterID string)
}

// SendTracker records the outcome of an outbound notification attempt.
type SendTracker interface {
	Record(broadcasterID string, success bool)
}

// InviteSender delivers a single community-invite message, applying its own
// throttling and eligibility gates.
type InviteSender interface {
	Send(ctx context.Context, broadcasterID string) error
}
