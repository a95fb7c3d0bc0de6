package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Sender delivers the community-invite message into a broadcaster's chat.
// Every call passes a series of hard gates: the throttle window, user
// resolution, and delivery-channel eligibility. Only an actual delivery
// attempt is recorded in the tracker; throttled, unknown-user, and
// ineligible calls leave no trace.
type Sender struct {
	tracker     *Tracker
	monitoring  *MonitoringRegistry
	users       domain.UserRepository
	eligibility domain.EligibilityChecker
	chat        domain.ChatSender
	clock       clockwork.Clock

	throttleWindow time.Duration
	fallbackLink   string

	group singleflight.Group
}

func NewSender(
	tracker *Tracker,
	monitoring *MonitoringRegistry,
	users domain.UserRepository,
	eligibility domain.EligibilityChecker,
	chat domain.ChatSender,
	clock clockwork.Clock,
	throttleWindow time.Duration,
	fallbackLink string,
) *Sender {
	return &Sender{
		tracker:        tracker,
		monitoring:     monitoring,
		users:          users,
		eligibility:    eligibility,
		chat:           chat,
		clock:          clock,
		throttleWindow: throttleWindow,
		fallbackLink:   fallbackLink,
	}
}

// Send delivers one invite message to the broadcaster's chat. It returns
// nil when a gate suppresses the send; only delivery failures surface as
// errors.
func (s *Sender) Send(ctx context.Context, broadcasterID string) error {
	if broadcasterID == "" {
		return nil
	}

	if rec, ok := s.tracker.Last(broadcasterID); ok && s.clock.Since(rec.At) < s.throttleWindow {
		metrics.InviteSendsTotal.WithLabelValues("throttled").Inc()
		slog.DebugContext(ctx, "Invite suppressed by throttle window",
			"broadcaster_user_id", broadcasterID, "last_attempt", rec.At)
		return nil
	}

	user, err := s.users.GetByID(ctx, broadcasterID)
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.InviteSendsTotal.WithLabelValues("unknown_user").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	state, ok, err := s.resolveChannel(ctx, user, broadcasterID)
	if err != nil {
		return fmt.Errorf("failed to check delivery eligibility: %w", err)
	}
	if !ok {
		// Ineligibility is a standing state, not a failed attempt; the
		// tracker stays untouched so a later eligible call is not throttled.
		metrics.InviteSendsTotal.WithLabelValues("ineligible").Inc()
		return nil
	}

	senderID := broadcasterID
	if state.UseBotChannel {
		senderID = state.BotUserID
	}

	sendErr := s.chat.SendChatMessage(ctx, broadcasterID, senderID, s.composeMessage(user))
	s.tracker.Record(broadcasterID, sendErr == nil)
	if sendErr != nil {
		metrics.InviteSendsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to deliver invite: %w", sendErr)
	}
	metrics.InviteSendsTotal.WithLabelValues("success").Inc()
	return nil
}

// resolveChannel returns the broadcaster's delivery channel, consulting the
// monitoring cache first. Concurrent cache misses for the same broadcaster
// are collapsed into a single upstream eligibility check.
func (s *Sender) resolveChannel(ctx context.Context, user *domain.User, broadcasterID string) (domain.MonitoringState, bool, error) {
	if state, ok := s.monitoring.Get(broadcasterID); ok {
		return state, true, nil
	}

	result, err, _ := s.group.Do(broadcasterID, func() (any, error) {
		eligibility, err := s.eligibility.Check(ctx, user, broadcasterID)
		if err != nil {
			return nil, err
		}
		return eligibility, nil
	})
	if err != nil {
		return domain.MonitoringState{}, false, err
	}

	eligibility := result.(domain.BotEligibility)
	if !eligibility.CanDeliver {
		return domain.MonitoringState{}, false, nil
	}

	state := domain.MonitoringState{
		UseBotChannel: eligibility.UseBotChannel,
		BotUserID:     eligibility.BotUserID,
	}
	s.monitoring.Put(broadcasterID, state)
	return state, true, nil
}

func (s *Sender) composeMessage(user *domain.User) string {
	link := user.InviteLink
	if link == "" {
		link = s.fallbackLink
	}
	return fmt.Sprintf("Join the community! %s", link)
}
