package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockUserRepo struct {
	getByIDFn func(ctx context.Context, broadcasterID string) (*domain.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, broadcasterID string) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, broadcasterID)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) UpdateTokens(context.Context, string, string, string, time.Time) error {
	return nil
}

type mockEligibility struct {
	mu     sync.Mutex
	calls  int
	result domain.BotEligibility
	err    error
}

func (m *mockEligibility) Check(_ context.Context, _ *domain.User, _ string) (domain.BotEligibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result, m.err
}

func (m *mockEligibility) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type chatCall struct {
	broadcasterID string
	senderID      string
	text          string
}

type mockChat struct {
	mu    sync.Mutex
	calls []chatCall
	err   error
}

func (m *mockChat) SendChatMessage(_ context.Context, broadcasterID, senderID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, chatCall{broadcasterID: broadcasterID, senderID: senderID, text: text})
	return m.err
}

func (m *mockChat) sent() []chatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chatCall(nil), m.calls...)
}

type senderFixture struct {
	sender      *Sender
	tracker     *Tracker
	monitoring  *MonitoringRegistry
	users       *mockUserRepo
	eligibility *mockEligibility
	chat        *mockChat
	clock       *clockwork.FakeClock
}

func newSenderFixture() *senderFixture {
	clock := clockwork.NewFakeClock()
	f := &senderFixture{
		tracker:    NewTracker(clock),
		monitoring: NewMonitoringRegistry(clock, time.Hour),
		users: &mockUserRepo{
			getByIDFn: func(_ context.Context, broadcasterID string) (*domain.User, error) {
				return &domain.User{ID: broadcasterID, Username: "streamer"}, nil
			},
		},
		eligibility: &mockEligibility{
			result: domain.BotEligibility{CanDeliver: true, UseBotChannel: true, BotUserID: "bot-1"},
		},
		chat:  &mockChat{},
		clock: clock,
	}
	f.sender = NewSender(f.tracker, f.monitoring, f.users, f.eligibility, f.chat, clock, 5*time.Minute, "https://discord.gg/fallback")
	return f
}

func TestSenderDeliversThroughBotChannel(t *testing.T) {
	f := newSenderFixture()

	require.NoError(t, f.sender.Send(context.Background(), "b1"))

	calls := f.chat.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "b1", calls[0].broadcasterID)
	assert.Equal(t, "bot-1", calls[0].senderID)
	assert.Contains(t, calls[0].text, "https://discord.gg/fallback")

	rec, ok := f.tracker.Last("b1")
	require.True(t, ok)
	assert.True(t, rec.Success)
}

func TestSenderUsesBroadcasterIdentityWithoutBotChannel(t *testing.T) {
	f := newSenderFixture()
	f.eligibility.result = domain.BotEligibility{CanDeliver: true, UseBotChannel: false}

	require.NoError(t, f.sender.Send(context.Background(), "b1"))

	calls := f.chat.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "b1", calls[0].senderID)
}

func TestSenderPrefersCustomInviteLink(t *testing.T) {
	f := newSenderFixture()
	f.users.getByIDFn = func(_ context.Context, broadcasterID string) (*domain.User, error) {
		return &domain.User{ID: broadcasterID, InviteLink: "https://discord.gg/custom"}, nil
	}

	require.NoError(t, f.sender.Send(context.Background(), "b1"))

	calls := f.chat.sent()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].text, "https://discord.gg/custom")
	assert.NotContains(t, calls[0].text, "fallback")
}

func TestSenderThrottleWindowSuppressesSecondSend(t *testing.T) {
	f := newSenderFixture()

	require.NoError(t, f.sender.Send(context.Background(), "b1"))
	require.NoError(t, f.sender.Send(context.Background(), "b1"))
	assert.Len(t, f.chat.sent(), 1, "second send within the window must be suppressed")

	f.clock.Advance(5*time.Minute + time.Second)
	require.NoError(t, f.sender.Send(context.Background(), "b1"))
	assert.Len(t, f.chat.sent(), 2)
}

func TestSenderUnknownUserLeavesNoRecord(t *testing.T) {
	f := newSenderFixture()
	f.users.getByIDFn = nil // defaults to ErrUserNotFound

	require.NoError(t, f.sender.Send(context.Background(), "b1"))

	assert.Empty(t, f.chat.sent())
	_, ok := f.tracker.Last("b1")
	assert.False(t, ok, "an unknown user is not a delivery attempt")
}

func TestSenderIneligibleLeavesNoRecord(t *testing.T) {
	f := newSenderFixture()
	f.eligibility.result = domain.BotEligibility{CanDeliver: false}

	require.NoError(t, f.sender.Send(context.Background(), "b1"))

	assert.Empty(t, f.chat.sent())
	_, ok := f.tracker.Last("b1")
	assert.False(t, ok, "ineligibility is a standing state, not a failed attempt")
	_, cached := f.monitoring.Get("b1")
	assert.False(t, cached)
}

func TestSenderEligibilityErrorSurfaces(t *testing.T) {
	f := newSenderFixture()
	f.eligibility.err = fmt.Errorf("upstream unavailable")

	err := f.sender.Send(context.Background(), "b1")
	require.Error(t, err)
	assert.Empty(t, f.chat.sent())
}

func TestSenderCachesResolvedChannel(t *testing.T) {
	f := newSenderFixture()

	require.NoError(t, f.sender.Send(context.Background(), "b1"))
	f.clock.Advance(6 * time.Minute)
	require.NoError(t, f.sender.Send(context.Background(), "b1"))

	assert.Len(t, f.chat.sent(), 2)
	assert.Equal(t, 1, f.eligibility.callCount(), "eligibility must be resolved from cache on the second send")
}

func TestSenderRecordsDeliveryFailure(t *testing.T) {
	f := newSenderFixture()
	f.chat.err = fmt.Errorf("chat rejected")

	err := f.sender.Send(context.Background(), "b1")
	require.Error(t, err)

	rec, ok := f.tracker.Last("b1")
	require.True(t, ok, "a real attempt is recorded regardless of outcome")
	assert.False(t, rec.Success)
}

func TestSenderBlankBroadcasterIsNoOp(t *testing.T) {
	f := newSenderFixture()

	require.NoError(t, f.sender.Send(context.Background(), ""))
	assert.Empty(t, f.chat.sent())
}
