package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pscheid92/streamward/internal/domain"
)

// --- Mock implementations ---

type mockUserRepo struct {
	getByIDFn      func(ctx context.Context, broadcasterID string) (*domain.User, error)
	updateTokensFn func(ctx context.Context, broadcasterID, accessToken, refreshToken string, tokenExpiry time.Time) error
}

func (m *mockUserRepo) GetByID(ctx context.Context, broadcasterID string) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, broadcasterID)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) UpdateTokens(ctx context.Context, broadcasterID, accessToken, refreshToken string, tokenExpiry time.Time) error {
	if m.updateTokensFn != nil {
		return m.updateTokensFn(ctx, broadcasterID, accessToken, refreshToken, tokenExpiry)
	}
	return nil
}

type mockCounterRepo struct {
	mu        sync.Mutex
	counters  map[string]*domain.Counters
	snapshots map[string]*domain.GameSnapshot
	saveErr   error
	saved     []*domain.Counters
}

func newMockCounterRepo() *mockCounterRepo {
	return &mockCounterRepo{
		counters:  make(map[string]*domain.Counters),
		snapshots: make(map[string]*domain.GameSnapshot),
	}
}

func (m *mockCounterRepo) GetByBroadcaster(_ context.Context, broadcasterID string) (*domain.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[broadcasterID]
	if !ok {
		return nil, domain.ErrCountersNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *mockCounterRepo) Save(_ context.Context, counters *domain.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	clone := *counters
	m.counters[counters.BroadcasterID] = &clone
	m.saved = append(m.saved, &clone)
	return nil
}

func (m *mockCounterRepo) GetGameSnapshot(_ context.Context, broadcasterID, gameID string) (*domain.GameSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[broadcasterID+"/"+gameID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *mockCounterRepo) SaveGameSnapshot(_ context.Context, snapshot *domain.GameSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *snapshot
	m.snapshots[snapshot.BroadcasterID+"/"+snapshot.GameID] = &clone
	return nil
}

type mockGameRepo struct {
	getFn    func(ctx context.Context, broadcasterID, gameID string) (*domain.GameEntry, error)
	upsertFn func(ctx context.Context, entry *domain.GameEntry) error
}

func (m *mockGameRepo) Get(ctx context.Context, broadcasterID, gameID string) (*domain.GameEntry, error) {
	if m.getFn != nil {
		return m.getFn(ctx, broadcasterID, gameID)
	}
	return nil, domain.ErrGameNotFound
}

func (m *mockGameRepo) Upsert(ctx context.Context, entry *domain.GameEntry) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entry)
	}
	return nil
}

// mockClaimRepo mimics the durable first-writer-wins semantics in memory.
type mockClaimRepo struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{claimed: make(map[string]bool)}
}

func (m *mockClaimRepo) Claim(_ context.Context, broadcasterID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	full := broadcasterID + "/" + key
	if m.claimed[full] {
		return false, nil
	}
	m.claimed[full] = true
	return true, nil
}

type mockOverlay struct {
	mu       sync.Mutex
	started  []*domain.Counters
	ended    []string
	alerts   []domain.Alert
	alertErr error
}

func (m *mockOverlay) NotifyStreamStarted(_ context.Context, counters *domain.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *counters
	m.started = append(m.started, &clone)
	return nil
}

func (m *mockOverlay) NotifyStreamEnded(_ context.Context, broadcasterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, broadcasterID)
	return nil
}

func (m *mockOverlay) NotifyAlert(_ context.Context, alert domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alertErr != nil {
		return m.alertErr
	}
	m.alerts = append(m.alerts, alert)
	return nil
}

type mockStreamAPI struct {
	getStreamFn      func(ctx context.Context, broadcasterID string) (*domain.StreamInfo, error)
	getChannelInfoFn func(ctx context.Context, broadcasterID string) (*domain.ChannelInfo, error)
	applyLabelsFn    func(ctx context.Context, broadcasterID string, labels []string) error
}

func (m *mockStreamAPI) GetStream(ctx context.Context, broadcasterID string) (*domain.StreamInfo, error) {
	if m.getStreamFn != nil {
		return m.getStreamFn(ctx, broadcasterID)
	}
	return nil, domain.ErrStreamNotLive
}

func (m *mockStreamAPI) GetChannelInfo(ctx context.Context, broadcasterID string) (*domain.ChannelInfo, error) {
	if m.getChannelInfoFn != nil {
		return m.getChannelInfoFn(ctx, broadcasterID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockStreamAPI) ApplyContentLabels(ctx context.Context, broadcasterID string, labels []string) error {
	if m.applyLabelsFn != nil {
		return m.applyLabelsFn(ctx, broadcasterID, labels)
	}
	return nil
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.StreamAnnouncement
	err  error
}

func (m *mockNotifier) NotifyStreamOnline(_ context.Context, ann domain.StreamAnnouncement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, ann)
	return nil
}

type mockScheduler struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (m *mockScheduler) Start(broadcasterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, broadcasterID)
}

func (m *mockScheduler) Stop(broadcasterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = append(m.stopped, broadcasterID)
}

type mockTracker struct {
	mu      sync.Mutex
	records []bool
}

func (m *mockTracker) Record(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, success)
}

type mockInviteSender struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (m *mockInviteSender) Send(_ context.Context, broadcasterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, broadcasterID)
	return m.err
}

// --- Scope plumbing ---

type scopeEnv struct {
	users    *mockUserRepo
	counters *mockCounterRepo
	games    *mockGameRepo
	claims   *mockClaimRepo
	overlay  *mockOverlay
	streams  *mockStreamAPI
	notifier *mockNotifier

	mu     sync.Mutex
	opens  int
	closes int
}

func newScopeEnv() *scopeEnv {
	return &scopeEnv{
		users:    &mockUserRepo{},
		counters: newMockCounterRepo(),
		games:    &mockGameRepo{},
		claims:   newMockClaimRepo(),
		overlay:  &mockOverlay{},
		streams:  &mockStreamAPI{},
		notifier: &mockNotifier{},
	}
}

func (e *scopeEnv) factory() ScopeFactory {
	return ScopeFactoryFunc(func(ctx context.Context) (*Scope, error) {
		e.mu.Lock()
		e.opens++
		e.mu.Unlock()
		return NewScope(e.users, e.counters, e.games, e.claims, e.overlay, e.streams, e.notifier, func() {
			e.mu.Lock()
			e.closes++
			e.mu.Unlock()
		}), nil
	})
}
