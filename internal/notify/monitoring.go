package notify

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
)

// MonitoringRegistry caches each broadcaster's resolved delivery channel so
// the eligibility check does not hit the upstream API on every send. Entries
// expire after the configured TTL and are re-resolved lazily.
type MonitoringRegistry struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu     sync.RWMutex
	states map[string]domain.MonitoringState
}

func NewMonitoringRegistry(clock clockwork.Clock, ttl time.Duration) *MonitoringRegistry {
	return &MonitoringRegistry{
		clock:  clock,
		ttl:    ttl,
		states: make(map[string]domain.MonitoringState),
	}
}

// Get returns the cached state if it has not expired.
func (r *MonitoringRegistry) Get(broadcasterID string) (domain.MonitoringState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[broadcasterID]
	if !ok || r.clock.Since(state.ObservedAt) > r.ttl {
		return domain.MonitoringState{}, false
	}
	return state, true
}

func (r *MonitoringRegistry) Put(broadcasterID string, state domain.MonitoringState) {
	state.ObservedAt = r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[broadcasterID] = state
}

// Forget drops a cached state, forcing a fresh eligibility check on the
// next send. Used when a subscription for the broadcaster is revoked.
func (r *MonitoringRegistry) Forget(broadcasterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, broadcasterID)
}
