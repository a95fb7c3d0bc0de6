package notify

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
)

// Tracker keeps the most recent outbound-notification outcome per
// broadcaster. Last write wins; the history is not retained.
type Tracker struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	records map[string]domain.NotificationRecord
}

func NewTracker(clock clockwork.Clock) *Tracker {
	return &Tracker{
		clock:   clock,
		records: make(map[string]domain.NotificationRecord),
	}
}

func (t *Tracker) Record(broadcasterID string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[broadcasterID] = domain.NotificationRecord{At: t.clock.Now(), Success: success}
}

// Last returns the most recent recorded attempt for a broadcaster.
func (t *Tracker) Last(broadcasterID string) (domain.NotificationRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[broadcasterID]
	return rec, ok
}
