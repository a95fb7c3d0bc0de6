package notify

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/metrics"
	"github.com/pscheid92/streamward/internal/platform/logging"
)

type inviteSender interface {
	Send(ctx context.Context, broadcasterID string) error
}

// Scheduler maintains at most one recurring invite loop per broadcaster.
// Each loop sends immediately on start and then on a fixed interval until
// stopped. A loop that fails deregisters itself, so a later Start for the
// same broadcaster is never blocked by a dead entry.
type Scheduler struct {
	sender   inviteSender
	clock    clockwork.Clock
	interval time.Duration

	mu    sync.Mutex
	loops map[string]*schedulerLoop
}

type schedulerLoop struct {
	cancel context.CancelFunc
}

func NewScheduler(sender inviteSender, clock clockwork.Clock, interval time.Duration) *Scheduler {
	return &Scheduler{
		sender:   sender,
		clock:    clock,
		interval: interval,
		loops:    make(map[string]*schedulerLoop),
	}
}

// Start launches the broadcast loop for a broadcaster. Starting an already
// running broadcaster is a no-op, as is a blank id.
func (s *Scheduler) Start(broadcasterID string) {
	if broadcasterID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.loops[broadcasterID]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &schedulerLoop{cancel: cancel}
	s.loops[broadcasterID] = loop
	metrics.SchedulerLoopsActive.Inc()

	go s.run(ctx, broadcasterID, loop)
}

// Stop cancels the broadcaster's loop if one is running. Safe to call when
// none is registered.
func (s *Scheduler) Stop(broadcasterID string) {
	if broadcasterID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if loop, ok := s.loops[broadcasterID]; ok {
		loop.cancel()
		delete(s.loops, broadcasterID)
		metrics.SchedulerLoopsActive.Dec()
	}
}

// StopAll cancels every running loop, used during shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, loop := range s.loops {
		loop.cancel()
		delete(s.loops, id)
		metrics.SchedulerLoopsActive.Dec()
	}
}

// Running reports whether a loop is currently registered for the broadcaster.
func (s *Scheduler) Running(broadcasterID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[broadcasterID]
	return ok
}

func (s *Scheduler) run(ctx context.Context, broadcasterID string, loop *schedulerLoop) {
	defer s.cleanup(broadcasterID, loop)

	log := logging.WithBroadcaster(broadcasterID)

	if err := s.sender.Send(ctx, broadcasterID); err != nil {
		log.Error("Broadcast loop send failed, loop exiting", "error", err)
		metrics.SchedulerLoopFailuresTotal.Inc()
		return
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := s.sender.Send(ctx, broadcasterID); err != nil {
				log.Error("Broadcast loop send failed, loop exiting", "error", err)
				metrics.SchedulerLoopFailuresTotal.Inc()
				return
			}
		}
	}
}

// cleanup deregisters the loop on exit, including panics in the loop body.
// Only the entry belonging to this loop is removed; a replacement loop
// registered after a Stop/Start cycle stays untouched.
func (s *Scheduler) cleanup(broadcasterID string, loop *schedulerLoop) {
	if r := recover(); r != nil {
		logging.WithBroadcaster(broadcasterID).Error("Broadcast loop panicked, loop exiting", "panic", r)
		metrics.SchedulerLoopFailuresTotal.Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.loops[broadcasterID]; ok && current == loop {
		delete(s.loops, broadcasterID)
		metrics.SchedulerLoopsActive.Dec()
	}
}
