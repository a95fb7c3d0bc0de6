package eventsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pscheid92/streamward/internal/events"
	"github.com/pscheid92/streamward/internal/metrics"
	"github.com/pscheid92/streamward/internal/platform/correlation"
)

const broadcasterQueueSize = 64

// dispatcher fans notifications out to per-broadcaster serial queues: one
// broadcaster's events run in arrival order on a dedicated goroutine, so a
// handler stuck on I/O for one broadcaster never delays another's.
type dispatcher struct {
	mu     sync.Mutex
	queues map[string]chan dispatchJob
	wg     sync.WaitGroup
}

type dispatchJob struct {
	handler          events.Handler
	subscriptionType string
	event            json.RawMessage
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[string]chan dispatchJob)}
}

// routedEvent carries the fields that key a notification to a broadcaster.
// Raid events name only the raid target.
type routedEvent struct {
	BroadcasterUserID   string `json:"broadcaster_user_id"`
	ToBroadcasterUserID string `json:"to_broadcaster_user_id"`
}

func routingKey(event json.RawMessage) string {
	var ev routedEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return ""
	}
	if ev.BroadcasterUserID != "" {
		return ev.BroadcasterUserID
	}
	return ev.ToBroadcasterUserID
}

// enqueue hands the notification to the broadcaster's queue, spawning the
// queue worker on first use. A full queue sheds the event instead of
// stalling the frame-read loop; the upstream redelivers on its at-least-once
// guarantee.
func (d *dispatcher) enqueue(ctx context.Context, handler events.Handler, msg ClassifiedMessage) {
	key := routingKey(msg.Event)

	d.mu.Lock()
	queue, ok := d.queues[key]
	if !ok {
		queue = make(chan dispatchJob, broadcasterQueueSize)
		d.queues[key] = queue
		d.wg.Add(1)
		go d.worker(ctx, queue)
	}
	d.mu.Unlock()

	select {
	case queue <- dispatchJob{handler: handler, subscriptionType: msg.SubscriptionType, event: msg.Event}:
	default:
		metrics.EventsDroppedTotal.Inc()
		slog.Warn("Dropping notification, broadcaster queue full",
			"subscription_type", msg.SubscriptionType, "broadcaster_user_id", key)
	}
}

func (d *dispatcher) worker(ctx context.Context, queue chan dispatchJob) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-queue:
			d.handle(ctx, job)
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, job dispatchJob) {
	ctx = correlation.WithID(ctx, correlation.NewID())
	if err := job.handler.Handle(ctx, job.event); err != nil {
		metrics.EventsHandledTotal.WithLabelValues(job.subscriptionType, "error").Inc()
		slog.ErrorContext(ctx, "Event handler failed", "subscription_type", job.subscriptionType, "error", err)
		return
	}
	metrics.EventsHandledTotal.WithLabelValues(job.subscriptionType, "success").Inc()
}

// wait blocks until every queue worker has exited.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
