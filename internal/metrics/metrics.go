// Package metrics defines the Prometheus instrumentation for the event
// pipeline. All collectors are registered via promauto at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventSub ingestion metrics
var (
	// FramesClassifiedTotal tracks inbound session-protocol frames by kind.
	FramesClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_frames_classified_total",
			Help: "Inbound session-protocol frames by classified kind",
		},
		[]string{"kind"},
	)

	// EventsHandledTotal tracks dispatched notifications by type and outcome.
	EventsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_events_handled_total",
			Help: "Dispatched notifications by subscription type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// EventsDroppedTotal tracks notifications dropped for lack of a handler.
	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsub_events_dropped_total",
			Help: "Notifications dropped because no handler was registered",
		},
	)

	// ReconnectsTotal tracks forced session reconnects.
	ReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsub_reconnects_total",
			Help: "Session-protocol reconnect messages honored",
		},
	)

	// RevocationsTotal tracks subscription revocations by subscription type.
	RevocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsub_revocations_total",
			Help: "Subscription revocations by subscription type",
		},
		[]string{"type"},
	)
)

// Outbound notification metrics
var (
	// NotificationsSentTotal tracks outbound stream-online notifications by status.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Outbound stream-online notifications by status",
		},
		[]string{"status"},
	)

	// DuplicateEventsTotal tracks events suppressed by the idempotency claim.
	DuplicateEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_duplicates_suppressed_total",
			Help: "Duplicate event deliveries suppressed by the idempotency claim",
		},
	)

	// InviteSendsTotal tracks invite sender outcomes.
	InviteSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_sends_total",
			Help: "Invite sender invocations by result",
		},
		[]string{"result"},
	)
)

// Scheduler metrics
var (
	// SchedulerLoopsActive tracks currently running broadcast loops.
	SchedulerLoopsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_loops_active",
			Help: "Currently running per-broadcaster broadcast loops",
		},
	)

	// SchedulerLoopFailuresTotal tracks loops that exited on failure.
	SchedulerLoopFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_loop_failures_total",
			Help: "Broadcast loops that exited because of a send failure or panic",
		},
	)
)

// Overlay metrics
var (
	// OverlayClientsConnected tracks connected overlay WebSocket clients.
	OverlayClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overlay_clients_connected",
			Help: "Connected overlay WebSocket clients",
		},
	)

	// OverlayAlertsTotal tracks alerts delivered to the overlay by kind.
	OverlayAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_alerts_total",
			Help: "Alerts delivered to the overlay hub by kind",
		},
		[]string{"kind"},
	)
)
