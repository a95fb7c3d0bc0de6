package eventsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/events"
	"github.com/pscheid92/streamward/internal/metrics"
	"github.com/pscheid92/streamward/internal/platform/retry"
)

// State is the monitor's connection-lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateActive
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Conn is the subset of a WebSocket connection the monitor reads from.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens session-protocol connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer dials with the gorilla WebSocket client.
type GorillaDialer struct{}

func (GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return conn, nil
}

// Provisioner registers the upstream subscriptions bound to a session. It
// is invoked on every fresh session welcome and must be idempotent.
type Provisioner interface {
	Provision(ctx context.Context, sessionID string) error
}

// Revocation is surfaced when the upstream revokes a subscription. The
// monitor itself never re-creates a revoked subscription; the owning
// collaborator decides whether to resubscribe.
type Revocation struct {
	SubscriptionType string
}

var errKeepaliveExpired = errors.New("keepalive timeout expired")

// Monitor owns the session-protocol connection lifecycle. It feeds every
// inbound frame through the classifier, dispatches notifications via the
// handler registry, resets its inactivity watchdog on any frame, and
// honors reconnect frames by establishing the replacement connection
// before the old one is torn down.
type Monitor struct {
	dialer      Dialer
	registry    *events.Registry
	provisioner Provisioner
	clock       clockwork.Clock

	url              string
	keepaliveTimeout time.Duration

	mu    sync.Mutex
	state State

	dispatcher  *dispatcher
	revocations chan Revocation
}

func NewMonitor(dialer Dialer, registry *events.Registry, provisioner Provisioner, clock clockwork.Clock, url string, keepaliveTimeout time.Duration) *Monitor {
	return &Monitor{
		dialer:           dialer,
		registry:         registry,
		provisioner:      provisioner,
		clock:            clock,
		url:              url,
		keepaliveTimeout: keepaliveTimeout,
		dispatcher:       newDispatcher(),
		revocations:      make(chan Revocation, 16),
	}
}

// Revocations surfaces revoked subscriptions as a standing condition.
// Unconsumed revocations beyond the buffer are dropped, not blocked on.
func (m *Monitor) Revocations() <-chan Revocation {
	return m.revocations
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run drives the connection lifecycle until the context is cancelled. It
// only returns the context's error; every connection failure is retried
// with backoff.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.setState(StateDisconnected)
	defer m.dispatcher.wait()

	var conn Conn
	resumed := false
	for {
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return ctx.Err()
		}

		if conn == nil {
			m.setState(StateConnecting)
			c, err := m.dial(ctx, m.url)
			if err != nil {
				return err
			}
			conn = c
			resumed = false
		}

		next, err := m.serve(ctx, conn, resumed)
		_ = conn.Close()
		conn = next
		resumed = next != nil

		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			slog.Warn("Session connection lost, reconnecting", "error", err)
		}
	}
}

// dial connects with exponential backoff; every dial error is transient.
func (m *Monitor) dial(ctx context.Context, url string) (Conn, error) {
	policy := retry.Policy{
		MaxAttempts:    8,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Session dial failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	return retry.Do(ctx, policy, func(error) retry.Action { return retry.Retry }, func() (Conn, error) {
		return m.dialer.Dial(ctx, url)
	})
}

// serve reads and processes frames on one connection until it ends. A
// non-nil returned Conn is the pre-dialed replacement from a reconnect
// frame; the caller closes the old connection and continues on it.
func (m *Monitor) serve(ctx context.Context, conn Conn, resumed bool) (Conn, error) {
	frames := make(chan []byte)
	readErrs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErrs <- err
				return
			}
			select {
			case frames <- raw:
			case <-done:
				return
			}
		}
	}()

	watchdog := m.clock.NewTimer(m.keepaliveTimeout)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-watchdog.Chan():
			slog.Warn("Keepalive timeout expired, dropping connection")
			return nil, errKeepaliveExpired

		case err := <-readErrs:
			return nil, fmt.Errorf("connection read failed: %w", err)

		case raw := <-frames:
			watchdog.Reset(m.keepaliveTimeout)

			msg := Classify(raw)
			metrics.FramesClassifiedTotal.WithLabelValues(msg.Kind.String()).Inc()

			switch msg.Kind {
			case KindSessionWelcome:
				m.setState(StateActive)
				slog.Info("Session established", "session_id", msg.SessionID, "resumed", resumed)
				if !resumed {
					m.provision(ctx, msg.SessionID)
				}

			case KindSessionKeepalive:
				// Watchdog already reset above.

			case KindNotification:
				m.dispatch(ctx, msg)

			case KindReconnect:
				return m.handleReconnect(ctx, msg.ReconnectURL), nil

			case KindRevocation:
				m.handleRevocation(msg.SubscriptionType)
				return nil, nil

			case KindUnknown:
				// Forward-compatible: unknown frames are ignored.
			}
		}
	}
}

func (m *Monitor) provision(ctx context.Context, sessionID string) {
	if m.provisioner == nil {
		return
	}
	if err := m.provisioner.Provision(ctx, sessionID); err != nil {
		slog.Error("Subscription provisioning failed", "session_id", sessionID, "error", err)
	}
}

// dispatch routes one notification to its broadcaster's serial queue.
// Events for one broadcaster keep their arrival order; handlers for
// different broadcasters run concurrently, so a handler stalled on I/O
// never blocks the frame-read loop or another broadcaster's events.
func (m *Monitor) dispatch(ctx context.Context, msg ClassifiedMessage) {
	handler, ok := m.registry.Get(msg.SubscriptionType)
	if !ok {
		metrics.EventsDroppedTotal.Inc()
		slog.Info("Dropping notification without handler", "subscription_type", msg.SubscriptionType)
		return
	}
	m.dispatcher.enqueue(ctx, handler, msg)
}

// handleReconnect establishes the replacement connection before the old
// one is torn down, so no notification gap opens up. When the dial fails
// or no URL was supplied, the caller falls back to a fresh connection to
// the original endpoint.
func (m *Monitor) handleReconnect(ctx context.Context, reconnectURL string) Conn {
	m.setState(StateReconnecting)
	metrics.ReconnectsTotal.Inc()

	if reconnectURL == "" {
		return nil
	}

	next, err := m.dialer.Dial(ctx, reconnectURL)
	if err != nil {
		slog.Warn("Reconnect dial failed, falling back to fresh connection", "error", err)
		return nil
	}
	slog.Info("Reconnect connection established, discarding old connection")
	return next
}

func (m *Monitor) handleRevocation(subscriptionType string) {
	metrics.RevocationsTotal.WithLabelValues(subscriptionType).Inc()
	slog.Warn("Subscription revoked", "subscription_type", subscriptionType)

	select {
	case m.revocations <- Revocation{SubscriptionType: subscriptionType}:
	default:
		slog.Warn("Revocation channel full, dropping", "subscription_type", subscriptionType)
	}
}
