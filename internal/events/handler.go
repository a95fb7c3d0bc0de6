// Package events contains the subscription-type handlers and the registry
// that dispatches classified notifications to them.
package events

import (
	"context"
	"encoding/json"

	"github.com/pscheid92/streamward/internal/domain"
)

// Handler consumes one classified notification payload and produces side
// effects. Handlers are long-lived singletons and hold no per-event state;
// every invocation resolves its collaborators from a fresh Scope.
type Handler interface {
	SubscriptionType() string
	Handle(ctx context.Context, event json.RawMessage) error
}

// Scope is the unit-of-work collaborator set for a single handler
// invocation. Close releases whatever the factory acquired (typically a
// pooled database connection); it must be called exactly once.
type Scope struct {
	Users    domain.UserRepository
	Counters domain.CounterRepository
	Games    domain.GameLibraryRepository
	Claims   domain.ClaimRepository
	Overlay  domain.OverlaySink
	Streams  domain.StreamAPI
	Notifier domain.StreamNotifier

	closeFn func()
}

// NewScope builds a scope around the given collaborators. closeFn may be nil.
func NewScope(
	users domain.UserRepository,
	counters domain.CounterRepository,
	games domain.GameLibraryRepository,
	claims domain.ClaimRepository,
	overlay domain.OverlaySink,
	streams domain.StreamAPI,
	notifier domain.StreamNotifier,
	closeFn func(),
) *Scope {
	return &Scope{
		Users:    users,
		Counters: counters,
		Games:    games,
		Claims:   claims,
		Overlay:  overlay,
		Streams:  streams,
		Notifier: notifier,
		closeFn:  closeFn,
	}
}

func (s *Scope) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// ScopeFactory opens a fresh unit-of-work scope per handler invocation, so
// long-lived handlers never pin collaborators meant to be short-lived.
type ScopeFactory interface {
	Open(ctx context.Context) (*Scope, error)
}

// ScopeFactoryFunc adapts a function to the ScopeFactory interface.
type ScopeFactoryFunc func(ctx context.Context) (*Scope, error)

func (f ScopeFactoryFunc) Open(ctx context.Context) (*Scope, error) { return f(ctx) }

// runScoped opens a scope, runs fn, and guarantees the scope is released
// when the invocation completes.
func runScoped(ctx context.Context, scopes ScopeFactory, fn func(ctx context.Context, sc *Scope) error) error {
	sc, err := scopes.Open(ctx)
	if err != nil {
		return err
	}
	defer sc.Close()
	return fn(ctx, sc)
}
