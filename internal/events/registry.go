package events

import "strings"

// Registry maps subscription-type strings to their handlers. Lookups are
// case-insensitive. A missing handler is not an error; the monitor logs
// and drops the notification.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[strings.ToLower(h.SubscriptionType())] = h
	}
	return r
}

// Get returns the handler for a subscription type, if one is registered.
func (r *Registry) Get(subscriptionType string) (Handler, bool) {
	h, ok := r.handlers[strings.ToLower(subscriptionType)]
	return h, ok
}

// All returns every registered handler, used at startup to build the list
// of subscription types to provision upstream.
func (r *Registry) All() []Handler {
	all := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		all = append(all, h)
	}
	return all
}

// SubscriptionTypes returns the registered subscription-type strings.
func (r *Registry) SubscriptionTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for _, h := range r.All() {
		types = append(types, h.SubscriptionType())
	}
	return types
}
