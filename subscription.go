package hook

import (
	"fmt"
	"sync"
)

type subscription struct {
	event  string // bare event name, as registered
	topic  string // fully namespaced topic
	fn     EventHandler
	active bool // true once the transport has accepted the subscription
}

// subscriptionRegistry holds a channel's subscriptions in registration
// order. Order matters: queued subscriptions are flushed to the transport in
// the order they were registered, on every (re)connect.
type subscriptionRegistry struct {
	mu   sync.RWMutex
	subs []*subscription
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{}
}

// register adds a subscription for the given event. One handler per event:
// registering a duplicate is an error.
func (r *subscriptionRegistry) register(event, topic string, fn EventHandler) (*subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		if sub.event == event {
			return nil, fmt.Errorf("already subscribed to event %q", event)
		}
	}

	sub := &subscription{event: event, topic: topic, fn: fn}
	r.subs = append(r.subs, sub)
	return sub, nil
}

// remove drops the subscription for the given event, returning it, or nil
// when none was registered.
func (r *subscriptionRegistry) remove(event string) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.event == event {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return sub
		}
	}
	return nil
}

// lookup finds the subscription delivering the given topic.
func (r *subscriptionRegistry) lookup(topic string) (*subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs {
		if sub.topic == topic {
			return sub, true
		}
	}
	return nil, false
}

// all returns the subscriptions in registration order.
func (r *subscriptionRegistry) all() []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

// deactivate marks every subscription as needing a resubscribe.
func (r *subscriptionRegistry) deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		sub.active = false
	}
}
