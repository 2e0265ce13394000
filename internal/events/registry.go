// Package events owns the per-instance listener registry: one ordered
// listener list per known event type, wildcard subscription, and isolated
// dispatch.
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"checkoutsdk/internal/metrics"
	"checkoutsdk/pkg/types"
)

// Handler processes an event. A returned error is collected by Dispatch
// but does not stop the remaining handlers.
type Handler func(types.Event) error

// Subscription identifies the listener entries created by one Subscribe
// call. Its pointer is the identity used for removal.
type Subscription struct {
	reg      *Registry
	eventTyp types.EventType
	internal bool
}

// Type is the event type (or "*") the subscription was created for.
func (s *Subscription) Type() types.EventType { return s.eventTyp }

// Internal reports whether the subscription belongs to SDK plumbing.
func (s *Subscription) Internal() bool { return s.internal }

// Unsubscribe removes every entry this subscription created.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.reg == nil {
		return
	}
	s.reg.Unsubscribe(types.EventAll, s)
}

type entry struct {
	handler  Handler
	internal bool
	sub      *Subscription
}

// SubscribeHook runs after every successful Subscribe.
type SubscribeHook func(t types.EventType, internal bool)

// Registry maps event types to ordered listener lists. Lists are created
// once at construction and are never torn down; closing a widget leaves
// them in place so late terminal events still reach the host.
type Registry struct {
	mu        sync.Mutex
	listeners map[types.EventType][]entry
	hooks     []SubscribeHook
	log       zerolog.Logger
}

// NewRegistry returns a registry with one empty list per known event type.
func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{
		listeners: make(map[types.EventType][]entry),
		log:       log,
	}
	for _, t := range types.RegistryEventTypes() {
		r.listeners[t] = nil
	}
	return r
}

// OnSubscribe installs a post-subscribe hook.
func (r *Registry) OnSubscribe(h SubscribeHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Subscribe appends h to the list for t, or to every list when t is "*".
// An unknown t is logged and registers nothing; the returned subscription
// is inert.
func (r *Registry) Subscribe(t types.EventType, h Handler, internal bool) *Subscription {
	sub := &Subscription{reg: r, eventTyp: t, internal: internal}
	if t != types.EventAll && !t.Known() {
		r.log.Warn().Str("event", string(t)).Msg("unknown / unsupported event name, this listener will have no effect")
		return &Subscription{eventTyp: t, internal: internal}
	}

	r.mu.Lock()
	e := entry{handler: h, internal: internal, sub: sub}
	if t == types.EventAll {
		for k := range r.listeners {
			r.listeners[k] = append(r.listeners[k], e)
		}
	} else {
		r.listeners[t] = append(r.listeners[t], e)
	}
	hooks := append([]SubscribeHook(nil), r.hooks...)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(t, internal)
	}
	return sub
}

// Unsubscribe removes every entry created by sub from the list for t, or
// from every list when t is "*". Unknown subscriptions are ignored.
func (r *Registry) Unsubscribe(t types.EventType, sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == types.EventAll {
		for k, list := range r.listeners {
			r.listeners[k] = without(list, sub)
		}
		return
	}
	if list, ok := r.listeners[t]; ok {
		r.listeners[t] = without(list, sub)
	}
}

// without builds a new slice so snapshots taken by an in-flight Dispatch
// keep their original contents.
func without(list []entry, sub *Subscription) []entry {
	out := make([]entry, 0, len(list))
	for _, e := range list {
		if e.sub != sub {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many listeners with the given internal flag are
// registered for t.
func (r *Registry) Count(t types.EventType, internal bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.listeners[t] {
		if e.internal == internal {
			n++
		}
	}
	return n
}

// Dispatch invokes every listener registered for ev.Type() in insertion
// order. The list is snapshotted first so handlers may subscribe or
// unsubscribe while it runs. Panics are recovered; all failures are joined
// into the returned error.
func (r *Registry) Dispatch(ev types.Event) error {
	t := ev.Type()
	r.mu.Lock()
	list, ok := r.listeners[t]
	snapshot := append([]entry(nil), list...)
	r.mu.Unlock()
	if !ok {
		r.log.Debug().Str("event", string(t)).Msg("dispatch of unknown event ignored")
		return nil
	}

	metrics.EventsDispatched.WithLabelValues(string(t)).Inc()
	var errs []error
	for _, e := range snapshot {
		if err := invoke(e.handler, ev); err != nil {
			metrics.HandlerFailures.WithLabelValues(string(t)).Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(h Handler, ev types.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s handler panicked: %v", ev.Type(), rec)
		}
	}()
	return h(ev)
}
