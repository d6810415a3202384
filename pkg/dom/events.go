package dom

import (
	"context"
	"strings"
	"sync"
)

// EventKind names a DOM event type.
type EventKind string

const (
	EventChange EventKind = "change"
	EventInput  EventKind = "input"
	EventClick  EventKind = "click"
	EventSubmit EventKind = "submit"
)

// Event is a dispatched DOM event. Handlers may prevent the default action or
// stop propagation to ancestors.
type Event struct {
	Kind   EventKind
	Target Element

	// CurrentTarget is the element whose binding is running.
	CurrentTarget Element

	defaultPrevented bool
	stopped          bool
}

// PreventDefault marks the default action (navigation on submit) as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a handler called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation prevents ancestors from receiving the event.
func (e *Event) StopPropagation() { e.stopped = true }

// Handler reacts to a dispatched event.
type Handler func(ctx context.Context, ev *Event)

// Binding ties a handler to an element id and event kind. An empty ID binds
// the handler at document level, after every element on the path.
type Binding struct {
	ID      string
	Kind    EventKind
	Handler Handler
}

type bindingKey struct {
	id   string
	kind EventKind
}

// Dispatcher stores bindings and delivers events along the ancestor chain of
// the target (bubbling phase only). Documents embed it to satisfy Bind and
// Dispatch.
type Dispatcher struct {
	mu       sync.RWMutex
	bindings map[bindingKey][]Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{bindings: make(map[bindingKey][]Handler)}
}

// Bind registers a binding. Nil handlers are ignored.
func (d *Dispatcher) Bind(binding Binding) {
	if d == nil || binding.Handler == nil || binding.Kind == "" {
		return
	}
	key := bindingKey{id: strings.TrimSpace(binding.ID), kind: binding.Kind}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bindings == nil {
		d.bindings = make(map[bindingKey][]Handler)
	}
	d.bindings[key] = append(d.bindings[key], binding.Handler)
}

// Dispatch runs the handlers bound on the target, then on each ancestor that
// carries an id, then the document-level handlers. Handlers run without any
// dispatcher lock held so they may bind or dispatch further events.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) bool {
	if d == nil || ev == nil {
		return true
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for el := ev.Target; el != nil; el = el.Parent() {
		id := el.ID()
		if id == "" {
			continue
		}
		if d.run(ctx, ev, el, id) {
			return !ev.defaultPrevented
		}
	}
	d.run(ctx, ev, nil, "")
	return !ev.defaultPrevented
}

func (d *Dispatcher) run(ctx context.Context, ev *Event, current Element, id string) bool {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.bindings[bindingKey{id: id, kind: ev.Kind}]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		ev.CurrentTarget = current
		handler(ctx, ev)
	}
	return ev.stopped
}
