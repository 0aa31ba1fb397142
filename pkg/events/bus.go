// Package events is the in-process publish/subscribe fan-out for typed
// realtime events.
package events

import (
	"log/slog"
	"sync"

	"github.com/nekoweb/revolt/pkg/model"
)

// Handler consumes one published event.
type Handler func(model.Event)

// kindAll subscribes a handler to every event regardless of kind.
const kindAll model.EventType = "*"

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to subscribers synchronously, in publish order.
// With a single publisher (the realtime decode loop) every subscriber
// observes events in the same relative order they arrived on the wire.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[model.EventType][]subscription
	logger *slog.Logger
}

// NewBus returns an empty bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[model.EventType][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for every future event of the given
// kind. The returned cancel func removes the subscription; it is safe
// to call more than once.
func (b *Bus) Subscribe(kind model.EventType, h Handler) (cancel func()) {
	return b.add(kind, h)
}

// SubscribeAll registers a handler for every published event.
func (b *Bus) SubscribeAll(h Handler) (cancel func()) {
	return b.add(kindAll, h)
}

func (b *Bus) add(kind model.EventType, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[kind]
		for i, sub := range list {
			if sub.id == id {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to all current subscribers for its kind,
// then to wildcard subscribers, in registration order. Delivery is
// synchronous on the caller's goroutine. A panicking handler is
// recovered and logged so it cannot prevent delivery to the rest.
func (b *Bus) Publish(ev model.Event) {
	b.mu.RLock()
	kinded := b.subs[ev.EventKind()]
	wildcard := b.subs[kindAll]
	handlers := make([]Handler, 0, len(kinded)+len(wildcard))
	for _, sub := range kinded {
		handlers = append(handlers, sub.handler)
	}
	for _, sub := range wildcard {
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ev, h)
	}
}

func (b *Bus) deliver(ev model.Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", ev.EventKind(), "panic", r)
		}
	}()
	h(ev)
}
