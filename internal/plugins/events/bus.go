package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// Handler processes one event delivery. Handlers routed into plugin code
// return the plugin's failure, which the bus isolates.
type Handler func(types.Event) error

// ErrorSink receives handler failures so the owner can track them
// against the offending plugin's error count.
type ErrorSink interface {
	RecordHandlerError(pluginID string, err error)
}

// SubscriptionID identifies one subscription for targeted removal
type SubscriptionID uint64

type subscription struct {
	id       SubscriptionID
	pluginID string
	event    string
	fn       Handler
}

// Bus is the process-wide publish/subscribe channel carrying host-domain
// events to subscribed plugins. Handlers for a given event fire in
// subscription order; a failing handler never prevents delivery to the
// handlers after it.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription // by event name, FIFO
	nextID SubscriptionID
	sink   ErrorSink
	log    *logging.Logger
}

// NewBus creates an event bus
func NewBus(log *logging.Logger) *Bus {
	return &Bus{
		subs: make(map[string][]*subscription),
		log:  log.Named("events"),
	}
}

// SetErrorSink wires the component that tracks per-plugin handler errors
func (b *Bus) SetErrorSink(sink ErrorSink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Subscribe registers a handler for an event on behalf of a plugin
func (b *Bus) Subscribe(pluginID, event string, fn Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, pluginID: pluginID, event: event, fn: fn}
	b.subs[event] = append(b.subs[event], sub)
	return sub.id
}

// Unsubscribe removes a single subscription
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for event, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[event] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// UnsubscribeAll removes every subscription held by a plugin. The
// lifecycle manager calls this on deactivation, before invalidating the
// api handle, so a turned-off plugin can never receive a delivery.
func (b *Bus) UnsubscribeAll(pluginID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for event, subs := range b.subs {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.pluginID != pluginID {
				kept = append(kept, sub)
			}
		}
		b.subs[event] = kept
	}
}

// Publish delivers an event to every subscriber in subscription order.
// Each handler invocation is isolated: a panic or error is recorded
// against that plugin and delivery continues with the next handler.
func (b *Bus) Publish(event types.Event) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[event.Name]))
	copy(subs, b.subs[event.Name])
	sink := b.sink
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.deliver(sub, event); err != nil {
			b.log.Warn("event handler failed",
				zap.String("plugin_id", sub.pluginID),
				zap.String("event", event.Name),
				zap.Error(err))
			if sink != nil {
				sink.RecordHandlerError(sub.pluginID, err)
			}
		}
	}
}

// PublishExcept delivers an event to every subscriber other than the
// named plugin. Used for plugin-originated emits, where the emitter's own
// handlers run inline inside its execution context instead of through the
// bus, so its per-plugin lock is never re-entered.
func (b *Bus) PublishExcept(pluginID string, event types.Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs[event.Name]))
	for _, sub := range b.subs[event.Name] {
		if sub.pluginID != pluginID {
			subs = append(subs, sub)
		}
	}
	sink := b.sink
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.deliver(sub, event); err != nil {
			b.log.Warn("event handler failed",
				zap.String("plugin_id", sub.pluginID),
				zap.String("event", event.Name),
				zap.Error(err))
			if sink != nil {
				sink.RecordHandlerError(sub.pluginID, err)
			}
		}
	}
}

// SubscriptionCount reports active subscriptions for a plugin
func (b *Bus) SubscriptionCount(pluginID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subs {
		for _, sub := range subs {
			if sub.pluginID == pluginID {
				count++
			}
		}
	}
	return count
}

func (b *Bus) deliver(sub *subscription, event types.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.fn(event)
}
