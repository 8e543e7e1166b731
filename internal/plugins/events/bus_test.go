package events

import (
	"errors"
	"testing"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

type recordingSink struct {
	errors map[string]int
}

func (s *recordingSink) RecordHandlerError(pluginID string, err error) {
	if s.errors == nil {
		s.errors = make(map[string]int)
	}
	s.errors[pluginID]++
}

func TestDeliveryOrder(t *testing.T) {
	bus := NewBus(logging.NewNop())

	var order []string
	bus.Subscribe("a", "world.switched", func(types.Event) error {
		order = append(order, "a")
		return nil
	})
	bus.Subscribe("b", "world.switched", func(types.Event) error {
		order = append(order, "b")
		return nil
	})
	bus.Subscribe("c", "world.switched", func(types.Event) error {
		order = append(order, "c")
		return nil
	})

	bus.Publish(types.Event{Name: "world.switched"})

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("Expected FIFO delivery, got %v", order)
	}
}

func TestFailingHandlerDoesNotBlockDelivery(t *testing.T) {
	bus := NewBus(logging.NewNop())
	sink := &recordingSink{}
	bus.SetErrorSink(sink)

	delivered := false
	bus.Subscribe("bad", "character.created", func(types.Event) error {
		return errors.New("boom")
	})
	bus.Subscribe("worse", "character.created", func(types.Event) error {
		panic("handler panic")
	})
	bus.Subscribe("good", "character.created", func(types.Event) error {
		delivered = true
		return nil
	})

	bus.Publish(types.Event{Name: "character.created"})

	if !delivered {
		t.Error("Later handler should still receive the event")
	}
	if sink.errors["bad"] != 1 || sink.errors["worse"] != 1 {
		t.Errorf("Both failures should be recorded, got %v", sink.errors)
	}
}

func TestUnsubscribeAll(t *testing.T) {
	bus := NewBus(logging.NewNop())

	calls := 0
	bus.Subscribe("p1", "note.created", func(types.Event) error { calls++; return nil })
	bus.Subscribe("p1", "world.switched", func(types.Event) error { calls++; return nil })
	bus.Subscribe("p2", "note.created", func(types.Event) error { return nil })

	if n := bus.SubscriptionCount("p1"); n != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", n)
	}

	bus.UnsubscribeAll("p1")

	if n := bus.SubscriptionCount("p1"); n != 0 {
		t.Errorf("Expected 0 subscriptions after UnsubscribeAll, got %d", n)
	}
	bus.Publish(types.Event{Name: "note.created"})
	bus.Publish(types.Event{Name: "world.switched"})
	if calls != 0 {
		t.Errorf("Unsubscribed plugin should receive nothing, got %d calls", calls)
	}

	if n := bus.SubscriptionCount("p2"); n != 1 {
		t.Errorf("Other plugin's subscriptions must survive, got %d", n)
	}
}

func TestUnsubscribeSingle(t *testing.T) {
	bus := NewBus(logging.NewNop())

	calls := 0
	id := bus.Subscribe("p1", "note.created", func(types.Event) error { calls++; return nil })
	bus.Unsubscribe(id)

	bus.Publish(types.Event{Name: "note.created"})
	if calls != 0 {
		t.Error("Unsubscribed handler should not fire")
	}
}

func TestPayloadDelivery(t *testing.T) {
	bus := NewBus(logging.NewNop())

	var got interface{}
	bus.Subscribe("p1", "character.created", func(e types.Event) error {
		got = e.Payload
		return nil
	})

	bus.Publish(types.Event{Name: "character.created", Payload: map[string]interface{}{"name": "Tamsin"}})

	payload, ok := got.(map[string]interface{})
	if !ok || payload["name"] != "Tamsin" {
		t.Errorf("Payload not delivered, got %v", got)
	}
}
