package tracking

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("u1")
	defer cancel()

	b.Publish("u1", Event{Type: EventStatsUpdated, Payload: "p"})

	select {
	case ev := <-ch:
		if ev.Type != EventStatsUpdated {
			t.Errorf("Type = %q, want %q", ev.Type, EventStatsUpdated)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestBrokerIsolatesUsers(t *testing.T) {
	b := NewBroker()
	ch1, cancel1 := b.Subscribe("u1")
	defer cancel1()
	_, cancel2 := b.Subscribe("u2")
	defer cancel2()

	b.Publish("u2", Event{Type: EventStatsUpdated})

	select {
	case ev := <-ch1:
		t.Errorf("u1 received u2's event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBrokerCancelClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("u1")
	cancel()
	cancel() // safe to call twice

	if _, ok := <-ch; ok {
		t.Error("channel must be closed after cancel")
	}

	// publishing after cancel must not panic
	b.Publish("u1", Event{Type: EventStatsUpdated})
}

func TestBrokerNeverBlocks(t *testing.T) {
	b := NewBroker()
	_, cancel := b.Subscribe("u1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish("u1", Event{Type: EventStatsUpdated, Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
