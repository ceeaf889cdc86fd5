package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	topic := "p1"
	ch := b.Subscribe(topic)

	evt := SSEEvent{Type: "plan.completed", Data: map[string]any{"planId": "p1"}}
	b.Publish(topic, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["planId"].(string) != "p1" {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(topic, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("p2")
	for i := 0; i < 20; i++ {
		b.Publish("p2", SSEEvent{Type: "plan.completed"})
	}
	// Publish never blocks; a slow subscriber just loses events.
	if len(ch) != cap(ch) {
		t.Fatalf("expected full channel, got %d of %d", len(ch), cap(ch))
	}
}

func TestBrokerIsolatesTopics(t *testing.T) {
	b := NewBroker()
	other := b.Subscribe("other")
	b.Publish("p3", SSEEvent{Type: "plan.failed"})
	select {
	case evt := <-other:
		t.Fatalf("event leaked across topics: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
