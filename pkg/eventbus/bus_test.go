package eventbus

import (
	"context"
	"testing"
	"time"
)

func recvTimeout(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch, unsub := bus.Subscribe(context.Background(), "t", false)
	defer unsub()

	bus.Publish("t", 42)
	if got := recvTimeout(t, ch); got != 42 {
		t.Errorf("got %v, want 42", got)
	}
}

func TestReplaceOldest(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch, unsub := bus.Subscribe(context.Background(), "t", false)
	defer unsub()

	// Nobody reading: the second publish evicts the first.
	bus.Publish("t", "old")
	bus.Publish("t", "new")

	if got := recvTimeout(t, ch); got != "new" {
		t.Errorf("got %v, want the most recent event", got)
	}
}

func TestSubscribeWithLast(t *testing.T) {
	bus := New()
	defer bus.Close()

	bus.Publish("t", "stored")
	ch, unsub := bus.Subscribe(context.Background(), "t", true)
	defer unsub()

	if got := recvTimeout(t, ch); got != "stored" {
		t.Errorf("got %v, want the stored last event", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch, unsub := bus.Subscribe(context.Background(), "t", false)
	unsub()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestClosedBus(t *testing.T) {
	bus := New()
	bus.Close()
	bus.Close() // idempotent

	bus.Publish("t", 1) // no panic

	ch, _ := bus.Subscribe(context.Background(), "t", false)
	if _, ok := <-ch; ok {
		t.Error("expected closed channel from closed bus")
	}
}
