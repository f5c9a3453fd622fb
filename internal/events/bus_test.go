package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventUserMessage)

	bus.Publish(NewTypedEvent("test", UserMessagePayload{Content: "hello"}))
	bus.Publish(NewTypedEvent("test", AssistantStreamPayload{Phase: StreamPhaseStart}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventUserMessage {
		t.Errorf("expected user.message, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent("test", UserMessagePayload{Content: "hello"}))
	bus.Publish(NewTypedEvent("test", AssistantStreamPayload{Phase: StreamPhaseStart}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusPreservesOrderPerSubscriber(t *testing.T) {
	bus := NewBus(256)
	defer bus.Close()

	const n = 200
	got := make(chan int, n)
	bus.Subscribe(func(e Event) {
		p, ok := GetAssistantStreamPayload(e)
		if ok {
			got <- p.Index
		}
	}, EventAssistantStream)

	for i := 0; i < n; i++ {
		if err := bus.PublishAsync(context.Background(), NewTypedEvent(SourceBot, AssistantStreamPayload{
			Phase: StreamPhaseDelta, Index: i,
		})); err != nil {
			t.Fatal(err)
		}
	}

	for want := 0; want < n; want++ {
		select {
		case idx := <-got:
			if idx != want {
				t.Fatalf("delta %d arrived at position %d", idx, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for delta %d", want)
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8)
	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(NewTypedEvent("test", UserMessagePayload{Content: "late"}))
}

func TestBusClose(t *testing.T) {
	bus := NewBus(8)
	ch, _ := bus.SubscribeChan(8)
	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel should be closed with the bus")
	}

	bus.Publish(NewTypedEvent("test", UserMessagePayload{Content: "after close"}))
	err := bus.PublishAsync(context.Background(), NewTypedEvent("test", UserMessagePayload{}))
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("PublishAsync after close = %v, want ErrBusClosed", err)
	}

	unsub := bus.Subscribe(func(Event) {})
	unsub()
}

func TestBusHistory(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8)
	defer unsub()

	for _, s := range []string{"a", "b", "c"} {
		bus.Publish(NewTypedEvent(SourceTUI, UserMessagePayload{Content: s}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for events")
		}
	}

	hist := bus.History(2)
	if len(hist) != 2 {
		t.Fatalf("expected 2 events, got %d", len(hist))
	}
	p, _ := GetUserMessagePayload(hist[1])
	if p.Content != "c" {
		t.Errorf("latest history entry = %q, want c", p.Content)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventUserMessage, "test", map[string]any{"i": i}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Payload["i"] != 2 || events[2].Payload["i"] != 4 {
		t.Errorf("expected oldest-first 2..4, got %v..%v", events[0].Payload["i"], events[2].Payload["i"])
	}

	rb.Clear()
	if got := rb.Get(3); got != nil {
		t.Errorf("expected empty buffer after Clear, got %d events", len(got))
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventUserMessage)
	defer unsub()

	bus.Publish(NewTypedEvent("test", UserMessagePayload{Content: "hello"}))

	select {
	case e := <-ch:
		if e.Type != EventUserMessage {
			t.Errorf("expected user.message, got %s", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}
