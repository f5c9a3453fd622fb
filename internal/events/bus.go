// Package events provides an in-memory event bus using Go channels.
package events

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
)

// Subscriber is a function that receives events.
type Subscriber func(Event)

// subscription owns an ordered queue. Handler subscriptions drain it on a
// dedicated goroutine; channel subscriptions hand the queue to the caller.
type subscription struct {
	id         int
	eventTypes []EventType
	handler    Subscriber
	queue      chan Event
}

func (s *subscription) matches(event Event) bool {
	return len(s.eventTypes) == 0 || slices.Contains(s.eventTypes, event.Type)
}

// Bus is an in-memory event bus. Every subscriber sees events in publish
// order; a subscriber whose queue is full drops the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	eventChan   chan Event
	bufferSize  int
	ringBuffer  *RingBuffer
	closed      bool
	done        chan struct{}
	dispatched  chan struct{}
	handlers    sync.WaitGroup
}

// NewBus creates a new event bus.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	b := &Bus{
		subscribers: make(map[int]*subscription),
		eventChan:   make(chan Event, bufferSize),
		bufferSize:  bufferSize,
		ringBuffer:  NewRingBuffer(bufferSize),
		done:        make(chan struct{}),
		dispatched:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer close(b.dispatched)
	for {
		select {
		case event := <-b.eventChan:
			b.ringBuffer.Add(event)
			b.notifySubscribers(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) notifySubscribers(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.matches(event) {
			continue
		}
		select {
		case sub.queue <- event:
		default:
			slog.Warn("event dropped, subscriber queue full", "type", event.Type, "subscriber", sub.id)
		}
	}
}

// Publish sends an event to the bus without blocking. The event is dropped
// if the bus is closed or its queue is full.
func (b *Bus) Publish(event Event) {
	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.eventChan <- event:
	default:
		slog.Warn("event dropped, bus queue full", "type", event.Type)
	}
}

// PublishAsync sends an event with context cancellation support.
func (b *Bus) PublishAsync(ctx context.Context, event Event) error {
	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}

	select {
	case b.eventChan <- event:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a handler for specific event types. Handlers for one
// subscription run sequentially in publish order.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	sub := b.add(handler, make(chan Event, b.bufferSize), eventTypes)
	if sub == nil {
		return func() {}
	}

	b.handlers.Add(1)
	go func() {
		defer b.handlers.Done()
		for e := range sub.queue {
			sub.handler(e)
		}
	}()

	return func() { b.remove(sub.id) }
}

// SubscribeChan returns a channel that receives events. The channel is
// closed by the returned function or when the bus closes.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	sub := b.add(nil, ch, eventTypes)
	if sub == nil {
		close(ch)
		return ch, func() {}
	}
	return ch, func() { b.remove(sub.id) }
}

func (b *Bus) add(handler Subscriber, queue chan Event, eventTypes []EventType) *subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	id := b.nextID
	b.nextID++

	sub := &subscription{
		id:         id,
		eventTypes: eventTypes,
		handler:    handler,
		queue:      queue,
	}
	b.subscribers[id] = sub
	return sub
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.queue)
	}
}

// History returns recent events from the ring buffer.
func (b *Bus) History(limit int) []Event {
	return b.ringBuffer.Get(limit)
}

// Close shuts down the event bus and waits for running handlers to drain
// their queues. It must not be called from inside a handler.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	<-b.dispatched

	b.mu.Lock()
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.queue)
	}
	b.mu.Unlock()

	b.handlers.Wait()
}

// RingBuffer is a circular buffer for storing recent events.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

// NewRingBuffer creates a new ring buffer.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

func (r *RingBuffer) Add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = event
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Get returns up to n of the most recent events, oldest first.
func (r *RingBuffer) Get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Event, n)
	start := (r.pos - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result[i] = r.events[(start+i)%r.size]
	}
	return result
}

func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.count = 0
}
