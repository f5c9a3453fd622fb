package events

import (
	"fmt"
	"sync/atomic"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Client → Bot (inputs)
	EventUserMessage       EventType = "user.message"
	EventUserReply         EventType = "user.reply"
	EventConversationClear EventType = "conversation.clear"
	EventDemoSet           EventType = "demo.set"

	// Bot → Client: conversation
	EventMessageCreated      EventType = "message.created"
	EventMessageDeleted      EventType = "message.deleted"
	EventConversationCleared EventType = "conversation.cleared"

	// Bot → Client: assistant
	EventAssistantStream  EventType = "assistant.stream"
	EventAssistantMessage EventType = "assistant.message"

	// Simulation
	EventDemoMode       EventType = "demo.mode"
	EventNetworkRequest EventType = "network.request"
)

// InputEvents are the event types a client publishes to drive the bot.
var InputEvents = []EventType{EventUserMessage, EventUserReply, EventConversationClear, EventDemoSet}

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceBot  EventSource = "bot"
	SourceDemo EventSource = "demo"
	SourceHub  EventSource = "hub"
	SourceWS   EventSource = "ws"
	SourceTUI  EventSource = "tui"
)

// Event represents an event in the system.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// eventIDCounter is used to generate sequential event IDs.
var eventIDCounter uint64

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

func generateEventID() string {
	seq := atomic.AddUint64(&eventIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq)
}
