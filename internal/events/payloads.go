package events

import (
	"encoding/json"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// INPUT EVENTS
// =============================================================================

type UserMessagePayload struct {
	Content string `json:"content"`
}

func (UserMessagePayload) EventType() EventType { return EventUserMessage }

// UserReplyPayload selects a quick reply offered by the last bot message.
type UserReplyPayload struct {
	ReplyID string `json:"reply_id"`
}

func (UserReplyPayload) EventType() EventType { return EventUserReply }

type ConversationClearPayload struct{}

func (ConversationClearPayload) EventType() EventType { return EventConversationClear }

// DemoSetPayload arms a demo scenario. An empty scenario or "off" disables
// demo mode. With Toggle set, an already active scenario is disabled instead.
type DemoSetPayload struct {
	Scenario string `json:"scenario"`
	Toggle   bool   `json:"toggle,omitempty"`
}

func (DemoSetPayload) EventType() EventType { return EventDemoSet }

// =============================================================================
// CONVERSATION EVENTS
// =============================================================================

// Reply is the client-facing view of a quick reply.
type Reply struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Variant string `json:"variant,omitempty"`
}

type MessageCreatedPayload struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Streaming bool   `json:"streaming,omitempty"`
	TopicID   string `json:"topic_id,omitempty"`
}

func (MessageCreatedPayload) EventType() EventType { return EventMessageCreated }

type MessageDeletedPayload struct {
	MessageID string `json:"message_id"`
}

func (MessageDeletedPayload) EventType() EventType { return EventMessageDeleted }

type ConversationClearedPayload struct{}

func (ConversationClearedPayload) EventType() EventType { return EventConversationCleared }

// =============================================================================
// ASSISTANT EVENTS
// =============================================================================

type StreamPhase string

const (
	StreamPhaseStart StreamPhase = "start"
	StreamPhaseDelta StreamPhase = "delta"
	StreamPhaseEnd   StreamPhase = "end"
)

type AssistantStreamPayload struct {
	MessageID   string      `json:"message_id"`
	Phase       StreamPhase `json:"phase"`
	Content     string      `json:"content"`
	Index       int         `json:"index"`
	Interrupted bool        `json:"interrupted,omitempty"`
}

func (AssistantStreamPayload) EventType() EventType { return EventAssistantStream }

// AssistantMessagePayload carries a finished bot message and the replies it offers.
type AssistantMessagePayload struct {
	MessageID    string  `json:"message_id"`
	Content      string  `json:"content"`
	Error        string  `json:"error,omitempty"`
	Interrupted  bool    `json:"interrupted,omitempty"`
	QuickReplies []Reply `json:"quick_replies,omitempty"`
}

func (AssistantMessagePayload) EventType() EventType { return EventAssistantMessage }

// =============================================================================
// SIMULATION EVENTS
// =============================================================================

type DemoModePayload struct {
	Enabled  bool   `json:"enabled"`
	Scenario string `json:"scenario,omitempty"`
	Mode     string `json:"mode"`
}

func (DemoModePayload) EventType() EventType { return EventDemoMode }

// NetworkRequestPayload reports one simulated fetch attempt.
type NetworkRequestPayload struct {
	Operation string `json:"operation"`
	Attempt   int    `json:"attempt"`
	Cached    bool   `json:"cached,omitempty"`
	Slow      bool   `json:"slow,omitempty"`
	DelayMS   int64  `json:"delay_ms"`
	Failed    bool   `json:"failed,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (NetworkRequestPayload) EventType() EventType { return EventNetworkRequest }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return NewEvent(payload.EventType(), source, toMap(payload))
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetUserMessagePayload(e Event) (UserMessagePayload, bool) {
	return ExtractPayload[UserMessagePayload](e)
}

func GetUserReplyPayload(e Event) (UserReplyPayload, bool) {
	return ExtractPayload[UserReplyPayload](e)
}

func GetDemoSetPayload(e Event) (DemoSetPayload, bool) {
	return ExtractPayload[DemoSetPayload](e)
}

func GetMessageCreatedPayload(e Event) (MessageCreatedPayload, bool) {
	return ExtractPayload[MessageCreatedPayload](e)
}

func GetAssistantStreamPayload(e Event) (AssistantStreamPayload, bool) {
	return ExtractPayload[AssistantStreamPayload](e)
}

func GetAssistantMessagePayload(e Event) (AssistantMessagePayload, bool) {
	return ExtractPayload[AssistantMessagePayload](e)
}

func GetDemoModePayload(e Event) (DemoModePayload, bool) {
	return ExtractPayload[DemoModePayload](e)
}

func GetNetworkRequestPayload(e Event) (NetworkRequestPayload, bool) {
	return ExtractPayload[NetworkRequestPayload](e)
}
