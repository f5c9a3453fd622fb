package tui

import "github.com/dohr-michael/fakegpt/internal/events"

// eventMsg marks messages projected from backend events; each one re-arms
// the event listener.
type eventMsg interface {
	fromEvent()
}

// MessageCreatedMsg announces a new message in the conversation.
type MessageCreatedMsg struct {
	ID        string
	Role      string
	Content   string
	Streaming bool
}

// MessageDeletedMsg removes a message.
type MessageDeletedMsg struct {
	ID string
}

// ConversationClearedMsg resets the transcript.
type ConversationClearedMsg struct{}

// StreamStartMsg signals the beginning of a streamed bot message.
type StreamStartMsg struct {
	ID string
}

// StreamDeltaMsg carries an incremental text chunk.
type StreamDeltaMsg struct {
	ID      string
	Content string
	Index   int
}

// StreamEndMsg signals the end of a streamed bot message.
type StreamEndMsg struct {
	ID          string
	Interrupted bool
}

// AssistantMessageMsg carries a finished bot message and its quick replies.
type AssistantMessageMsg struct {
	ID           string
	Content      string
	Error        string
	Interrupted  bool
	QuickReplies []events.Reply
}

// DemoModeMsg reports the demo controller state.
type DemoModeMsg struct {
	Enabled  bool
	Scenario string
	Mode     string
}

// NetworkRequestMsg reports one simulated fetch attempt.
type NetworkRequestMsg struct {
	Operation string
	Attempt   int
	DelayMS   int64
	Slow      bool
	Failed    bool
	Error     string
}

// DisconnectedMsg signals the backend closed its event stream.
type DisconnectedMsg struct{}

// sendErrorMsg carries an error from an async backend call.
type sendErrorMsg struct {
	err error
}

func (MessageCreatedMsg) fromEvent()      {}
func (MessageDeletedMsg) fromEvent()      {}
func (ConversationClearedMsg) fromEvent() {}
func (StreamStartMsg) fromEvent()         {}
func (StreamDeltaMsg) fromEvent()         {}
func (StreamEndMsg) fromEvent()           {}
func (AssistantMessageMsg) fromEvent()    {}
func (DemoModeMsg) fromEvent()            {}
func (NetworkRequestMsg) fromEvent()      {}
