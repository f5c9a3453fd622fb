package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/dohr-michael/fakegpt/internal/events"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		in   events.Event
		want tea.Msg
	}{
		{
			name: "message created",
			in:   events.NewTypedEvent(events.SourceBot, events.MessageCreatedPayload{MessageID: "m1", Role: "bot", Streaming: true}),
			want: MessageCreatedMsg{ID: "m1", Role: "bot", Streaming: true},
		},
		{
			name: "stream start",
			in:   events.NewTypedEvent(events.SourceBot, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseStart}),
			want: StreamStartMsg{ID: "m1"},
		},
		{
			name: "stream delta",
			in:   events.NewTypedEvent(events.SourceBot, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseDelta, Content: "hi", Index: 3}),
			want: StreamDeltaMsg{ID: "m1", Content: "hi", Index: 3},
		},
		{
			name: "stream end",
			in:   events.NewTypedEvent(events.SourceBot, events.AssistantStreamPayload{MessageID: "m1", Phase: events.StreamPhaseEnd, Interrupted: true}),
			want: StreamEndMsg{ID: "m1", Interrupted: true},
		},
		{
			name: "assistant message",
			in: events.NewTypedEvent(events.SourceBot, events.AssistantMessagePayload{
				MessageID:    "m1",
				Content:      "done",
				QuickReplies: []events.Reply{{ID: "back-main", Label: "Back to main topics"}},
			}),
			want: AssistantMessageMsg{ID: "m1", Content: "done", QuickReplies: []events.Reply{{ID: "back-main", Label: "Back to main topics"}}},
		},
		{
			name: "demo mode",
			in:   events.NewTypedEvent(events.SourceDemo, events.DemoModePayload{Enabled: true, Scenario: "network-slow", Mode: "slow"}),
			want: DemoModeMsg{Enabled: true, Scenario: "network-slow", Mode: "slow"},
		},
		{
			name: "network request",
			in:   events.NewTypedEvent(events.SourceBot, events.NetworkRequestPayload{Operation: "probe", Attempt: 1, DelayMS: 250, Slow: true}),
			want: NetworkRequestMsg{Operation: "probe", Attempt: 1, DelayMS: 250, Slow: true},
		},
		{
			name: "cleared",
			in:   events.NewTypedEvent(events.SourceBot, events.ConversationClearedPayload{}),
			want: ConversationClearedMsg{},
		},
		{
			name: "input events are not rendered",
			in:   events.NewTypedEvent(events.SourceTUI, events.UserReplyPayload{ReplyID: "architecture"}),
			want: nil,
		},
		{
			name: "unknown stream phase",
			in:   events.NewEvent(events.EventAssistantStream, events.SourceBot, map[string]any{"phase": "bogus"}),
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Project(tt.in)); diff != "" {
				t.Errorf("Project mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocalBackend_PublishesInputsAndForwardsOutputs(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()

	inputs, unsub := bus.SubscribeChan(16, events.InputEvents...)
	defer unsub()

	b := NewLocalBackend(bus)
	defer b.Close()

	if err := b.SetDemo("slow", true); err != nil {
		t.Fatal(err)
	}
	e := <-inputs
	p, ok := events.GetDemoSetPayload(e)
	if !ok || p.Scenario != "slow" || !p.Toggle || e.Source != events.SourceTUI {
		t.Fatalf("input event = %+v", e)
	}

	bus.Publish(events.NewTypedEvent(events.SourceBot, events.ConversationClearedPayload{}))
	if got := <-b.Events(); got.Type != events.EventConversationCleared {
		t.Errorf("forwarded %s", got.Type)
	}
}
