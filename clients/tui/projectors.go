package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/fakegpt/internal/events"
)

// Project converts a bus event into a typed tea.Msg.
// Returns nil for events that don't map to a TUI message.
func Project(e events.Event) tea.Msg {
	switch e.Type {
	case events.EventMessageCreated:
		return projectMessageCreated(e)
	case events.EventMessageDeleted:
		p, ok := events.ExtractPayload[events.MessageDeletedPayload](e)
		if !ok {
			return nil
		}
		return MessageDeletedMsg{ID: p.MessageID}
	case events.EventConversationCleared:
		return ConversationClearedMsg{}
	case events.EventAssistantStream:
		return projectStream(e)
	case events.EventAssistantMessage:
		return projectAssistantMessage(e)
	case events.EventDemoMode:
		p, ok := events.GetDemoModePayload(e)
		if !ok {
			return nil
		}
		return DemoModeMsg{Enabled: p.Enabled, Scenario: p.Scenario, Mode: p.Mode}
	case events.EventNetworkRequest:
		return projectNetworkRequest(e)
	default:
		return nil
	}
}

func projectMessageCreated(e events.Event) tea.Msg {
	p, ok := events.GetMessageCreatedPayload(e)
	if !ok {
		return nil
	}
	return MessageCreatedMsg{
		ID:        p.MessageID,
		Role:      p.Role,
		Content:   p.Content,
		Streaming: p.Streaming,
	}
}

func projectStream(e events.Event) tea.Msg {
	p, ok := events.GetAssistantStreamPayload(e)
	if !ok {
		return nil
	}
	switch p.Phase {
	case events.StreamPhaseStart:
		return StreamStartMsg{ID: p.MessageID}
	case events.StreamPhaseDelta:
		return StreamDeltaMsg{ID: p.MessageID, Content: p.Content, Index: p.Index}
	case events.StreamPhaseEnd:
		return StreamEndMsg{ID: p.MessageID, Interrupted: p.Interrupted}
	default:
		return nil
	}
}

func projectAssistantMessage(e events.Event) tea.Msg {
	p, ok := events.GetAssistantMessagePayload(e)
	if !ok {
		return nil
	}
	return AssistantMessageMsg{
		ID:           p.MessageID,
		Content:      p.Content,
		Error:        p.Error,
		Interrupted:  p.Interrupted,
		QuickReplies: p.QuickReplies,
	}
}

func projectNetworkRequest(e events.Event) tea.Msg {
	p, ok := events.GetNetworkRequestPayload(e)
	if !ok {
		return nil
	}
	return NetworkRequestMsg{
		Operation: p.Operation,
		Attempt:   p.Attempt,
		DelayMS:   p.DelayMS,
		Slow:      p.Slow,
		Failed:    p.Failed,
		Error:     p.Error,
	}
}
