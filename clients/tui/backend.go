package tui

import (
	"encoding/json"
	"log/slog"

	wsclient "github.com/dohr-michael/fakegpt/clients/ws"
	"github.com/dohr-michael/fakegpt/internal/events"
	wsprotocol "github.com/dohr-michael/fakegpt/internal/gateway/ws"
)

// Backend is the conversation the TUI drives. Events() is closed when the
// backend goes away.
type Backend interface {
	SendMessage(content string) error
	SelectReply(id string) error
	SetDemo(scenario string, toggle bool) error
	Clear() error
	Events() <-chan events.Event
	Close() error
}

// outputEvents are the bus events the TUI renders.
var outputEvents = []events.EventType{
	events.EventMessageCreated,
	events.EventMessageDeleted,
	events.EventConversationCleared,
	events.EventAssistantStream,
	events.EventAssistantMessage,
	events.EventDemoMode,
	events.EventNetworkRequest,
}

// LocalBackend talks to an in-process conversation through its event bus.
type LocalBackend struct {
	bus   *events.Bus
	ch    <-chan events.Event
	unsub func()
}

// NewLocalBackend subscribes to bus. It must be created before the
// conversation starts so the greeting is not missed.
func NewLocalBackend(bus *events.Bus) *LocalBackend {
	ch, unsub := bus.SubscribeChan(1024, outputEvents...)
	return &LocalBackend{bus: bus, ch: ch, unsub: unsub}
}

func (b *LocalBackend) publish(p events.EventPayload) error {
	b.bus.Publish(events.NewTypedEvent(events.SourceTUI, p))
	return nil
}

func (b *LocalBackend) SendMessage(content string) error {
	return b.publish(events.UserMessagePayload{Content: content})
}

func (b *LocalBackend) SelectReply(id string) error {
	return b.publish(events.UserReplyPayload{ReplyID: id})
}

func (b *LocalBackend) SetDemo(scenario string, toggle bool) error {
	return b.publish(events.DemoSetPayload{Scenario: scenario, Toggle: toggle})
}

func (b *LocalBackend) Clear() error {
	return b.publish(events.ConversationClearPayload{})
}

func (b *LocalBackend) Events() <-chan events.Event { return b.ch }

func (b *LocalBackend) Close() error {
	b.unsub()
	return nil
}

// RemoteBackend talks to a gateway over WebSocket.
type RemoteBackend struct {
	client *wsclient.Client
	ch     chan events.Event
}

// NewRemoteBackend starts reading frames from client.
func NewRemoteBackend(client *wsclient.Client) *RemoteBackend {
	b := &RemoteBackend{client: client, ch: make(chan events.Event, 1024)}
	go b.readLoop()
	return b
}

func (b *RemoteBackend) readLoop() {
	defer close(b.ch)
	for {
		f, err := b.client.ReadFrame()
		if err != nil {
			slog.Debug("gateway read", "error", err)
			return
		}
		switch f.Type {
		case wsprotocol.FrameTypeEvent:
			var e events.Event
			if err := json.Unmarshal(f.Payload, &e); err != nil {
				slog.Debug("decode event frame", "error", err)
				continue
			}
			b.ch <- e
		case wsprotocol.FrameTypeResponse:
			if f.OK != nil && !*f.OK {
				slog.Debug("gateway rejected request", "id", f.ID, "error", f.Error)
			}
		}
	}
}

func (b *RemoteBackend) SendMessage(content string) error {
	_, err := b.client.SendMessage(content)
	return err
}

func (b *RemoteBackend) SelectReply(id string) error {
	_, err := b.client.SelectReply(id)
	return err
}

func (b *RemoteBackend) SetDemo(scenario string, toggle bool) error {
	_, err := b.client.SetDemo(scenario, toggle)
	return err
}

func (b *RemoteBackend) Clear() error {
	_, err := b.client.Clear()
	return err
}

func (b *RemoteBackend) Events() <-chan events.Event { return b.ch }

func (b *RemoteBackend) Close() error {
	return b.client.Close()
}
