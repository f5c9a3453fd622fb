package conversation

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
)

// Runner drives a Conversation from input events on the bus and mirrors
// demo-mode transitions back onto it.
type Runner struct {
	conv *Conversation
	bus  *events.Bus
	demo *demo.Controller

	unsubscribe     func()
	unsubscribeDemo func()
}

// NewRunner subscribes to the input events. The current demo state is
// published immediately.
func NewRunner(conv *Conversation, bus *events.Bus, ctrl *demo.Controller) *Runner {
	r := &Runner{conv: conv, bus: bus, demo: ctrl}
	r.unsubscribeDemo = ctrl.Subscribe(r.publishDemo)
	r.unsubscribe = bus.Subscribe(r.handleEvent, events.InputEvents...)
	return r
}

func (r *Runner) handleEvent(event events.Event) {
	var err error
	switch event.Type {
	case events.EventUserMessage:
		if p, ok := events.GetUserMessagePayload(event); ok {
			err = r.conv.SendMessage(p.Content)
		}
	case events.EventUserReply:
		if p, ok := events.GetUserReplyPayload(event); ok {
			err = r.conv.SelectReply(p.ReplyID)
		}
	case events.EventConversationClear:
		r.conv.Clear()
	case events.EventDemoSet:
		if p, ok := events.GetDemoSetPayload(event); ok {
			err = ApplyDemo(r.demo, p.Scenario, p.Toggle)
		}
	}
	if err != nil && !errors.Is(err, ErrClosed) {
		slog.Warn("input event rejected", "type", event.Type, "source", event.Source, "error", err)
	}
}

func (r *Runner) publishDemo(enabled bool, scenario demo.Scenario) {
	r.bus.Publish(events.NewTypedEvent(events.SourceDemo, events.DemoModePayload{
		Enabled:  enabled,
		Scenario: string(scenario),
		Mode:     string(scenario.Mode()),
	}))
}

// Close stops listening. The conversation itself is left open.
func (r *Runner) Close() {
	r.unsubscribe()
	r.unsubscribeDemo()
}

// ApplyDemo arms, toggles or (for "" and "off") disables a scenario.
func ApplyDemo(ctrl *demo.Controller, scenario string, toggle bool) error {
	switch strings.ToLower(strings.TrimSpace(scenario)) {
	case "", "off", "none":
		ctrl.Disable()
		return nil
	}
	sc, err := demo.ParseScenario(scenario)
	if err != nil {
		return err
	}
	if toggle {
		return ctrl.Toggle(sc)
	}
	return ctrl.Enable(sc)
}
