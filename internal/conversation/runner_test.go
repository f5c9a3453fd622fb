package conversation

import (
	"testing"
	"time"

	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
)

func TestRunner_DrivesConversation(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRunner(f.conv, f.bus, f.demo)
	defer r.Close()

	f.conv.Greet()
	f.waitFor(t, "greeting", settled(1))

	f.bus.Publish(events.NewTypedEvent(events.SourceTUI, events.UserReplyPayload{ReplyID: "philosophy"}))
	st := f.waitFor(t, "topic", settled(3))
	if st.SelectedTopic != "philosophy" {
		t.Errorf("selected = %q", st.SelectedTopic)
	}

	f.bus.Publish(events.NewTypedEvent(events.SourceTUI, events.UserMessagePayload{Content: "and?"}))
	st = f.waitFor(t, "answer", settled(5))
	want, _ := f.catalog.Response("philosophy")
	if last(st).Content != want {
		t.Errorf("answer = %q", last(st).Content)
	}

	f.bus.Publish(events.NewTypedEvent(events.SourceTUI, events.ConversationClearPayload{}))
	f.waitFor(t, "cleared", func(st State) bool {
		return settled(1)(st) && st.Messages[0].Content == f.catalog.Greeting
	})
}

func TestRunner_DemoEvents(t *testing.T) {
	f := newFixture(t, nil)
	modes, unsubscribe := f.bus.SubscribeChan(16, events.EventDemoMode)
	defer unsubscribe()

	r := NewRunner(f.conv, f.bus, f.demo)
	defer r.Close()

	next := func() events.DemoModePayload {
		t.Helper()
		select {
		case e := <-modes:
			p, ok := events.GetDemoModePayload(e)
			if !ok {
				t.Fatalf("bad payload: %+v", e)
			}
			return p
		case <-time.After(time.Second):
			t.Fatal("no demo.mode event")
		}
		return events.DemoModePayload{}
	}

	// The current state is replayed on subscribe.
	if p := next(); p.Enabled || p.Mode != "normal" {
		t.Errorf("initial = %+v", p)
	}

	f.bus.Publish(events.NewTypedEvent(events.SourceWS, events.DemoSetPayload{Scenario: "slow"}))
	if p := next(); !p.Enabled || p.Scenario != string(demo.ScenarioSlow) || p.Mode != "slow" {
		t.Errorf("after slow = %+v", p)
	}

	f.bus.Publish(events.NewTypedEvent(events.SourceWS, events.DemoSetPayload{Scenario: "network-slow", Toggle: true}))
	if p := next(); p.Enabled {
		t.Errorf("toggle of the active scenario should disable, got %+v", p)
	}

	f.bus.Publish(events.NewTypedEvent(events.SourceWS, events.DemoSetPayload{Scenario: "chaos"}))
	f.bus.Publish(events.NewTypedEvent(events.SourceWS, events.DemoSetPayload{Scenario: "fail"}))
	if p := next(); !p.Enabled || p.Mode != "fail" {
		t.Errorf("unknown scenario should be ignored, then fail armed; got %+v", p)
	}
}

func TestApplyDemo(t *testing.T) {
	ctrl := demo.NewController(demo.WithRand(fixedRand(0)))

	if err := ApplyDemo(ctrl, "slow", false); err != nil || ctrl.Scenario() != demo.ScenarioSlow {
		t.Fatalf("enable slow: %v, %q", err, ctrl.Scenario())
	}
	if err := ApplyDemo(ctrl, "fail", true); err != nil || ctrl.Scenario() != demo.ScenarioFail {
		t.Fatalf("toggle to fail: %v, %q", err, ctrl.Scenario())
	}
	if err := ApplyDemo(ctrl, " OFF ", false); err != nil || ctrl.Active() {
		t.Fatalf("off: %v, active %v", err, ctrl.Active())
	}
	if err := ApplyDemo(ctrl, "chaos", false); err == nil {
		t.Error("unknown scenario should fail")
	}
}
