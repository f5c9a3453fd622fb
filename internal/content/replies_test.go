package content

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dohr-michael/fakegpt/internal/demo"
)

func replyIDs(replies []QuickReply) []string {
	ids := make([]string, len(replies))
	for i, r := range replies {
		ids[i] = r.ID
	}
	return ids
}

func TestMainTopicReplies(t *testing.T) {
	c := MustDefault()
	replies := c.MainTopicReplies()

	if len(replies) != len(c.MainTopics()) {
		t.Fatalf("got %d replies, want one per topic", len(replies))
	}
	first := replies[0]
	want := QuickReply{
		ID:          "architecture",
		Label:       "My Overengineered Architecture",
		UserMessage: "Tell me about my overengineered architecture",
		Action:      Action{Type: ActionNavigate, TopicID: "architecture"},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("first reply mismatch (-want +got):\n%s", diff)
	}
}

func TestBackButton(t *testing.T) {
	c := MustDefault()

	main := c.BackButton("main")
	if main.ID != "back-main" || main.Label != "Back to Main Topics" || main.Action.Type != ActionReset {
		t.Errorf("BackButton(main) = %+v", main)
	}

	topic := c.BackButton("architecture")
	want := Action{Type: ActionNavigate, TopicID: "architecture"}
	if topic.ID != "back-architecture" || topic.Label != "Back to My Overengineered Architecture" || topic.Action != want {
		t.Errorf("BackButton(architecture) = %+v", topic)
	}
}

func TestSubtopicReplies(t *testing.T) {
	c := MustDefault()

	got := replyIDs(c.SubtopicReplies("architecture"))
	if diff := cmp.Diff([]string{"core", "features", "utils", "back-main"}, got); diff != "" {
		t.Errorf("architecture replies (-want +got):\n%s", diff)
	}
	core := c.SubtopicReplies("architecture")[0]
	if core.Action != (Action{Type: ActionNavigate, TopicID: "architecture", SubtopicID: "core"}) {
		t.Errorf("core action = %+v", core.Action)
	}

	if diff := cmp.Diff([]string{"back-main"}, replyIDs(c.SubtopicReplies("nonexistent"))); diff != "" {
		t.Errorf("unknown topic replies (-want +got):\n%s", diff)
	}
}

func TestSubtopicReplies_NetworkDemo(t *testing.T) {
	c := MustDefault()
	replies := c.SubtopicReplies(NetworkDemoTopic)

	if diff := cmp.Diff([]string{"demo-normal", "demo-slow", "demo-fail", "back-main"}, replyIDs(replies)); diff != "" {
		t.Fatalf("network demo replies (-want +got):\n%s", diff)
	}
	want := QuickReply{
		ID:          "demo-slow",
		Label:       "Slow Network",
		UserMessage: "Set network to slow",
		Action:      Action{Type: ActionNetworkDemo, Mode: demo.ModeSlow},
	}
	if diff := cmp.Diff(want, replies[1]); diff != "" {
		t.Errorf("slow reply mismatch (-want +got):\n%s", diff)
	}
}

func TestSubtopicNavigationReplies(t *testing.T) {
	c := MustDefault()
	got := replyIDs(c.SubtopicNavigationReplies("streaming"))
	if diff := cmp.Diff([]string{"back-streaming", "back-main"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestNetworkTestReplies(t *testing.T) {
	replies := MustDefault().NetworkTestReplies()
	if diff := cmp.Diff([]string{"test-network", "back-network", "back-main"}, replyIDs(replies)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if replies[0].Variant != "primary" || replies[0].Action.Type != ActionTestNetwork {
		t.Errorf("test button = %+v", replies[0])
	}
	if replies[1].Action != (Action{Type: ActionNavigate, TopicID: NetworkDemoTopic}) {
		t.Errorf("back-network action = %+v", replies[1].Action)
	}
}

func TestNetworkMessages(t *testing.T) {
	modes := []demo.Mode{demo.ModeNormal, demo.ModeSlow, demo.ModeFail}
	seen := map[string]bool{}
	for _, m := range modes {
		for _, msg := range []string{NetworkModeMessage(m), NetworkTestStartMessage(m), NetworkTestResultMessage(m, 3)} {
			if msg == "" || seen[msg] {
				t.Errorf("mode %s: empty or duplicated message %q", m, msg)
			}
			seen[msg] = true
		}
	}

	if got := NetworkTestResultMessage(demo.ModeFail, 3); !strings.Contains(got, "2 dramatic failures") || !strings.Contains(got, "attempt 3") {
		t.Errorf("fail result = %q", got)
	}
	if got := NetworkTestResultMessage(demo.ModeFail, 2); !strings.Contains(got, "1 dramatic failure,") {
		t.Errorf("fail result = %q", got)
	}
}
