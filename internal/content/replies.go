package content

import (
	"strings"

	"github.com/dohr-michael/fakegpt/internal/demo"
)

// ActionType says what selecting a quick reply does.
type ActionType string

const (
	ActionNavigate    ActionType = "navigate"
	ActionNetworkDemo ActionType = "network-demo"
	ActionTestNetwork ActionType = "test-network"
	ActionReset       ActionType = "reset"
)

// Action is attached to a quick reply.
type Action struct {
	Type       ActionType `json:"type" yaml:"type"`
	TopicID    string     `json:"topic_id,omitempty" yaml:"topic_id,omitempty"`
	SubtopicID string     `json:"subtopic_id,omitempty" yaml:"subtopic_id,omitempty"`
	Mode       demo.Mode  `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// QuickReply is a button offered under a bot message.
type QuickReply struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	UserMessage string `json:"user_message,omitempty" yaml:"user_message,omitempty"`
	Variant     string `json:"variant,omitempty" yaml:"variant,omitempty"`
	Action      Action `json:"action" yaml:"action"`
}

// NetworkDemoTopic is the topic whose menu switches network modes.
const NetworkDemoTopic = "network-demo"

// MainTopicReplies offers one reply per topic.
func (c *Catalog) MainTopicReplies() []QuickReply {
	replies := make([]QuickReply, 0, len(c.Topics))
	for _, t := range c.Topics {
		replies = append(replies, QuickReply{
			ID:          t.ID,
			Label:       t.Label,
			UserMessage: "Tell me about " + strings.ToLower(t.Label),
			Action:      Action{Type: ActionNavigate, TopicID: t.ID},
		})
	}
	return replies
}

// BackButton returns to a topic, or to the main menu when target is "main".
func (c *Catalog) BackButton(target string) QuickReply {
	if target == "main" {
		return QuickReply{
			ID:          "back-main",
			Label:       "Back to Main Topics",
			UserMessage: "Back to main topics",
			Action:      Action{Type: ActionReset},
		}
	}
	label := target
	if t, ok := c.Topic(target); ok {
		label = t.Label
	}
	return QuickReply{
		ID:          "back-" + target,
		Label:       "Back to " + label,
		UserMessage: "Back to " + strings.ToLower(label),
		Action:      Action{Type: ActionNavigate, TopicID: target},
	}
}

// SubtopicReplies lists a topic's subtopics followed by a way back. The
// network demo topic offers the three network modes instead.
func (c *Catalog) SubtopicReplies(topicID string) []QuickReply {
	t, ok := c.Topic(topicID)
	if !ok {
		return []QuickReply{c.BackButton("main")}
	}

	var replies []QuickReply
	for _, s := range t.Subtopics {
		replies = append(replies, QuickReply{
			ID:          s.ID,
			Label:       s.Label,
			UserMessage: "Tell me about " + strings.ToLower(s.Label),
			Action:      Action{Type: ActionNavigate, TopicID: topicID, SubtopicID: s.ID},
		})
	}
	if topicID == NetworkDemoTopic {
		for _, m := range []demo.Mode{demo.ModeNormal, demo.ModeSlow, demo.ModeFail} {
			title := strings.ToUpper(string(m[:1])) + string(m[1:])
			replies = append(replies, QuickReply{
				ID:          "demo-" + string(m),
				Label:       title + " Network",
				UserMessage: "Set network to " + string(m),
				Action:      Action{Type: ActionNetworkDemo, Mode: m},
			})
		}
	}
	return append(replies, c.BackButton("main"))
}

// SubtopicNavigationReplies is shown under a subtopic answer.
func (c *Catalog) SubtopicNavigationReplies(topicID string) []QuickReply {
	return []QuickReply{c.BackButton(topicID), c.BackButton("main")}
}

// NetworkTestReplies is shown after a network mode change or test.
func (c *Catalog) NetworkTestReplies() []QuickReply {
	return []QuickReply{
		{
			ID:          "test-network",
			Label:       "Test Network",
			UserMessage: "Test the current network mode",
			Variant:     "primary",
			Action:      Action{Type: ActionTestNetwork},
		},
		{
			ID:          "back-network",
			Label:       "Back to Network Demo",
			UserMessage: "Back to network demo",
			Action:      Action{Type: ActionNavigate, TopicID: NetworkDemoTopic},
		},
		c.BackButton("main"),
	}
}
