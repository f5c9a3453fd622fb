// Package conversation turns user input into streamed bot messages backed by
// the mock API, the demo controller and the streaming engine.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dohr-michael/fakegpt/internal/content"
	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
	"github.com/dohr-michael/fakegpt/internal/mockapi"
	"github.com/dohr-michael/fakegpt/internal/netsim"
	"github.com/dohr-michael/fakegpt/internal/retry"
	"github.com/dohr-michael/fakegpt/internal/stream"
)

var (
	// ErrEmptyMessage rejects blank user input.
	ErrEmptyMessage = errors.New("empty message")
	// ErrUnknownReply is returned when no visible quick reply has the id.
	ErrUnknownReply = errors.New("unknown quick reply")
	// ErrClosed is returned once the conversation is closed.
	ErrClosed = errors.New("conversation closed")
)

// Role says who wrote a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one chat bubble.
type Message struct {
	ID           string               `json:"id"`
	Role         Role                 `json:"role"`
	Content      string               `json:"content"`
	Timestamp    time.Time            `json:"timestamp"`
	Streaming    bool                 `json:"streaming,omitempty"`
	Interrupted  bool                 `json:"interrupted,omitempty"`
	QuickReplies []content.QuickReply `json:"quick_replies,omitempty"`
	ShowReplies  bool                 `json:"show_replies,omitempty"`
	TopicID      string               `json:"topic_id,omitempty"`
}

// State is a copy of the conversation at one instant.
type State struct {
	Messages           []Message `json:"messages"`
	SelectedTopic      string    `json:"selected_topic,omitempty"`
	Loading            bool      `json:"loading"`
	StreamingMessageID string    `json:"streaming_message_id,omitempty"`
}

// Config holds the pauses and policies of the bot.
type Config struct {
	GreetingDelay time.Duration
	ResponseDelay time.Duration
	FastThreshold int // runes; longer messages stream at the fast speed
	Retry         retry.Policy
}

// DefaultConfig returns the stock pauses.
func DefaultConfig() Config {
	return Config{
		GreetingDelay: 500 * time.Millisecond,
		ResponseDelay: 300 * time.Millisecond,
		FastThreshold: 100,
		Retry:         retry.DefaultPolicy(),
	}
}

// Deps are the collaborators of a Conversation.
type Deps struct {
	Clock  clockwork.Clock
	Bus    *events.Bus
	API    *mockapi.Service
	Demo   *demo.Controller
	Engine *stream.Engine
}

// Conversation is the single chat session of the process.
type Conversation struct {
	clock   clockwork.Clock
	bus     *events.Bus
	api     *mockapi.Service
	catalog *content.Catalog
	demo    *demo.Controller
	engine  *stream.Engine
	cfg     atomic.Pointer[Config]

	mu     sync.Mutex
	state  State
	ctx    context.Context // cancelled by Clear and Close
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// New creates an empty conversation. Call Greet to start it.
func New(deps Deps, cfg Config) *Conversation {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conversation{
		clock:   deps.Clock,
		bus:     deps.Bus,
		api:     deps.API,
		catalog: deps.API.Catalog(),
		demo:    deps.Demo,
		engine:  deps.Engine,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.cfg.Store(&cfg)
	return c
}

// Config returns the configuration in effect.
func (c *Conversation) Config() Config { return *c.cfg.Load() }

// SetConfig replaces the configuration for subsequent messages.
func (c *Conversation) SetConfig(cfg Config) { c.cfg.Store(&cfg) }

// Catalog returns the static content the bot recites.
func (c *Conversation) Catalog() *content.Catalog { return c.catalog }

// Snapshot returns a deep copy of the state.
func (c *Conversation) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Messages = make([]Message, len(c.state.Messages))
	for i, m := range c.state.Messages {
		m.QuickReplies = slices.Clone(m.QuickReplies)
		st.Messages[i] = m
	}
	return st
}

// Greet posts the greeting after the greeting delay, unless the
// conversation already has messages by then.
func (c *Conversation) Greet() {
	c.after(c.Config().GreetingDelay, func(ctx context.Context) {
		c.mu.Lock()
		empty := len(c.state.Messages) == 0
		c.mu.Unlock()
		if empty {
			c.botMessage(ctx, c.catalog.Greeting, c.catalog.MainTopicReplies())
		}
	})
}

// SendMessage records free text from the user. With a topic selected the
// bot answers from that topic, otherwise it offers the main menu.
func (c *Conversation) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if err := c.userMessage(text); err != nil {
		return err
	}

	c.mu.Lock()
	topic := c.state.SelectedTopic
	c.mu.Unlock()

	if topic == "" {
		c.after(c.Config().ResponseDelay, func(ctx context.Context) {
			c.botMessage(ctx, c.catalog.MainTopicsText, c.catalog.MainTopicReplies())
		})
		return nil
	}
	c.after(c.Config().ResponseDelay, func(ctx context.Context) {
		c.answer(ctx, topic)
	})
	return nil
}

// SelectReply handles a quick reply currently offered by a bot message.
func (c *Conversation) SelectReply(id string) error {
	c.mu.Lock()
	var (
		reply content.QuickReply
		found bool
	)
	for i := len(c.state.Messages) - 1; i >= 0 && !found; i-- {
		m := c.state.Messages[i]
		if !m.ShowReplies {
			continue
		}
		for _, r := range m.QuickReplies {
			if r.ID == id {
				reply, found = r, true
				break
			}
		}
	}
	c.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownReply, id)
	}
	return c.HandleReply(reply)
}

// HandleReply records the reply as user input and performs its action.
func (c *Conversation) HandleReply(reply content.QuickReply) error {
	text := reply.UserMessage
	if text == "" {
		text = reply.Label
	}
	if err := c.userMessage(text); err != nil {
		return err
	}

	cfg := c.Config()
	a := reply.Action
	switch a.Type {
	case content.ActionNavigate:
		t, ok := c.catalog.Topic(a.TopicID)
		if !ok {
			slog.Debug("reply to unknown topic", "topic", a.TopicID)
			return nil
		}
		c.setSelectedTopic(t.ID)
		c.after(cfg.ResponseDelay, func(ctx context.Context) {
			if a.SubtopicID == "" {
				c.botMessage(ctx, t.MainContent, c.catalog.SubtopicReplies(t.ID))
				return
			}
			if s, ok := c.catalog.Subtopic(t.ID, a.SubtopicID); ok {
				c.botMessage(ctx, s.Content, c.catalog.SubtopicNavigationReplies(t.ID))
			}
		})

	case content.ActionNetworkDemo:
		if err := c.demo.Enable(a.Mode.Scenario()); err != nil {
			return err
		}
		c.after(cfg.ResponseDelay, func(ctx context.Context) {
			c.botMessage(ctx, content.NetworkModeMessage(a.Mode), c.catalog.NetworkTestReplies())
		})

	case content.ActionTestNetwork:
		c.after(cfg.ResponseDelay, c.testNetwork)

	case content.ActionReset:
		c.demo.Disable()
		c.setSelectedTopic("")
		c.after(cfg.ResponseDelay, func(ctx context.Context) {
			c.botMessage(ctx, c.catalog.MainTopicsText, c.catalog.MainTopicReplies())
		})

	default:
		return fmt.Errorf("unsupported reply action %q", a.Type)
	}
	return nil
}

// AddBotMessage streams text as a new bot message offering replies once it
// completes. It returns the message id, or "" once closed.
func (c *Conversation) AddBotMessage(text string, replies []content.QuickReply) string {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	id, _ := c.botMessage(ctx, text, replies)
	return id
}

// DeleteMessage removes a message, stopping its stream if it is the one
// being streamed.
func (c *Conversation) DeleteMessage(id string) bool {
	c.mu.Lock()
	i := slices.IndexFunc(c.state.Messages, func(m Message) bool { return m.ID == id })
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.state.Messages = slices.Delete(c.state.Messages, i, i+1)
	streaming := c.state.StreamingMessageID == id
	if streaming {
		c.state.StreamingMessageID = ""
	}
	c.mu.Unlock()

	if streaming {
		c.engine.Stop()
	}
	c.publish(events.MessageDeletedPayload{MessageID: id})
	return true
}

// Clear cancels pending work, stops streaming, disables demo mode and
// starts over with a fresh greeting.
func (c *Conversation) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.state = State{}
	c.mu.Unlock()

	c.engine.Stop()
	c.demo.Disable()
	c.publish(events.ConversationClearedPayload{})
	slog.Info("conversation cleared")
	c.Greet()
}

// Close stops streaming and waits for background work to finish.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.engine.Stop()
	c.wg.Wait()
}

// after runs fn on its own goroutine once d has elapsed, unless the
// conversation is cleared or closed first.
func (c *Conversation) after(d time.Duration, fn func(ctx context.Context)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if d > 0 {
			select {
			case <-ctx.Done():
				return
			case <-c.clock.After(d):
			}
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
}

func (c *Conversation) userMessage(text string) error {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: c.clock.Now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	for i := range c.state.Messages {
		c.state.Messages[i].ShowReplies = false
	}
	msg.TopicID = c.state.SelectedTopic
	c.state.Messages = append(c.state.Messages, msg)
	c.mu.Unlock()

	c.publish(events.MessageCreatedPayload{
		MessageID: msg.ID,
		Role:      string(RoleUser),
		Content:   msg.Content,
		TopicID:   msg.TopicID,
	})
	return nil
}

// botMessage appends a streaming message and starts the engine on it. It
// does nothing if ctx belongs to a cleared generation.
func (c *Conversation) botMessage(ctx context.Context, text string, replies []content.QuickReply) (string, *stream.Task) {
	msg := Message{
		ID:           uuid.NewString(),
		Role:         RoleBot,
		Timestamp:    c.clock.Now(),
		Streaming:    true,
		QuickReplies: replies,
	}

	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		return "", nil
	}
	msg.TopicID = c.state.SelectedTopic
	c.state.Messages = append(c.state.Messages, msg)
	c.state.StreamingMessageID = msg.ID
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	c.publish(events.MessageCreatedPayload{
		MessageID: msg.ID,
		Role:      string(RoleBot),
		Streaming: true,
		TopicID:   msg.TopicID,
	})
	c.publish(events.AssistantStreamPayload{MessageID: msg.ID, Phase: events.StreamPhaseStart})

	speed := stream.SpeedNormal
	if utf8.RuneCountInString(text) > c.Config().FastThreshold {
		speed = stream.SpeedFast
	}

	// Chunks arrive one at a time on the engine goroutine.
	index := 0
	task, ok := c.engine.Start(text,
		func(chunk string) {
			index++
			c.appendChunk(msg.ID, chunk, index)
		},
		func() { c.finish(msg.ID, false) },
		stream.WithSpeed(speed),
		stream.WithInterruptible(true),
	)
	if !ok {
		c.appendChunk(msg.ID, text, 1)
		c.finish(msg.ID, false)
		return msg.ID, nil
	}
	// Clear or Close may have stopped the engine before this task started.
	if ctx.Err() != nil {
		task.Cancel()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-task.Done()
		if errors.Is(task.Err(), stream.ErrStopped) {
			c.finish(msg.ID, true)
		}
	}()
	return msg.ID, task
}

func (c *Conversation) appendChunk(id, chunk string, index int) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.state.Messages[i].Content += chunk
	c.mu.Unlock()

	c.publish(events.AssistantStreamPayload{
		MessageID: id,
		Phase:     events.StreamPhaseDelta,
		Content:   chunk,
		Index:     index,
	})
}

// finish ends the stream of a message. Interrupted messages keep their
// partial content and offer no replies.
func (c *Conversation) finish(id string, interrupted bool) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 || !c.state.Messages[i].Streaming {
		c.mu.Unlock()
		return
	}
	m := &c.state.Messages[i]
	m.Streaming = false
	m.Interrupted = interrupted
	m.ShowReplies = !interrupted && len(m.QuickReplies) > 0
	if c.state.StreamingMessageID == id {
		c.state.StreamingMessageID = ""
	}
	done := *m
	c.mu.Unlock()

	c.publish(events.AssistantStreamPayload{
		MessageID:   id,
		Phase:       events.StreamPhaseEnd,
		Interrupted: interrupted,
	})
	payload := events.AssistantMessagePayload{
		MessageID:   id,
		Content:     done.Content,
		Interrupted: interrupted,
	}
	if done.ShowReplies {
		payload.QuickReplies = toEventReplies(done.QuickReplies)
	}
	c.publish(payload)
}

func (c *Conversation) indexLocked(id string) int {
	return slices.IndexFunc(c.state.Messages, func(m Message) bool { return m.ID == id })
}

func (c *Conversation) setSelectedTopic(id string) {
	c.mu.Lock()
	c.state.SelectedTopic = id
	c.mu.Unlock()
}

func (c *Conversation) setLoading(v bool) {
	c.mu.Lock()
	c.state.Loading = v
	c.mu.Unlock()
}

// answer fetches the free-text answer of a topic with retries.
func (c *Conversation) answer(ctx context.Context, topicID string) {
	c.setLoading(true)
	var resp mockapi.Response[string]
	err := retry.Do(ctx, c.clock, c.Config().Retry, func(ctx context.Context, attempt int) error {
		r, err := c.api.BotResponse(ctx, topicID)
		c.publishRequest("bot_response", attempt, r.Cached, r.Network, err)
		resp = r
		return err
	})
	c.setLoading(false)

	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		slog.Warn("bot response failed", "topic", topicID, "error", err)
		c.botMessage(ctx, content.ResponseErrorMessage(err), c.catalog.SubtopicReplies(topicID))
	default:
		c.botMessage(ctx, resp.Data, c.catalog.SubtopicReplies(topicID))
	}
}

// testNetwork announces the test, lets the announcement finish, then probes
// the simulated network through the retry policy and reports the outcome.
func (c *Conversation) testNetwork(ctx context.Context) {
	mode := c.demo.NetworkMode()
	_, task := c.botMessage(ctx, content.NetworkTestStartMessage(mode), nil)
	if task != nil {
		if err := task.Wait(ctx); err != nil {
			return
		}
	}

	c.setLoading(true)
	attempts := 0
	err := retry.Do(ctx, c.clock, c.Config().Retry, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		res, err := c.api.Probe(ctx)
		c.publishRequest("probe", attempt, false, res, err)
		return err
	})
	c.setLoading(false)

	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		slog.Warn("network test failed", "mode", mode, "attempts", attempts, "error", err)
		c.botMessage(ctx, content.NetworkTestErrorMessage(err), c.catalog.NetworkTestReplies())
	default:
		slog.Info("network test passed", "mode", mode, "attempts", attempts)
		c.botMessage(ctx, content.NetworkTestResultMessage(mode, attempts), c.catalog.NetworkTestReplies())
	}
}

func (c *Conversation) publishRequest(op string, attempt int, cached bool, res netsim.Result, err error) {
	p := events.NetworkRequestPayload{
		Operation: op,
		Attempt:   attempt + 1,
		Cached:    cached,
		Slow:      res.IsSlowConnection,
		DelayMS:   res.DelayMilliseconds(),
		Failed:    err != nil,
	}
	if err != nil {
		p.Error = err.Error()
	}
	c.publish(p)
}

func (c *Conversation) publish(p events.EventPayload) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.NewTypedEvent(events.SourceBot, p))
}

func toEventReplies(replies []content.QuickReply) []events.Reply {
	out := make([]events.Reply, len(replies))
	for i, r := range replies {
		out[i] = events.Reply{ID: r.ID, Label: r.Label, Variant: r.Variant}
	}
	return out
}
