// Package app wires the FakeGPT components together from a config.
package app

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/dohr-michael/fakegpt/internal/config"
	"github.com/dohr-michael/fakegpt/internal/content"
	"github.com/dohr-michael/fakegpt/internal/conversation"
	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
	"github.com/dohr-michael/fakegpt/internal/mockapi"
	"github.com/dohr-michael/fakegpt/internal/netsim"
	"github.com/dohr-michael/fakegpt/internal/retry"
	"github.com/dohr-michael/fakegpt/internal/stream"
)

// App owns every long-lived component of a running bot.
type App struct {
	Clock        clockwork.Clock
	Bus          *events.Bus
	Catalog      *content.Catalog
	Demo         *demo.Controller
	Simulator    *netsim.Simulator
	Engine       *stream.Engine
	API          *mockapi.Service
	Conversation *conversation.Conversation
	Runner       *conversation.Runner
}

// Option customises the components built by New.
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	demoRand demo.Rand
	simRand  netsim.Rand
}

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRand seeds the demo budget and simulator rolls.
func WithRand(d demo.Rand, s netsim.Rand) Option {
	return func(o *options) { o.demoRand, o.simRand = d, s }
}

// New builds the components described by cfg. The conversation is not
// greeted yet; call Start.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	catalog, err := content.Load(cfg.Content.Overlays)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	var demoOpts []demo.Option
	if o.demoRand != nil {
		demoOpts = append(demoOpts, demo.WithRand(o.demoRand))
	}
	ctrl := demo.NewController(demoOpts...)

	var simOpts []netsim.Option
	if o.simRand != nil {
		simOpts = append(simOpts, netsim.WithRand(o.simRand))
	}
	sim := netsim.New(ctrl, SimulatorConfig(cfg), simOpts...)

	engine := stream.NewEngine(o.clock, StreamConfig(cfg))

	var apiOpts []mockapi.Option
	if rl := cfg.Network.RateLimit; rl.Requests > 0 {
		apiOpts = append(apiOpts, mockapi.WithRateLimiter(mockapi.NewRateLimiter(o.clock, rl.Requests, rl.Window.Duration())))
	}
	api := mockapi.New(o.clock, catalog, sim, cfg.Cache.Duration.Duration(), cfg.Cache.MaxResponses, apiOpts...)

	bus := events.NewBus(cfg.Events.BufferSize)
	conv := conversation.New(conversation.Deps{
		Clock:  o.clock,
		Bus:    bus,
		API:    api,
		Demo:   ctrl,
		Engine: engine,
	}, ConversationConfig(cfg))

	return &App{
		Clock:        o.clock,
		Bus:          bus,
		Catalog:      catalog,
		Demo:         ctrl,
		Simulator:    sim,
		Engine:       engine,
		API:          api,
		Conversation: conv,
	}, nil
}

// Start connects the conversation to the bus and greets.
func (a *App) Start() {
	if a.Runner != nil {
		return
	}
	a.Runner = conversation.NewRunner(a.Conversation, a.Bus, a.Demo)
	a.Conversation.Greet()
	slog.Info("fakegpt started", "topics", len(a.Catalog.MainTopics()))
}

// ApplyConfig swaps the tunable settings of a running app. Content,
// cache and bus sizing need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Engine.SetConfig(StreamConfig(cfg))
	a.Simulator.SetConfig(SimulatorConfig(cfg))
	a.Conversation.SetConfig(ConversationConfig(cfg))
	slog.Info("config applied")
}

// Close stops the runner, the conversation and the bus, in that order.
func (a *App) Close() {
	if a.Runner != nil {
		a.Runner.Close()
	}
	a.Conversation.Close()
	a.Bus.Close()
}

// StreamConfig extracts the pacing settings.
func StreamConfig(cfg *config.Config) stream.Config {
	s := cfg.Streaming
	return stream.Config{
		Slow:           s.Slow.Duration(),
		Normal:         s.Normal.Duration(),
		Fast:           s.Fast.Duration(),
		SentencePause:  s.SentencePause,
		ClausePause:    s.ClausePause,
		LongWordFactor: s.LongWordFactor,
		LongWordLength: s.LongWordLength,
		Jitter:         s.Jitter.Duration(),
		CodeLineFactor: s.CodeLineFactor,
	}
}

// SimulatorConfig extracts the network simulation settings.
func SimulatorConfig(cfg *config.Config) netsim.Config {
	n := cfg.Network
	return netsim.Config{
		BaseDelay:  n.BaseDelay.Duration(),
		SlowChance: n.SlowChance,
		FailChance: n.FailChance,
		SlowMin:    n.SlowDelay.Min.Duration(),
		SlowMax:    n.SlowDelay.Max.Duration(),
		Ambient:    n.Ambient,
	}
}

// ConversationConfig extracts the bot pauses and retry policy.
func ConversationConfig(cfg *config.Config) conversation.Config {
	return conversation.Config{
		GreetingDelay: cfg.Conversation.GreetingDelay.Duration(),
		ResponseDelay: cfg.Conversation.ResponseDelay.Duration(),
		FastThreshold: cfg.Streaming.FastThreshold,
		Retry: retry.Policy{
			MaxRetries: cfg.Network.RetryAttempts,
			BaseDelay:  cfg.Network.RetryBaseDelay.Duration(),
			MaxDelay:   cfg.Network.RetryMaxDelay.Duration(),
		},
	}
}
