// Package mockapi is the pretend backend: static content served through the
// response cache and the network simulator.
package mockapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/dohr-michael/fakegpt/internal/cache"
	"github.com/dohr-michael/fakegpt/internal/content"
	"github.com/dohr-michael/fakegpt/internal/netsim"
)

const (
	topicsKey         = "topics"
	botResponsePrefix = "bot_response_"

	opTopics      = "topics"
	opBotResponse = "bot_response"
	opProbe       = "probe"
)

// Response wraps fetched data with how it was obtained.
type Response[T any] struct {
	Data      T             `json:"data"`
	Found     bool          `json:"found"`
	Cached    bool          `json:"cached"`
	Network   netsim.Result `json:"network"`
	Timestamp time.Time     `json:"timestamp"`
}

// Service fetches topics and answers.
type Service struct {
	clock   clockwork.Clock
	catalog *content.Catalog
	sim     *netsim.Simulator
	limiter *RateLimiter

	topics    *cache.Cache[[]content.Topic]
	responses *cache.Cache[Response[string]]
}

// Option configures a Service.
type Option func(*Service)

// WithRateLimiter throttles requests that miss the cache.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// New creates a Service. cacheTTL and maxResponses configure the response
// cache; maxResponses <= 0 is unbounded.
func New(clock clockwork.Clock, catalog *content.Catalog, sim *netsim.Simulator, cacheTTL time.Duration, maxResponses int, opts ...Option) *Service {
	s := &Service{
		clock:     clock,
		catalog:   catalog,
		sim:       sim,
		topics:    cache.New[[]content.Topic](clock, cacheTTL, 1),
		responses: cache.New[Response[string]](clock, cacheTTL, maxResponses),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog exposes the static content behind the service.
func (s *Service) Catalog() *content.Catalog { return s.catalog }

// Topics fetches the topic list.
func (s *Service) Topics(ctx context.Context) (Response[[]content.Topic], error) {
	if topics, storedAt, ok := s.topics.Get(topicsKey); ok {
		return Response[[]content.Topic]{Data: topics, Found: true, Cached: true, Timestamp: storedAt}, nil
	}

	res, err := s.request(ctx, opTopics)
	if err != nil {
		return Response[[]content.Topic]{Network: res}, err
	}
	topics := s.catalog.MainTopics()
	s.topics.Put(topicsKey, topics)
	return Response[[]content.Topic]{Data: topics, Found: true, Network: res, Timestamp: s.clock.Now()}, nil
}

// BotResponse fetches the free-text answer for a topic. An unknown topic is
// not an error: Found is false and Data holds the fallback text.
func (s *Service) BotResponse(ctx context.Context, topicID string) (Response[string], error) {
	key := botResponsePrefix + topicID
	if r, storedAt, ok := s.responses.Get(key); ok {
		r.Cached = true
		r.Network = netsim.Result{}
		r.Timestamp = storedAt
		return r, nil
	}

	res, err := s.request(ctx, opBotResponse)
	if err != nil {
		return Response[string]{Network: res}, err
	}

	r := Response[string]{Network: res, Timestamp: s.clock.Now()}
	if text, ok := s.catalog.Response(topicID); ok {
		r.Data, r.Found = text, true
	} else {
		r.Data = s.catalog.FallbackResponse
	}
	s.responses.Put(key, r)
	return r, nil
}

// Probe makes one uncached simulated request, as a network test does.
func (s *Service) Probe(ctx context.Context) (netsim.Result, error) {
	return s.request(ctx, opProbe)
}

// ClearCache drops every cached topic list and answer.
func (s *Service) ClearCache() {
	s.topics.Clear()
	s.responses.Clear()
	slog.Debug("response cache cleared")
}

// request runs one simulated round trip: throttle, roll, then wait.
func (s *Service) request(ctx context.Context, op string) (netsim.Result, error) {
	if !s.limiter.Allow(op) {
		return netsim.Result{}, backoff.Permanent(fmt.Errorf("%s: %w", op, ErrRateLimited))
	}

	res, err := s.sim.SimulateRequest()
	if err != nil {
		return res, fmt.Errorf("%s: %w", op, err)
	}
	if res.Delay <= 0 {
		return res, nil
	}

	timer := s.clock.NewTimer(res.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return res, ctx.Err()
	case <-timer.Chan():
		return res, nil
	}
}
