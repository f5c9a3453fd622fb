// Package netsim decides, per simulated request, whether to add latency or
// fail, following the demo-mode scenario or ambient probabilities.
package netsim

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dohr-michael/fakegpt/internal/demo"
)

// ErrSimulatedFailure is matched by every simulated network failure.
var ErrSimulatedFailure = errors.New("simulated network failure")

// FailureError describes one simulated failure.
type FailureError struct {
	Result  Result
	Ambient bool // rolled by the ambient path rather than forced by demo mode
}

func (e *FailureError) Error() string {
	if e.Ambient {
		return ErrSimulatedFailure.Error() + " (random)"
	}
	return fmt.Sprintf("%s (demo attempt %d)", ErrSimulatedFailure, e.Result.RetryCount)
}

func (e *FailureError) Unwrap() error { return ErrSimulatedFailure }

// Result is the outcome of one simulated request.
type Result struct {
	IsSlowConnection bool          `json:"is_slow_connection"`
	Delay            time.Duration `json:"-"`
	WillFail         bool          `json:"will_fail"`
	RetryCount       int           `json:"retry_count"`
}

// DelayMilliseconds returns Delay in whole milliseconds.
func (r Result) DelayMilliseconds() int64 { return r.Delay.Milliseconds() }

// Config holds the simulation probabilities and ranges.
type Config struct {
	BaseDelay  time.Duration
	SlowChance float64
	FailChance float64
	SlowMin    time.Duration
	SlowMax    time.Duration
	// Ambient enables random slow/fail rolls while demo mode is off.
	Ambient bool
}

// DefaultConfig returns the stock probabilities.
func DefaultConfig() Config {
	return Config{
		BaseDelay:  100 * time.Millisecond,
		SlowChance: 0.4,
		FailChance: 0.2,
		SlowMin:    time.Second,
		SlowMax:    3 * time.Second,
		Ambient:    true,
	}
}

// Rand is the randomness used by the simulator.
type Rand interface {
	Float64() float64
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Float64() float64     { return rand.Float64() }
func (globalRand) Int64N(n int64) int64 { return rand.Int64N(n) }

// Simulator produces a Result per request.
type Simulator struct {
	demo *demo.Controller
	cfg  atomic.Pointer[Config]

	mu  sync.Mutex // guards rng
	rng Rand
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand injects a (seedable) random source.
func WithRand(r Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// New creates a Simulator reading scenarios from ctrl.
func New(ctrl *demo.Controller, cfg Config, opts ...Option) *Simulator {
	s := &Simulator{demo: ctrl, rng: globalRand{}}
	s.cfg.Store(&cfg)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration in effect.
func (s *Simulator) Config() Config { return *s.cfg.Load() }

// SetConfig swaps the configuration for subsequent requests.
func (s *Simulator) SetConfig(cfg Config) { s.cfg.Store(&cfg) }

// SimulateRequest decides the fate of one request. A failure returns the
// Result with WillFail set and a *FailureError; the caller applies no delay
// in that case.
func (s *Simulator) SimulateRequest() (Result, error) {
	cfg := s.Config()
	st := s.demo.Snapshot()

	if !st.Active {
		if cfg.Ambient {
			return s.ambient(cfg)
		}
		return Result{Delay: cfg.BaseDelay}, nil
	}

	switch st.Scenario {
	case demo.ScenarioSlow:
		return Result{IsSlowConnection: true, Delay: s.slowDelay(cfg)}, nil

	case demo.ScenarioFail:
		fail, count := s.demo.TryFail()
		if fail {
			res := Result{WillFail: true, RetryCount: count}
			slog.Debug("simulated failure", "mode", "demo", "attempt", count)
			return res, &FailureError{Result: res}
		}
		// Budget spent: the heroic recovery.
		return Result{Delay: cfg.BaseDelay, RetryCount: count}, nil

	default:
		return Result{Delay: cfg.BaseDelay}, nil
	}
}

// ambient rolls slowness and failure independently. Failure is decided
// before any delay applies.
func (s *Simulator) ambient(cfg Config) (Result, error) {
	s.mu.Lock()
	slow := s.rng.Float64() < cfg.SlowChance
	fail := s.rng.Float64() < cfg.FailChance
	s.mu.Unlock()

	if fail {
		res := Result{IsSlowConnection: slow, WillFail: true}
		slog.Debug("simulated failure", "mode", "ambient", "slow", slow)
		return res, &FailureError{Result: res, Ambient: true}
	}
	if slow {
		return Result{IsSlowConnection: true, Delay: s.slowDelay(cfg)}, nil
	}
	return Result{Delay: cfg.BaseDelay}, nil
}

// slowDelay samples uniformly from [SlowMin, SlowMax).
func (s *Simulator) slowDelay(cfg Config) time.Duration {
	span := int64(cfg.SlowMax - cfg.SlowMin)
	if span <= 0 {
		return cfg.SlowMin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cfg.SlowMin + time.Duration(s.rng.Int64N(span))
}
