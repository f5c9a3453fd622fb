// Package demo holds the demo-mode state machine that lets a user force a
// network scenario and observe retries.
package demo

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
)

// Scenario is a forced network condition.
type Scenario string

const (
	ScenarioNone   Scenario = ""
	ScenarioNormal Scenario = "network-normal"
	ScenarioSlow   Scenario = "network-slow"
	ScenarioFail   Scenario = "network-fail"
)

// Mode is the short name of a scenario as shown to users.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeSlow   Mode = "slow"
	ModeFail   Mode = "fail"
)

// Mode returns the short mode for s. ScenarioNone maps to ModeNormal.
func (s Scenario) Mode() Mode {
	switch s {
	case ScenarioSlow:
		return ModeSlow
	case ScenarioFail:
		return ModeFail
	default:
		return ModeNormal
	}
}

// Scenario returns the scenario armed by mode m.
func (m Mode) Scenario() Scenario {
	return Scenario("network-" + string(m))
}

// ParseScenario accepts "network-slow" as well as the short "slow".
func ParseScenario(s string) (Scenario, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "network-") {
		s = "network-" + s
	}
	switch sc := Scenario(s); sc {
	case ScenarioNormal, ScenarioSlow, ScenarioFail:
		return sc, nil
	}
	return ScenarioNone, fmt.Errorf("unknown demo scenario %q", s)
}

// State is a snapshot of the controller.
type State struct {
	Active         bool     `json:"active"`
	Scenario       Scenario `json:"scenario,omitempty"`
	FailRetryCount int      `json:"fail_retry_count"`
	MaxRetries     int      `json:"max_retries"`
}

// Listener observes demo-mode transitions.
type Listener func(enabled bool, scenario Scenario)

// Rand is the source of the 1-3 failure budget.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type listenerEntry struct {
	id int
	fn Listener
}

// Controller is the demo-mode state holder. The zero value is not usable;
// call NewController.
type Controller struct {
	mu        sync.Mutex
	state     State
	rng       Rand
	listeners []listenerEntry
	nextID    int
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand injects the source used to roll the failure budget.
func WithRand(r Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// NewController returns an inactive controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{rng: globalRand{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enable arms scenario. Arming the fail scenario resets the retry count and
// rolls a new budget of 1 to 3 failures.
func (c *Controller) Enable(scenario Scenario) error {
	switch scenario {
	case ScenarioNormal, ScenarioSlow, ScenarioFail:
	default:
		return fmt.Errorf("unknown demo scenario %q", scenario)
	}

	c.mu.Lock()
	c.state.Active = true
	c.state.Scenario = scenario
	c.state.FailRetryCount = 0
	c.state.MaxRetries = 0
	if scenario == ScenarioFail {
		c.state.MaxRetries = c.rollLocked()
	}
	st := c.state
	c.mu.Unlock()

	slog.Debug("demo mode enabled", "scenario", scenario, "max_retries", st.MaxRetries)
	c.notify(st)
	return nil
}

// Disable clears the scenario and its counters. Listeners hear about it
// only if demo mode was on.
func (c *Controller) Disable() {
	c.mu.Lock()
	wasActive := c.state.Active
	c.state = State{}
	st := c.state
	c.mu.Unlock()

	if !wasActive {
		return
	}
	slog.Debug("demo mode disabled")
	c.notify(st)
}

// Toggle disables demo mode if scenario is already active, otherwise
// enables it.
func (c *Controller) Toggle(scenario Scenario) error {
	c.mu.Lock()
	same := c.state.Active && c.state.Scenario == scenario
	c.mu.Unlock()

	if same {
		c.Disable()
		return nil
	}
	return c.Enable(scenario)
}

// ResetRetryCount re-arms the failure budget without changing the scenario.
func (c *Controller) ResetRetryCount() {
	c.mu.Lock()
	c.state.FailRetryCount = 0
	if c.state.Active && c.state.Scenario == ScenarioFail {
		c.state.MaxRetries = c.rollLocked()
	}
	c.mu.Unlock()
}

func (c *Controller) rollLocked() int {
	return 1 + c.rng.IntN(3)
}

// ShouldSimulateFailure reports whether the next request in fail mode
// should fail.
func (c *Controller) ShouldSimulateFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failingLocked()
}

func (c *Controller) failingLocked() bool {
	return c.state.Active && c.state.Scenario == ScenarioFail &&
		c.state.FailRetryCount < c.state.MaxRetries
}

// ShouldSimulateDelay reports whether the slow scenario is armed.
func (c *Controller) ShouldSimulateDelay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Active && c.state.Scenario == ScenarioSlow
}

// IncrementRetryCount records one simulated failure.
func (c *Controller) IncrementRetryCount() {
	c.mu.Lock()
	c.state.FailRetryCount++
	c.mu.Unlock()
}

// TryFail consumes one unit of the failure budget. It reports whether the
// caller should fail and the failure count after the call.
func (c *Controller) TryFail() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.failingLocked() {
		return false, c.state.FailRetryCount
	}
	c.state.FailRetryCount++
	return true, c.state.FailRetryCount
}

// NetworkMode returns the active mode, ModeNormal when inactive.
func (c *Controller) NetworkMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Active {
		return ModeNormal
	}
	return c.state.Scenario.Mode()
}

// IsNormalMode reports whether requests pass through untouched by a forced
// scenario.
func (c *Controller) IsNormalMode() bool {
	return c.NetworkMode() == ModeNormal
}

// Active reports whether a scenario is armed.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Active
}

// Scenario returns the armed scenario or ScenarioNone.
func (c *Controller) Scenario() Scenario {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Scenario
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn and immediately calls it with the current state.
// fn is then called after every transition, in subscription order.
// A panicking listener is logged and does not affect other listeners.
func (c *Controller) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	st := c.state
	c.mu.Unlock()

	call(fn, st)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) notify(st State) {
	c.mu.Lock()
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		call(l.fn, st)
	}
}

func call(fn Listener, st State) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("demo mode listener panicked", "panic", r, "scenario", st.Scenario)
		}
	}()
	fn(st.Active, st.Scenario)
}
