// Package stream reveals already-known text incrementally, word by word for
// prose and line by line for fenced code, with punctuation-aware pacing.
package stream

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrStopped is reported by a task that was stopped or pre-empted before
// its last unit.
var ErrStopped = errors.New("stream stopped")

const (
	stateRunning int32 = iota
	stateCompleted
	stateStopped
)

// Task is the handle of one started stream.
type Task struct {
	id         uint64
	units      []unit
	onChunk    func(string)
	onComplete func()

	state   atomic.Int32
	emitted atomic.Int64
	stopCh  chan struct{}
	done    chan struct{}
}

func newTask(id uint64, units []unit, onChunk func(string), onComplete func()) *Task {
	return &Task{
		id:         id,
		units:      units,
		onChunk:    onChunk,
		onComplete: onComplete,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ID identifies the task within its engine.
func (t *Task) ID() uint64 { return t.id }

// Units is the number of chunks the task delivers when it runs to completion.
func (t *Task) Units() int { return len(t.units) }

// Emitted is the number of chunks delivered so far.
func (t *Task) Emitted() int { return int(t.emitted.Load()) }

// Done is closed once the task has completed or stopped and will deliver
// nothing more.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns ErrStopped if the task was stopped, nil otherwise.
func (t *Task) Err() error {
	if t.state.Load() == stateStopped {
		return ErrStopped
	}
	return nil
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the task. It is idempotent and never triggers completion.
func (t *Task) Cancel() {
	if t.state.CompareAndSwap(stateRunning, stateStopped) {
		close(t.stopCh)
	}
}

func (t *Task) running() bool { return t.state.Load() == stateRunning }

// wait pauses for d on clock. It returns false if the task is stopped first.
func (t *Task) wait(clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-t.stopCh:
			return false
		default:
			return true
		}
	}
	timer := clock.NewTimer(d)
	select {
	case <-timer.Chan():
		return true
	case <-t.stopCh:
		timer.Stop()
		return false
	}
}

// Engine drives at most one stream at a time.
type Engine struct {
	clock  clockwork.Clock
	cfg    atomic.Pointer[Config]
	jitter func() float64

	mu     sync.Mutex
	active *Task
	seq    uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithJitterSource replaces the source of the jitter added to plain words.
// fn must return values in [0,1).
func WithJitterSource(fn func() float64) EngineOption {
	return func(e *Engine) { e.jitter = fn }
}

// NewEngine creates an idle engine.
func NewEngine(clock clockwork.Clock, cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		clock:  clock,
		jitter: rand.Float64,
	}
	e.cfg.Store(&cfg)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the pacing in effect for new streams.
func (e *Engine) Config() Config { return *e.cfg.Load() }

// SetConfig changes the pacing of streams started afterwards.
func (e *Engine) SetConfig(cfg Config) { e.cfg.Store(&cfg) }

type startOptions struct {
	speed         Speed
	interruptible bool
}

// StartOption configures a single Start call.
type StartOption func(*startOptions)

// WithSpeed selects the speed class. Default SpeedNormal.
func WithSpeed(s Speed) StartOption {
	return func(o *startOptions) { o.speed = s }
}

// WithInterruptible controls whether the stream may pre-empt an active one.
// Default true.
func WithInterruptible(b bool) StartOption {
	return func(o *startOptions) { o.interruptible = b }
}

// Start begins revealing content. Chunks are passed to onChunk one at a time
// in content order; onComplete runs once after the last chunk unless the
// task is stopped. Both callbacks may be nil.
//
// If a stream is active and this one is not interruptible, Start does
// nothing and returns false. Otherwise the active stream is stopped without
// completing and the new one begins.
func (e *Engine) Start(content string, onChunk func(string), onComplete func(), opts ...StartOption) (*Task, bool) {
	o := startOptions{speed: SpeedNormal, interruptible: true}
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	prev := e.active
	if prev != nil && !o.interruptible {
		e.mu.Unlock()
		return nil, false
	}
	e.seq++
	t := newTask(e.seq, e.Config().plan(content, o.speed, e.jitter), onChunk, onComplete)
	e.active = t
	e.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	go e.run(t)
	return t, true
}

// Stop cancels the active stream, if any. Its completion callback is not
// invoked. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	t := e.active
	e.active = nil
	e.mu.Unlock()

	if t != nil {
		t.Cancel()
	}
}

// IsStreaming reports whether a stream is active.
func (e *Engine) IsStreaming() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Active returns the active task or nil.
func (e *Engine) Active() *Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) release(t *Task) {
	e.mu.Lock()
	if e.active == t {
		e.active = nil
	}
	e.mu.Unlock()
}

func (e *Engine) run(t *Task) {
	defer close(t.done)
	defer e.release(t)

	for _, u := range t.units {
		if !t.wait(e.clock, u.delay) {
			return
		}
		// The timer may have fired concurrently with a stop.
		if !t.running() {
			return
		}
		if t.onChunk != nil {
			t.onChunk(u.text)
		}
		t.emitted.Add(1)
	}

	// Idle before the completion callback so it can start a new stream.
	e.release(t)
	if t.state.CompareAndSwap(stateRunning, stateCompleted) && t.onComplete != nil {
		t.onComplete()
	}
}
