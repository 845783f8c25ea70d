// Package connection tracks whether a wireless client is attached and whether
// the settle delay after attach has elapsed.
//
// Transitions:
//
//	Disconnected --Attach--> Settling --settle elapsed--> Streaming
//	any          --Detach--> Disconnected
//
// Every Attach runs the reset hooks, which clear the stream buffer and the
// statistics. State reads are lock-free.
package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/pendant-go/internal/logger"
)

// Machine is the connection state machine
type Machine struct {
	state atomic.Int32

	mu          sync.Mutex // serializes transitions
	settle      time.Duration
	attachedAt  time.Time
	now         func() time.Time
	resetHooks  []func()
	detachHooks []func()
	log         logger.Logger

	subMu  sync.Mutex
	subs   map[int]chan Transition
	nextID int

	attaches atomic.Uint64
	dropped  atomic.Uint64 // transitions lost by slow subscribers
}

// Option configures a Machine
type Option func(*Machine)

// WithResetHook registers fn to run on every Attach. Hooks must not call back
// into the Machine.
func WithResetHook(fn func()) Option {
	return func(m *Machine) { m.resetHooks = append(m.resetHooks, fn) }
}

// WithDetachHook registers fn to run on every Detach, typically to restart
// advertising. Hooks must not call back into the Machine.
func WithDetachHook(fn func()) Option {
	return func(m *Machine) { m.detachHooks = append(m.detachHooks, fn) }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger overrides the module logger
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// New returns a Machine in the Disconnected state
func New(settle time.Duration, opts ...Option) *Machine {
	m := &Machine{
		settle: settle,
		now:    time.Now,
		subs:   make(map[int]chan Transition),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Global().Module("connection")
	}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Streaming reports whether audio should flow
func (m *Machine) Streaming() bool {
	return m.State() == Streaming
}

// Attached reports whether a client is attached, settled or not
func (m *Machine) Attached() bool {
	return m.State() != Disconnected
}

// Attaches returns the number of Attach calls since start
func (m *Machine) Attaches() uint64 {
	return m.attaches.Load()
}

// Attach moves to Settling and runs the reset hooks. Attaching while already
// attached restarts the settle delay.
func (m *Machine) Attach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.State()
	m.attachedAt = m.now()
	m.state.Store(int32(Settling))
	m.attaches.Add(1)

	for _, hook := range m.resetHooks {
		hook()
	}

	m.log.Info("client attached",
		logger.String("from", from.String()),
		logger.Duration("settle", m.settle))
	m.publish(Transition{From: from, To: Settling, At: m.attachedAt})
}

// Refresh promotes Settling to Streaming once the settle delay has elapsed
// and reports whether the state is Streaming afterwards
func (m *Machine) Refresh() bool {
	switch m.State() {
	case Streaming:
		return true
	case Disconnected:
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != Settling {
		return m.State() == Streaming
	}
	now := m.now()
	if now.Sub(m.attachedAt) < m.settle {
		return false
	}

	m.state.Store(int32(Streaming))
	m.log.Info("link settled, streaming",
		logger.Duration("waited", now.Sub(m.attachedAt)))
	m.publish(Transition{From: Settling, To: Streaming, At: now})
	return true
}

// Detach moves to Disconnected from any state and runs the detach hooks
func (m *Machine) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.State()
	m.state.Store(int32(Disconnected))

	for _, hook := range m.detachHooks {
		hook()
	}

	if from == Disconnected {
		return
	}
	m.log.Info("client detached", logger.String("from", from.String()))
	m.publish(Transition{From: from, To: Disconnected, At: m.now()})
}

// Run refreshes the state every tick until ctx is done
func (m *Machine) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Refresh()
		}
	}
}

// Subscribe returns a channel receiving transitions and a cancel function.
// Delivery never blocks the Machine; a full channel loses the transition.
func (m *Machine) Subscribe(buffer int) (<-chan Transition, func()) {
	ch := make(chan Transition, buffer)

	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// DroppedTransitions returns how many transitions slow subscribers missed
func (m *Machine) DroppedTransitions() uint64 {
	return m.dropped.Load()
}

func (m *Machine) publish(t Transition) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- t:
		default:
			m.dropped.Add(1)
		}
	}
}
