// Package loopback is an in-memory radio notifier. It records every
// notification and lets callers change the MTU, stall delivery or inject
// faults, which makes it the notifier for simulation runs and tests.
package loopback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/radio"
)

// Notifier implements audiocore.RadioNotifier in memory
type Notifier struct {
	mtu      atomic.Uint32
	overhead int

	mu          sync.Mutex
	payload     []byte
	received    []byte
	sizes       []int
	subscribed  bool
	failNext    int
	stalled     chan struct{} // non-nil while stalled, closed on release
	onAttach    []func()
	onDetach    []func()
	sink        func([]byte)
	discard     bool
	advertising bool
	advertises  int
}

// Option configures a Notifier
type Option func(*Notifier)

// WithSink forwards a copy of every notified payload to fn
func WithSink(fn func([]byte)) Option {
	return func(n *Notifier) { n.sink = fn }
}

// WithDiscard stops the notifier from retaining delivered payloads, so
// Received and Sizes stay empty on long runs
func WithDiscard() Option {
	return func(n *Notifier) { n.discard = true }
}

// WithOverhead overrides the per-notification header size, ATT by default
func WithOverhead(overhead int) Option {
	return func(n *Notifier) { n.overhead = overhead }
}

// New creates a notifier with the given ATT MTU
func New(mtu uint16, opts ...Option) *Notifier {
	n := &Notifier{overhead: radio.ATTHeaderSize, advertising: true}
	n.mtu.Store(uint32(mtu))
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ audiocore.RadioNotifier = (*Notifier)(nil)

// SetPayload stages a copy of p
func (n *Notifier) SetPayload(p []byte) {
	n.mu.Lock()
	n.payload = append(n.payload[:0], p...)
	n.mu.Unlock()
}

// Notify delivers the staged payload
func (n *Notifier) Notify(ctx context.Context) error {
	n.mu.Lock()
	stall := n.stalled
	n.mu.Unlock()

	if stall != nil {
		select {
		case <-stall:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n.mu.Lock()
	if !n.subscribed {
		n.mu.Unlock()
		return audiocore.ErrNotSubscribed
	}
	if n.failNext > 0 {
		n.failNext--
		size := len(n.payload)
		n.mu.Unlock()
		return errors.Newf("injected notify fault").
			Component("radio.loopback").
			Category(errors.CategoryRadio).
			LinkContext(n.MaxPayloadSize(), size).
			Build()
	}
	if limit := radio.PayloadLimit(n.MaxPayloadSize(), n.overhead); len(n.payload) > limit {
		size := len(n.payload)
		n.mu.Unlock()
		return fmt.Errorf("%w: %d > %d", audiocore.ErrPayloadTooLarge, size, limit)
	}

	if !n.discard {
		n.received = append(n.received, n.payload...)
		n.sizes = append(n.sizes, len(n.payload))
	}
	sink := n.sink
	var delivered []byte
	if sink != nil {
		delivered = append([]byte(nil), n.payload...)
	}
	n.mu.Unlock()

	// The sink may call back into the notifier
	if sink != nil {
		sink(delivered)
	}
	return nil
}

// MaxPayloadSize returns the current ATT MTU
func (n *Notifier) MaxPayloadSize() uint16 {
	return uint16(n.mtu.Load()) //nolint:gosec // stored from a uint16
}

// SetMTU changes the MTU, as an MTU exchange would mid-stream
func (n *Notifier) SetMTU(mtu uint16) {
	n.mtu.Store(uint32(mtu))
}

// OnAttach registers fn to run when a client subscribes
func (n *Notifier) OnAttach(fn func()) {
	n.mu.Lock()
	n.onAttach = append(n.onAttach, fn)
	n.mu.Unlock()
}

// OnDetach registers fn to run when the client goes away
func (n *Notifier) OnDetach(fn func()) {
	n.mu.Lock()
	n.onDetach = append(n.onDetach, fn)
	n.mu.Unlock()
}

// Advertise marks the notifier discoverable
func (n *Notifier) Advertise() error {
	n.mu.Lock()
	n.advertising = true
	n.advertises++
	n.mu.Unlock()
	return nil
}

// Connect simulates a client subscribing and fires the attach callbacks
func (n *Notifier) Connect() {
	n.mu.Lock()
	n.subscribed = true
	n.advertising = false
	callbacks := append([]func(){}, n.onAttach...)
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Disconnect simulates the client going away and fires the detach callbacks
func (n *Notifier) Disconnect() {
	n.mu.Lock()
	n.subscribed = false
	callbacks := append([]func(){}, n.onDetach...)
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Stall blocks Notify until Release is called
func (n *Notifier) Stall() {
	n.mu.Lock()
	if n.stalled == nil {
		n.stalled = make(chan struct{})
	}
	n.mu.Unlock()
}

// Release ends a stall
func (n *Notifier) Release() {
	n.mu.Lock()
	if n.stalled != nil {
		close(n.stalled)
		n.stalled = nil
	}
	n.mu.Unlock()
}

// FailNext makes the next count Notify calls return an error
func (n *Notifier) FailNext(count int) {
	n.mu.Lock()
	n.failNext = count
	n.mu.Unlock()
}

// Received returns the concatenation of all delivered payloads
func (n *Notifier) Received() []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]byte(nil), n.received...)
}

// Sizes returns the length of every delivered payload in order
func (n *Notifier) Sizes() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.sizes...)
}

// Advertising reports whether the notifier is discoverable and how many
// times Advertise was called
func (n *Notifier) Advertising() (bool, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.advertising, n.advertises
}
