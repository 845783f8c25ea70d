package connection

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func newTestMachine(settle time.Duration, clock *fakeClock, opts ...Option) *Machine {
	opts = append(opts, WithClock(clock.Now), WithLogger(quietLogger()))
	return New(settle, opts...)
}

func TestSettleThenStream(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var resets atomic.Int32
	m := newTestMachine(1500*time.Millisecond, clock, WithResetHook(func() { resets.Add(1) }))

	assert.Equal(t, Disconnected, m.State())
	assert.False(t, m.Refresh())

	m.Attach()
	assert.Equal(t, Settling, m.State())
	assert.True(t, m.Attached())
	assert.Equal(t, int32(1), resets.Load())

	clock.Advance(1499 * time.Millisecond)
	assert.False(t, m.Refresh())
	assert.Equal(t, Settling, m.State())

	clock.Advance(time.Millisecond)
	assert.True(t, m.Refresh())
	assert.True(t, m.Streaming())
}

func TestDetachBeforeSettleNeverStreams(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var detaches atomic.Int32
	m := newTestMachine(time.Second, clock, WithDetachHook(func() { detaches.Add(1) }))

	m.Attach()
	clock.Advance(500 * time.Millisecond)
	m.Detach()

	clock.Advance(time.Hour)
	assert.False(t, m.Refresh())
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, int32(1), detaches.Load())
}

func TestReattachRestartsSettle(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var resets atomic.Int32
	m := newTestMachine(time.Second, clock, WithResetHook(func() { resets.Add(1) }))

	m.Attach()
	clock.Advance(900 * time.Millisecond)
	m.Attach()
	clock.Advance(900 * time.Millisecond)
	assert.False(t, m.Refresh())

	clock.Advance(100 * time.Millisecond)
	assert.True(t, m.Refresh())
	assert.Equal(t, int32(2), resets.Load())
	assert.Equal(t, uint64(2), m.Attaches())
}

func TestDetachFromStreaming(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := newTestMachine(0, clock)

	m.Attach()
	require.True(t, m.Refresh())
	m.Detach()
	assert.Equal(t, Disconnected, m.State())
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := newTestMachine(time.Second, clock)
	events, cancel := m.Subscribe(8)

	m.Attach()
	clock.Advance(time.Second)
	m.Refresh()
	m.Detach()
	m.Detach() // already disconnected, no event

	want := []struct{ from, to State }{
		{Disconnected, Settling},
		{Settling, Streaming},
		{Streaming, Disconnected},
	}
	for _, w := range want {
		select {
		case tr := <-events:
			assert.Equal(t, w.from, tr.From)
			assert.Equal(t, w.to, tr.To)
		default:
			t.Fatalf("missing transition %s -> %s", w.from, w.to)
		}
	}

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := newTestMachine(0, clock)
	_, cancel := m.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 10 {
			m.Attach()
			m.Detach()
		}
		close(done)
	}()

	testutil.WaitForChannel(t, done, testutil.ShortTestTimeout, "state machine blocked on a full subscriber")
	assert.Equal(t, uint64(19), m.DroppedTransitions())
}

func TestRunPromotesWithoutCaptureTask(t *testing.T) {
	t.Parallel()

	m := New(20*time.Millisecond, WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	m.Attach()
	assert.Eventually(t, m.Streaming, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestConcurrentReadersDuringTransitions(t *testing.T) {
	t.Parallel()

	m := New(0, WithLogger(quietLogger()))
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				s := m.State()
				assert.Contains(t, []State{Disconnected, Settling, Streaming}, s)
				m.Refresh()
			}
		}()
	}

	for ctx.Err() == nil {
		m.Attach()
		m.Detach()
	}
	wg.Wait()
	assert.Equal(t, Disconnected, m.State())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "settling", Settling.String())
	assert.Equal(t, "unknown", State(42).String())
}
