// Package diagnostics reports the health of the audio stream: a periodic
// status snapshot, connection state tracking, error tallies, and a system
// resource snapshot when audio is being dropped persistently.
package diagnostics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/connection"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/pipeline"
	"github.com/tphakala/pendant-go/internal/radio"
)

const (
	defaultInterval   = 5 * time.Second
	defaultDropStreak = 3
	publishTimeout    = 5 * time.Second

	// at most one system snapshot per window
	snapshotWindow = 10 * time.Minute
)

// Status is a point-in-time view of the stream
type Status struct {
	Device         string            `json:"device"`
	State          string            `json:"state"`
	Attaches       uint64            `json:"attaches"`
	MTU            uint16            `json:"mtu"`
	PayloadLimit   int               `json:"payload_limit"`
	BufferLevel    int               `json:"buffer_level"`
	BufferCapacity int               `json:"buffer_capacity"`
	Stats          pipeline.Snapshot `json:"stats"`
	Errors         map[string]uint64 `json:"errors,omitempty"`
	UptimeSeconds  float64           `json:"uptime_seconds"`
	Timestamp      time.Time         `json:"timestamp"`
}

// StateObserver receives connection state and MTU changes, typically the
// stream metrics
type StateObserver interface {
	SetConnectionState(state int)
	SetMTU(mtu uint16)
}

// Publisher sends a status payload to a topic
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// Config controls the reporter
type Config struct {
	Device         string
	Interval       time.Duration
	SystemSnapshot bool
	Topic          string // publisher topic
	DropStreak     int    // consecutive reports with new drops before a system snapshot
}

// Option configures a Reporter
type Option func(*Reporter)

// WithObserver forwards state transitions and the MTU to o
func WithObserver(o StateObserver) Option {
	return func(r *Reporter) { r.observer = o }
}

// WithPublisher publishes every report through p
func WithPublisher(p Publisher) Option {
	return func(r *Reporter) { r.publisher = p }
}

// WithErrorCounter includes per-category error totals in the status
func WithErrorCounter(c *ErrorCounter) Option {
	return func(r *Reporter) { r.errors = c }
}

// WithLogger overrides the package logger
func WithLogger(l logger.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// withSystemInfo replaces the system snapshot source
func withSystemInfo(fn func(reason string) string) Option {
	return func(r *Reporter) { r.sysinfo = fn }
}

// Reporter periodically logs and publishes the stream status
type Reporter struct {
	config    Config
	pipe      *pipeline.Pipeline
	notifier  audiocore.RadioNotifier
	observer  StateObserver
	publisher Publisher
	errors    *ErrorCounter
	logger    logger.Logger
	sysinfo   func(reason string) string
	started   time.Time

	snapshotLimiter *rate.Limiter
	publishLimiter  *rate.Limiter

	mu          sync.Mutex
	lastDropped uint64
	dropStreak  int

	reports   atomic.Uint64
	snapshots atomic.Uint64
}

// New creates a reporter for pipe. The notifier supplies the current MTU.
func New(config Config, pipe *pipeline.Pipeline, notifier audiocore.RadioNotifier, opts ...Option) *Reporter {
	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}
	if config.DropStreak <= 0 {
		config.DropStreak = defaultDropStreak
	}

	r := &Reporter{
		config:          config,
		pipe:            pipe,
		notifier:        notifier,
		logger:          GetLogger(),
		sysinfo:         CaptureSystemInfo,
		started:         time.Now(),
		snapshotLimiter: rate.NewLimiter(rate.Every(snapshotWindow), 1),
		publishLimiter:  rate.NewLimiter(rate.Every(time.Minute), 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status assembles the current status
func (r *Reporter) Status() Status {
	machine := r.pipe.Machine()
	buffer := r.pipe.Buffer()
	mtu := r.notifier.MaxPayloadSize()

	st := Status{
		Device:         r.config.Device,
		State:          machine.State().String(),
		Attaches:       machine.Attaches(),
		MTU:            mtu,
		PayloadLimit:   max(radio.PayloadLimit(mtu, r.pipe.Config().ProtocolOverhead), 0),
		BufferLevel:    buffer.Available(),
		BufferCapacity: buffer.Capacity(),
		Stats:          r.pipe.Stats().Snapshot(),
		UptimeSeconds:  time.Since(r.started).Seconds(),
		Timestamp:      time.Now(),
	}
	if r.errors != nil {
		st.Errors = r.errors.Counts()
	}
	return st
}

// Reports returns how many periodic reports have been produced
func (r *Reporter) Reports() uint64 {
	return r.reports.Load()
}

// Snapshots returns how many system snapshots have been taken
func (r *Reporter) Snapshots() uint64 {
	return r.snapshots.Load()
}

// Run reports every interval and follows connection transitions until ctx is
// done. It always returns nil so it can run inside the pipeline task group.
func (r *Reporter) Run(ctx context.Context) error {
	transitions, cancel := r.pipe.Machine().Subscribe(16)
	defer cancel()

	r.observeState(r.pipe.Machine().State())

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-transitions:
			if !ok {
				transitions = nil
				continue
			}
			r.onTransition(t)
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) observeState(s connection.State) {
	if r.observer == nil {
		return
	}
	r.observer.SetConnectionState(int(s))
	r.observer.SetMTU(r.notifier.MaxPayloadSize())
}

func (r *Reporter) onTransition(t connection.Transition) {
	r.observeState(t.To)

	fields := []logger.Field{
		logger.String("from", t.From.String()),
		logger.String("to", t.To.String()),
	}
	if t.To == connection.Streaming {
		fields = append(fields, logger.Int("mtu", int(r.notifier.MaxPayloadSize())))
	}
	r.logger.Info("connection state changed", fields...)
}

// report logs one status line, publishes it and checks for sustained drops
func (r *Reporter) report(ctx context.Context) {
	st := r.Status()
	r.reports.Add(1)

	if r.observer != nil {
		r.observer.SetMTU(st.MTU)
	}

	r.logger.Info("stream status",
		logger.String("state", st.State),
		logger.Int("buffer_level", st.BufferLevel),
		logger.Uint64("high_water_mark", st.Stats.HighWaterMark),
		logger.Uint64("frames_captured", st.Stats.FramesCaptured),
		logger.Uint64("notifications_sent", st.Stats.NotificationsSent),
		logger.Uint64("bytes_sent", st.Stats.BytesSent),
		logger.Uint64("bytes_dropped", st.Stats.TotalDropped()),
		logger.Uint64("capture_faults", st.Stats.CaptureFaults),
		logger.Uint64("notify_faults", st.Stats.NotifyFaults))

	r.publish(ctx, st)
	r.checkDrops(st)
}

func (r *Reporter) publish(ctx context.Context, st Status) {
	if r.publisher == nil || r.config.Topic == "" {
		return
	}

	payload, err := json.Marshal(st)
	if err != nil {
		r.logger.Error("failed to encode status", logger.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, r.config.Topic, string(payload)); err != nil && r.publishLimiter.Allow() {
		r.logger.Warn("failed to publish status",
			logger.String("topic", r.config.Topic),
			logger.Error(err))
	}
}

// checkDrops takes a system snapshot once drops have grown for DropStreak
// consecutive reports
func (r *Reporter) checkDrops(st Status) {
	total := st.Stats.TotalDropped()

	r.mu.Lock()
	if total > r.lastDropped {
		r.dropStreak++
	} else {
		// unchanged, or counters were reset by a new attach
		r.dropStreak = 0
	}
	r.lastDropped = total
	sustained := r.dropStreak >= r.config.DropStreak
	if sustained {
		r.dropStreak = 0
	}
	r.mu.Unlock()

	if !sustained || !r.config.SystemSnapshot || !r.snapshotLimiter.Allow() {
		return
	}

	err := errors.Newf("audio dropped in %d consecutive reports", r.config.DropStreak).
		Component("diagnostics").
		Category(errors.CategoryBuffer).
		Context("bytes_dropped", total).
		Context("buffer_capacity", st.BufferCapacity).
		Build()

	info := r.sysinfo(err.Error())
	r.snapshots.Add(1)
	r.logger.Warn("sustained audio drops, captured system snapshot",
		logger.Error(err),
		logger.String("system", info))
}
