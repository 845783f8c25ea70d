// Package pipeline runs the two streaming tasks. The capture task turns
// Audio Blocks into bytes in the stream buffer; the transmit task drains the
// buffer into MTU-sized notifications. Both are gated on the connection state
// and cooperate only through the buffer.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/connection"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/streambuf"
)

// Pipeline owns the buffer, the statistics and the connection state machine
// shared by the capture and transmit tasks
type Pipeline struct {
	config   Config
	source   audiocore.SampleSource
	notifier audiocore.RadioNotifier
	buffer   *streambuf.Buffer
	machine  *connection.Machine
	stats    *Stats
	recorder Recorder

	log         logger.Logger
	captureLog  logger.Logger
	transmitLog logger.Logger

	// throttle repeated warnings to one per second per kind
	captureFaultLimiter *rate.Limiter
	dropLimiter         *rate.Limiter
	notifyFaultLimiter  *rate.Limiter
}

// Option configures a Pipeline
type Option func(*options)

type options struct {
	recorder    Recorder
	connOptions []connection.Option
	log         logger.Logger
}

// WithRecorder exports stream events, typically to Prometheus
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithConnectionOptions passes options to the connection state machine
func WithConnectionOptions(opts ...connection.Option) Option {
	return func(o *options) { o.connOptions = append(o.connOptions, opts...) }
}

// WithLogger overrides the stream logger
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New builds the buffer and the state machine and subscribes to the
// notifier's attach and detach callbacks. A buffer that cannot be created is
// a fatal initialization fault.
func New(config Config, source audiocore.SampleSource, notifier audiocore.RadioNotifier, opts ...Option) (*Pipeline, error) {
	o := options{recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = GetLogger()
	}

	config = config.withDefaults()
	if config.BlockSamples <= 0 {
		return nil, errors.Newf("block size must be positive, got %d samples", config.BlockSamples).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := audiocore.FormatFor(config.SampleRate, config.Stereo).Validate(); err != nil {
		return nil, err
	}

	buffer, err := streambuf.New(config.BufferCapacity, config.ReleaseThreshold)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:              config,
		source:              source,
		notifier:            notifier,
		buffer:              buffer,
		stats:               &Stats{},
		recorder:            o.recorder,
		log:                 o.log,
		captureLog:          o.log.Module("capture"),
		transmitLog:         o.log.Module("transmit"),
		captureFaultLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
		dropLimiter:         rate.NewLimiter(rate.Every(time.Second), 1),
		notifyFaultLimiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}

	connOpts := append([]connection.Option{
		connection.WithResetHook(p.resetForAttach),
		connection.WithDetachHook(p.restartAdvertising),
	}, o.connOptions...)
	p.machine = connection.New(config.Settle, connOpts...)

	notifier.OnAttach(p.machine.Attach)
	notifier.OnDetach(p.machine.Detach)

	if config.BufferCapacity < 2*config.BlockBytes() {
		p.log.Warn("buffer holds less than two blocks, expect drops when the link stalls",
			logger.Int("capacity", config.BufferCapacity),
			logger.Int("block_bytes", config.BlockBytes()))
	}
	return p, nil
}

// Machine returns the connection state machine
func (p *Pipeline) Machine() *connection.Machine { return p.machine }

// Buffer returns the stream buffer
func (p *Pipeline) Buffer() *streambuf.Buffer { return p.buffer }

// Stats returns the live counters
func (p *Pipeline) Stats() *Stats { return p.stats }

// Config returns the effective configuration
func (p *Pipeline) Config() Config { return p.config }

func (p *Pipeline) resetForAttach() {
	p.buffer.Reset()
	p.stats.Reset()
	p.recorder.SetBufferLevel(0)
}

func (p *Pipeline) restartAdvertising() {
	if err := p.notifier.Advertise(); err != nil {
		p.log.Warn("failed to restart advertising", logger.Error(err))
	}
}

// Run advertises, then runs the capture task, the transmit task, the state
// ticker and any extra tasks until ctx is done or a task fails
func (p *Pipeline) Run(ctx context.Context, extra ...func(context.Context) error) error {
	if err := p.notifier.Advertise(); err != nil {
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryRadio).
			Context("operation", "advertise").
			Build()
	}

	p.log.Info("stream pipeline started",
		logger.Int("sample_rate", int(p.config.SampleRate)),
		logger.Int("block_bytes", p.config.BlockBytes()),
		logger.Int("buffer_capacity", p.buffer.Capacity()),
		logger.Int("release_threshold", p.buffer.ReleaseThreshold()),
		logger.Duration("settle", p.config.Settle))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.runCapture(gctx) })
	g.Go(func() error { return p.runTransmit(gctx) })
	g.Go(func() error { return p.machine.Run(gctx, p.config.Tick) })
	for _, task := range extra {
		g.Go(func() error { return task(gctx) })
	}

	err := g.Wait()
	p.log.Info("stream pipeline stopped", logger.Any("stats", p.stats.Snapshot()))
	return err
}

// sleep waits d or until ctx is done and reports whether the full delay elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
