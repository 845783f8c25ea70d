// Package malgo captures microphone audio through miniaudio. The device
// callback pushes S16 frames into a bounded queue which Capture drains in
// whole blocks.
package malgo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/streambuf"
)

const (
	// queueSeconds of audio held between the device callback and Capture
	queueSeconds = 1
	// captureTimeout bounds how long Capture waits for a block
	captureTimeout = 2 * time.Second
)

// Config selects the capture device and format
type Config struct {
	Device     string // name substring, empty for system default
	SampleRate uint32
	Channels   int
	Gain       float64
}

// Source is a microphone sample source. The device starts on the first
// Capture and is reopened after a device stop.
type Source struct {
	config Config
	log    logger.Logger

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	queue   *streambuf.Buffer
	scratch []byte
	closed  bool

	running  atomic.Bool
	overruns atomic.Uint64
}

// New validates the configuration. No device is opened until Capture.
func New(config Config) (*Source, error) {
	if config.Gain == 0 {
		config.Gain = 1.0
	}
	format := audiocore.AudioFormat{
		SampleRate: config.SampleRate,
		Channels:   config.Channels,
		BitDepth:   audiocore.BitDepth,
		Encoding:   audiocore.EncodingPCMS16LE,
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	capacity := int(config.SampleRate) * config.Channels * audiocore.BytesPerSample * queueSeconds
	queue, err := streambuf.New(capacity, config.Channels*audiocore.BytesPerSample)
	if err != nil {
		return nil, err
	}

	return &Source{
		config: config,
		log:    logger.Global().Module("audio").With(logger.String("device", config.Device)),
		queue:  queue,
	}, nil
}

// Name implements audiocore.NamedSource
func (s *Source) Name() string {
	if s.config.Device == "" {
		return "malgo:default"
	}
	return "malgo:" + s.config.Device
}

// Overruns returns bytes discarded because Capture fell behind the device
func (s *Source) Overruns() uint64 {
	return s.overruns.Load()
}

// Capture blocks until len(buf) samples were captured
func (s *Source) Capture(ctx context.Context, buf []int16, sampleRate uint32, stereo bool) error {
	wantChannels := 1
	if stereo {
		wantChannels = 2
	}
	if sampleRate != s.config.SampleRate || wantChannels != s.config.Channels {
		return fmt.Errorf("%w: requested %d Hz/%d ch, device opened at %d Hz/%d ch",
			audiocore.ErrFormatMismatch, sampleRate, wantChannels, s.config.SampleRate, s.config.Channels)
	}

	if err := s.ensureStarted(); err != nil {
		return err
	}

	need := len(buf) * audiocore.BytesPerSample
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	raw := s.scratch[:need]

	deadline := time.Now().Add(captureTimeout)
	filled := 0
	for filled < need {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errors.New(audiocore.ErrCaptureTimeout).
				Component("audiocore.sources").
				Category(errors.CategoryTimeout).
				Context("wanted_bytes", need).
				Context("got_bytes", filled).
				Build()
		}
		if !s.running.Load() {
			return errors.Newf("capture device stopped").
				Component("audiocore.sources").
				Category(errors.CategoryAudioSource).
				Context("device", s.Name()).
				Build()
		}
		filled += s.queue.ReadBlocking(ctx, raw[filled:], min(remaining, 100*time.Millisecond))
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	audiocore.DecodeLE(buf, raw)
	audiocore.ApplyGain(buf, s.config.Gain)
	return nil
}

// ensureStarted opens and starts the device when it is not running
func (s *Source) ensureStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audiocore.ErrSourceClosed
	}
	if s.running.Load() {
		return nil
	}
	s.teardownLocked()

	mctx, err := initContext()
	if err != nil {
		return err
	}

	info, err := findDevice(mctx, s.config.Device)
	if err != nil {
		releaseContext(mctx)
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(s.config.Channels) //nolint:gosec // validated to 1 or 2
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.Alsa.NoMMap = 1
	if info != nil {
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: s.onAudioData,
		Stop: s.onDeviceStop,
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		releaseContext(mctx)
		return errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("device", s.Name()).
			Context("operation", "init_device").
			Build()
	}

	if device.CaptureFormat() != malgo.FormatS16 {
		device.Uninit()
		releaseContext(mctx)
		return errors.Newf("device refused S16 capture format").
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("device", s.Name()).
			Build()
	}

	s.queue.Reset()
	s.running.Store(true)
	if err := device.Start(); err != nil {
		s.running.Store(false)
		device.Uninit()
		releaseContext(mctx)
		return errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("device", s.Name()).
			Context("operation", "start_device").
			Build()
	}

	s.mctx = mctx
	s.device = device
	s.log.Info("capture device started",
		logger.Int("sample_rate", int(device.SampleRate())),
		logger.Int("channels", s.config.Channels))
	return nil
}

// onAudioData runs on the miniaudio thread
func (s *Source) onAudioData(_, input []byte, _ uint32) {
	if written := s.queue.Write(input); written < len(input) {
		s.overruns.Add(uint64(len(input) - written)) //nolint:gosec // positive difference
	}
}

func (s *Source) onDeviceStop() {
	if s.running.CompareAndSwap(true, false) {
		s.log.Warn("capture device stopped unexpectedly")
	}
}

func (s *Source) teardownLocked() {
	if s.device != nil {
		s.running.Store(false)
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.mctx != nil {
		releaseContext(s.mctx)
		s.mctx = nil
	}
}

func releaseContext(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}

// Close stops the device and releases the miniaudio context
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.teardownLocked()
	return nil
}
