// Package pattern provides a deterministic sample source whose serialized
// output is the byte ramp 0,1,2,...,255,0,1,... used for stream verification.
package pattern

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/errors"
)

// Source generates Audio Blocks whose little-endian encoding continues a
// monotonically increasing byte counter across calls
type Source struct {
	mu        sync.Mutex
	next      uint64 // next byte value of the ramp
	paced     bool
	deadline  time.Time
	calls     int
	failEvery int
	now       func() time.Time
}

// Option configures a Source
type Option func(*Source)

// WithRealtime paces Capture so that each block takes as long as it would
// from a microphone at the requested rate
func WithRealtime() Option {
	return func(s *Source) { s.paced = true }
}

// WithFailEvery makes every nth Capture fail, n <= 0 disables faults
func WithFailEvery(n int) Option {
	return func(s *Source) { s.failEvery = n }
}

// New creates a pattern source
func New(opts ...Option) *Source {
	s := &Source{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements audiocore.NamedSource
func (s *Source) Name() string {
	return "pattern"
}

// Capture fills buf with the next samples of the ramp
func (s *Source) Capture(ctx context.Context, buf []int16, sampleRate uint32, stereo bool) error {
	if err := audiocore.FormatFor(sampleRate, stereo).Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.calls++
	if s.failEvery > 0 && s.calls%s.failEvery == 0 {
		s.mu.Unlock()
		return errors.Newf("injected capture fault on call %d", s.calls).
			Component("audiocore.sources").
			Category(errors.CategoryAudioSource).
			Context("source", "pattern").
			Build()
	}

	for i := range buf {
		lo := uint16(byte(s.next))
		hi := uint16(byte(s.next + 1))
		buf[i] = int16(lo | hi<<8) //nolint:gosec // reinterpretation of the byte pair
		s.next += audiocore.BytesPerSample
	}

	var wait time.Duration
	if s.paced {
		channels := 1
		if stereo {
			channels = 2
		}
		frames := len(buf) / channels
		blockDur := time.Duration(frames) * time.Second / time.Duration(sampleRate)
		now := s.now()
		if s.deadline.Before(now) {
			s.deadline = now
		}
		s.deadline = s.deadline.Add(blockDur)
		wait = s.deadline.Sub(now)
	}
	s.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bytes returns n bytes of the ramp starting at offset, the exact bytes a
// receiver should observe at that stream position
func Bytes(offset uint64, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(offset + uint64(i)) //nolint:gosec // ramp wraps at 256
	}
	return out
}
