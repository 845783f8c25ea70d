// Package wavfile replays a 16-bit PCM WAV file as a looping sample source.
package wavfile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/errors"
)

// Source reads blocks from a WAV file, rewinding at end of file
type Source struct {
	path     string
	file     *os.File
	decoder  *wav.Decoder
	format   audiocore.AudioFormat
	pcm      *audio.IntBuffer
	scratch  []int16
	paced    bool
	deadline time.Time
	loops    int
	closed   bool
	mu       sync.Mutex
}

// Option configures a Source
type Option func(*Source)

// WithRealtime paces Capture to the file's sample rate
func WithRealtime() Option {
	return func(s *Source) { s.paced = true }
}

// Open validates path as a 16-bit PCM WAV file and prepares it for replay
func Open(path string, opts ...Option) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "open_wav").
			Build()
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		_ = file.Close()
		return nil, errors.Newf("not a valid WAV file: %s", path).
			Component("audiocore.sources").
			Category(errors.CategoryValidation).
			FileContext(path, 0).
			Build()
	}
	decoder.ReadInfo()

	if decoder.BitDepth != audiocore.BitDepth {
		_ = file.Close()
		return nil, errors.Newf("unsupported WAV bit depth %d, need 16", decoder.BitDepth).
			Component("audiocore.sources").
			Category(errors.CategoryValidation).
			FileContext(path, 0).
			Context("bit_depth", decoder.BitDepth).
			Build()
	}

	if err := decoder.FwdToPCM(); err != nil {
		_ = file.Close()
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "seek_pcm").
			Build()
	}

	s := &Source{
		path:    path,
		file:    file,
		decoder: decoder,
		format: audiocore.AudioFormat{
			SampleRate: decoder.SampleRate,
			Channels:   int(decoder.NumChans),
			BitDepth:   audiocore.BitDepth,
			Encoding:   audiocore.EncodingPCMS16LE,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.format.Validate(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return s, nil
}

// Name implements audiocore.NamedSource
func (s *Source) Name() string {
	return "wav:" + s.path
}

// Format returns the file's native format
func (s *Source) Format() audiocore.AudioFormat {
	return s.format
}

// Loops returns how many times the file wrapped around
func (s *Source) Loops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loops
}

// Capture fills buf from the file. The requested rate must match the file;
// channel count is converted between mono and stereo.
func (s *Source) Capture(ctx context.Context, buf []int16, sampleRate uint32, stereo bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audiocore.ErrSourceClosed
	}
	if sampleRate != s.format.SampleRate {
		return fmt.Errorf("%w: requested %d Hz, file is %d Hz", audiocore.ErrFormatMismatch, sampleRate, s.format.SampleRate)
	}

	wantChannels := 1
	if stereo {
		wantChannels = 2
	}
	frames := len(buf) / wantChannels
	fileSamples := frames * s.format.Channels

	if cap(s.scratch) < fileSamples {
		s.scratch = make([]int16, fileSamples)
	}
	native := s.scratch[:fileSamples]
	if err := s.readSamples(native); err != nil {
		return err
	}

	switch {
	case s.format.Channels == wantChannels:
		copy(buf, native)
	case wantChannels == 1:
		audiocore.DownmixToMono(buf, native)
	default:
		audiocore.DuplicateToStereo(buf, native)
	}

	if s.paced {
		return s.pace(ctx, frames)
	}
	return nil
}

// readSamples fills dst, rewinding the decoder whenever the data chunk ends
func (s *Source) readSamples(dst []int16) error {
	if s.pcm == nil || len(s.pcm.Data) < len(dst) {
		s.pcm = &audio.IntBuffer{Data: make([]int, len(dst))}
	}

	filled := 0
	rewound := false
	for filled < len(dst) {
		s.pcm.Data = s.pcm.Data[:len(dst)-filled]
		n, err := s.decoder.PCMBuffer(s.pcm)
		if err != nil {
			return errors.New(err).
				Component("audiocore.sources").
				Category(errors.CategoryFileIO).
				FileContext(s.path, 0).
				Context("operation", "read_pcm").
				Build()
		}
		if n == 0 {
			// Two consecutive empty reads means the data chunk is empty
			if rewound {
				return errors.Newf("WAV file has no PCM data: %s", s.path).
					Component("audiocore.sources").
					Category(errors.CategoryAudioSource).
					Build()
			}
			if err := s.decoder.Rewind(); err != nil {
				return errors.New(err).
					Component("audiocore.sources").
					Category(errors.CategoryFileIO).
					FileContext(s.path, 0).
					Context("operation", "rewind").
					Build()
			}
			s.loops++
			rewound = true
			continue
		}
		rewound = false
		for i := range n {
			dst[filled+i] = int16(s.pcm.Data[i]) //nolint:gosec // decoder yields 16-bit values
		}
		filled += n
	}
	return nil
}

func (s *Source) pace(ctx context.Context, frames int) error {
	blockDur := time.Duration(frames) * time.Second / time.Duration(s.format.SampleRate)
	now := time.Now()
	if s.deadline.Before(now) {
		s.deadline = now
	}
	s.deadline = s.deadline.Add(blockDur)

	timer := time.NewTimer(s.deadline.Sub(now))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the file
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
