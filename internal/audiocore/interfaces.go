package audiocore

import (
	"context"
	"fmt"
)

// AudioFormat describes a PCM stream
type AudioFormat struct {
	SampleRate uint32 // Hz
	Channels   int    // 1 mono, 2 interleaved stereo
	BitDepth   int    // always 16 on the wire
	Encoding   string // EncodingPCMS16LE
}

// BytesPerFrame returns the serialized size of one sample per channel
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels * (f.BitDepth / 8)
}

// Validate checks that the format can be carried by the pipeline
func (f AudioFormat) Validate() error {
	switch {
	case f.SampleRate < MinSampleRate || f.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d outside %d..%d", ErrInvalidAudioFormat, f.SampleRate, MinSampleRate, MaxSampleRate)
	case f.Channels != 1 && f.Channels != 2:
		return fmt.Errorf("%w: %d channels", ErrInvalidAudioFormat, f.Channels)
	case f.BitDepth != BitDepth:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidAudioFormat, f.BitDepth)
	}
	return nil
}

// FormatFor builds the format used for a capture request
func FormatFor(sampleRate uint32, stereo bool) AudioFormat {
	channels := 1
	if stereo {
		channels = 2
	}
	return AudioFormat{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   BitDepth,
		Encoding:   EncodingPCMS16LE,
	}
}

// SampleSource produces Audio Blocks.
//
// Capture blocks until buf is completely filled with len(buf) samples at
// sampleRate (interleaved L,R when stereo) or returns an error. On error the
// contents of buf are unspecified. Capture failures are transient; the caller
// backs off and asks again.
type SampleSource interface {
	Capture(ctx context.Context, buf []int16, sampleRate uint32, stereo bool) error
}

// NamedSource is implemented by sources that can describe themselves in logs
type NamedSource interface {
	SampleSource
	Name() string
}

// RadioNotifier delivers payloads to the paired wireless client.
//
// SetPayload stages the characteristic value and Notify pushes it to the
// subscribed client. MaxPayloadSize reports the currently negotiated ATT MTU;
// it may change at any time and is re-read before every notification.
// OnAttach and OnDetach register callbacks fired from the notifier's own
// goroutines. Advertise makes the device discoverable again after a detach.
type RadioNotifier interface {
	SetPayload(p []byte)
	Notify(ctx context.Context) error
	MaxPayloadSize() uint16
	OnAttach(fn func())
	OnDetach(fn func())
	Advertise() error
}
