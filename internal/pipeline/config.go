package pipeline

import (
	"time"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/radio"
)

// Config parameterizes the capture and transmit tasks
type Config struct {
	SampleRate       uint32
	BlockSamples     int // per channel
	Stereo           bool
	BufferCapacity   int
	ReleaseThreshold int
	ProtocolOverhead int // bytes reserved per notification, 0 for none

	Settle         time.Duration
	Tick           time.Duration
	GatePoll       time.Duration
	WriteWait      time.Duration
	ReadTimeout    time.Duration
	NotifyPacing   time.Duration
	CaptureBackoff time.Duration
}

// ConfigFromSettings maps application settings onto a pipeline Config
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		SampleRate:       settings.Audio.SampleRate,
		BlockSamples:     settings.Audio.BlockSamples,
		Stereo:           settings.Audio.Stereo,
		BufferCapacity:   settings.Buffer.Capacity,
		ReleaseThreshold: settings.Buffer.ReleaseThreshold,
		ProtocolOverhead: settings.Stream.ProtocolOverhead,
		Settle:           settings.Connection.Settle,
		Tick:             settings.Connection.Tick,
		GatePoll:         settings.Stream.GatePoll,
		WriteWait:        settings.Stream.WriteWait,
		ReadTimeout:      settings.Stream.ReadTimeout,
		NotifyPacing:     settings.Stream.NotifyPacing,
		CaptureBackoff:   settings.Stream.CaptureBackoff,
	}
}

// Channels returns the interleaved channel count
func (c Config) Channels() int {
	if c.Stereo {
		return 2
	}
	return 1
}

// BlockBytes is the serialized size of one Audio Block
func (c Config) BlockBytes() int {
	return c.BlockSamples * c.Channels() * audiocore.BytesPerSample
}

// withDefaults fills zero timings so a partially built Config still works
func (c Config) withDefaults() Config {
	if c.ProtocolOverhead < 0 {
		c.ProtocolOverhead = radio.ATTHeaderSize
	}
	if c.Tick <= 0 {
		c.Tick = 50 * time.Millisecond
	}
	if c.GatePoll <= 0 {
		c.GatePoll = 20 * time.Millisecond
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 30 * time.Millisecond
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 50 * time.Millisecond
	}
	if c.CaptureBackoff <= 0 {
		c.CaptureBackoff = 100 * time.Millisecond
	}
	return c
}
