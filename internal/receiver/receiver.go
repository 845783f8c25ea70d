// Package receiver is the companion side of the link: it subscribes to the
// pendant's audio characteristic, reassembles the notification stream into
// samples and records them to a WAV file.
package receiver

import (
	"context"
	"time"

	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/logger"
)

// GetLogger returns the receiver logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("receiver")
}

// SampleWriter consumes reassembled samples
type SampleWriter interface {
	Write(samples []int16) error
}

// Config configures a recording session
type Config struct {
	Link       LinkConfig
	OutputPath string
	SampleRate int
	Channels   int
}

// ConfigFromSettings maps the receiver section of the settings
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		Link: LinkConfig{
			URL: settings.Receiver.URL,
			MTU: settings.Receiver.MTU,
		},
		OutputPath: settings.Receiver.OutputPath,
		SampleRate: settings.Receiver.SampleRate,
		Channels:   settings.Receiver.Channels,
	}
}

// Stats summarizes a session
type Stats struct {
	AssemblerStats
	MTU      uint16        `json:"mtu"`
	Duration time.Duration `json:"duration"`
}

// Record subscribes with config.Link and writes every completed sample to w
// until ctx is done or the device closes the link.
func Record(ctx context.Context, config LinkConfig, w SampleWriter) (Stats, error) {
	started := time.Now()
	log := GetLogger()

	link, err := Dial(ctx, config)
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = link.Close() }()

	log.Info("subscribed to audio stream",
		logger.String("url", config.URL),
		logger.Int("mtu", int(link.MTU())))

	var (
		asm     Assembler
		samples []int16
	)
	err = link.Receive(ctx, func(payload []byte) error {
		samples = asm.Push(samples[:0], payload)
		return w.Write(samples)
	})

	stats := Stats{
		AssemblerStats: asm.Stats(),
		MTU:            link.MTU(),
		Duration:       time.Since(started),
	}
	if asm.Pending() {
		log.Warn("stream ended mid-sample, trailing byte discarded")
	}
	log.Info("recording finished",
		logger.Uint64("notifications", stats.Notifications),
		logger.Uint64("bytes", stats.Bytes),
		logger.Uint64("samples", stats.Samples),
		logger.Uint64("carries", stats.Carries),
		logger.Duration("duration", stats.Duration))

	return stats, err
}

// RecordToFile runs Record into a new WAV file at config.OutputPath
func RecordToFile(ctx context.Context, config Config) (Stats, error) {
	wav, err := CreateWAV(config.OutputPath, config.SampleRate, config.Channels)
	if err != nil {
		return Stats{}, err
	}

	stats, recErr := Record(ctx, config.Link, wav)
	log := GetLogger()
	if err := wav.Close(); err != nil && recErr == nil {
		recErr = err
	}
	log.Info("wav file written",
		logger.String("path", wav.Path()),
		logger.Uint64("samples", wav.Samples()))
	return stats, recErr
}
