// Package sources selects and constructs sample source implementations
package sources

import (
	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/audiocore/sources/malgo"
	"github.com/tphakala/pendant-go/internal/audiocore/sources/pattern"
	"github.com/tphakala/pendant-go/internal/audiocore/sources/wavfile"
	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/errors"
)

// Config carries everything a source constructor needs
type Config struct {
	Type       string
	Device     string
	WavPath    string
	SampleRate uint32
	Channels   int
	Gain       float64
	Realtime   bool // pace synthetic and file sources to wall clock
}

// ConfigFromSettings builds a source Config from application settings
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		Type:       settings.Audio.Source,
		Device:     settings.Audio.Device,
		WavPath:    settings.Audio.WavPath,
		SampleRate: settings.Audio.SampleRate,
		Channels:   settings.Channels(),
		Gain:       settings.Audio.Gain,
		Realtime:   true,
	}
}

// New creates a sample source for config.Type
func New(config Config) (audiocore.SampleSource, error) {
	switch audiocore.ParseSourceType(config.Type) {
	case audiocore.SourceTypePattern:
		var opts []pattern.Option
		if config.Realtime {
			opts = append(opts, pattern.WithRealtime())
		}
		return pattern.New(opts...), nil

	case audiocore.SourceTypeMalgo:
		return malgo.New(malgo.Config{
			Device:     config.Device,
			SampleRate: config.SampleRate,
			Channels:   config.Channels,
			Gain:       config.Gain,
		})

	case audiocore.SourceTypeWAV:
		if config.WavPath == "" {
			return nil, errors.Newf("wav source requires a file path").
				Component("audiocore.sources").
				Category(errors.CategoryValidation).
				Context("source_type", config.Type).
				Build()
		}
		var opts []wavfile.Option
		if config.Realtime {
			opts = append(opts, wavfile.WithRealtime())
		}
		return wavfile.Open(config.WavPath, opts...)

	default:
		return nil, errors.Newf("unknown source type: %s", config.Type).
			Component("audiocore.sources").
			Category(errors.CategoryValidation).
			Context("source_type", config.Type).
			Build()
	}
}

// ListAvailableDevices returns the host's audio capture devices
func ListAvailableDevices() ([]malgo.DeviceInfo, error) {
	return malgo.EnumerateDevices()
}
