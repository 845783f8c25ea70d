// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with the validation code and tests
const (
	DefaultSampleRate       = 16000
	DefaultBlockSamples     = 1600 // 100 ms at 16 kHz
	DefaultBufferCapacity   = 32 * 1024
	DefaultReleaseThreshold = 512
	DefaultProtocolOverhead = 3 // ATT notification header
	DefaultMTU              = 247
	MinMTU                  = 23
	MaxMTU                  = 517
	DefaultRequestedMTU     = 250
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "SmartPendant")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.timezone", "Local")
	viper.SetDefault("main.log.console", true)
	viper.SetDefault("main.log.fileenabled", false)
	viper.SetDefault("main.log.path", "logs/pendant.log")
	viper.SetDefault("main.log.maxsize", 50)
	viper.SetDefault("main.log.maxage", 14)
	viper.SetDefault("main.log.maxrotatedfiles", 5)
	viper.SetDefault("main.log.compress", false)

	viper.SetDefault("audio.source", SourcePattern)
	viper.SetDefault("audio.device", "")
	viper.SetDefault("audio.wavpath", "")
	viper.SetDefault("audio.samplerate", DefaultSampleRate)
	viper.SetDefault("audio.blocksamples", DefaultBlockSamples)
	viper.SetDefault("audio.stereo", false)
	viper.SetDefault("audio.gain", 1.0)
	viper.SetDefault("audio.preset", "")

	viper.SetDefault("buffer.capacity", DefaultBufferCapacity)
	viper.SetDefault("buffer.releasethreshold", DefaultReleaseThreshold)

	viper.SetDefault("stream.gatepoll", 20*time.Millisecond)
	viper.SetDefault("stream.writewait", 30*time.Millisecond)
	viper.SetDefault("stream.readtimeout", 50*time.Millisecond)
	viper.SetDefault("stream.notifypacing", 5*time.Millisecond)
	viper.SetDefault("stream.capturebackoff", 100*time.Millisecond)
	viper.SetDefault("stream.protocoloverhead", DefaultProtocolOverhead)

	viper.SetDefault("connection.settle", 1500*time.Millisecond)
	viper.SetDefault("connection.tick", 50*time.Millisecond)

	viper.SetDefault("radio.transport", TransportWSLink)
	viper.SetDefault("radio.listen", ":8765")
	viper.SetDefault("radio.defaultmtu", MinMTU)
	viper.SetDefault("radio.maxmtu", DefaultMTU)

	viper.SetDefault("diagnostics.interval", 5*time.Second)
	viper.SetDefault("diagnostics.systemsnapshot", true)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "127.0.0.1:8090")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "pendant/status")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("receiver.url", "ws://localhost:8765")
	viper.SetDefault("receiver.mtu", DefaultRequestedMTU)
	viper.SetDefault("receiver.outputpath", "recordings/pendant.wav")
	viper.SetDefault("receiver.samplerate", DefaultSampleRate)
	viper.SetDefault("receiver.channels", 1)
}

// applyPresetDefaults moves defaults to match a named hardware preset
func applyPresetDefaults(preset string) {
	switch preset {
	case PresetM5Stick:
		viper.SetDefault("audio.samplerate", 24000)
		viper.SetDefault("audio.blocksamples", 10000)
		viper.SetDefault("buffer.capacity", 64*1024)
		viper.SetDefault("buffer.releasethreshold", 500)
		viper.SetDefault("stream.notifypacing", 5*time.Millisecond)
		viper.SetDefault("receiver.samplerate", 24000)
	}
}
