// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateAudioSettings,
		validateBufferSettings,
		validateStreamSettings,
		validateConnectionSettings,
		validateRadioSettings,
		validateDiagnosticsSettings,
		validateMQTTSettings,
		validateReceiverSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAudioSettings(s *Settings) error {
	var problems []string

	switch s.Audio.Source {
	case SourcePattern, SourceMalgo:
	case SourceWAV:
		if s.Audio.WavPath == "" {
			problems = append(problems, "audio.wavpath is required when audio.source is wav")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown audio.source %q", s.Audio.Source))
	}

	if s.Audio.SampleRate < 8000 || s.Audio.SampleRate > 48000 {
		problems = append(problems, fmt.Sprintf("audio.samplerate %d outside 8000..48000", s.Audio.SampleRate))
	}
	if s.Audio.BlockSamples <= 0 {
		problems = append(problems, "audio.blocksamples must be positive")
	}
	if s.Audio.Gain <= 0 || s.Audio.Gain > 10 {
		problems = append(problems, fmt.Sprintf("audio.gain %.2f outside (0, 10]", s.Audio.Gain))
	}
	if s.Audio.Preset != "" && s.Audio.Preset != PresetM5Stick {
		problems = append(problems, fmt.Sprintf("unknown audio.preset %q", s.Audio.Preset))
	}

	return joinProblems("audio", problems)
}

func validateBufferSettings(s *Settings) error {
	var problems []string

	if s.Buffer.Capacity <= 0 {
		problems = append(problems, "buffer.capacity must be positive")
	}
	if s.Buffer.ReleaseThreshold <= 0 {
		problems = append(problems, "buffer.releasethreshold must be positive")
	}
	if s.Buffer.Capacity > 0 && s.Buffer.ReleaseThreshold > s.Buffer.Capacity {
		problems = append(problems, fmt.Sprintf("buffer.releasethreshold %d exceeds capacity %d",
			s.Buffer.ReleaseThreshold, s.Buffer.Capacity))
	}

	return joinProblems("buffer", problems)
}

func validateStreamSettings(s *Settings) error {
	var problems []string

	durations := map[string]int64{
		"stream.gatepoll":       int64(s.Stream.GatePoll),
		"stream.writewait":      int64(s.Stream.WriteWait),
		"stream.readtimeout":    int64(s.Stream.ReadTimeout),
		"stream.capturebackoff": int64(s.Stream.CaptureBackoff),
	}
	for key, d := range durations {
		if d <= 0 {
			problems = append(problems, key+" must be positive")
		}
	}
	if s.Stream.NotifyPacing < 0 {
		problems = append(problems, "stream.notifypacing must not be negative")
	}
	if s.Stream.ProtocolOverhead < 0 || s.Stream.ProtocolOverhead >= MinMTU {
		problems = append(problems, fmt.Sprintf("stream.protocoloverhead must be in 0..%d", MinMTU-1))
	}

	return joinProblems("stream", problems)
}

func validateConnectionSettings(s *Settings) error {
	var problems []string
	if s.Connection.Settle < 0 {
		problems = append(problems, "connection.settle must not be negative")
	}
	if s.Connection.Tick <= 0 {
		problems = append(problems, "connection.tick must be positive")
	}
	return joinProblems("connection", problems)
}

func validateRadioSettings(s *Settings) error {
	var problems []string

	switch s.Radio.Transport {
	case TransportWSLink:
		if s.Radio.Listen == "" {
			problems = append(problems, "radio.listen is required for the wslink transport")
		}
	case TransportLoopback:
	default:
		problems = append(problems, fmt.Sprintf("unknown radio.transport %q", s.Radio.Transport))
	}

	if s.Radio.DefaultMTU < MinMTU || s.Radio.DefaultMTU > MaxMTU {
		problems = append(problems, fmt.Sprintf("radio.defaultmtu must be in %d..%d", MinMTU, MaxMTU))
	}
	if s.Radio.MaxMTU < s.Radio.DefaultMTU || s.Radio.MaxMTU > MaxMTU {
		problems = append(problems, fmt.Sprintf("radio.maxmtu must be in defaultmtu..%d", MaxMTU))
	}

	return joinProblems("radio", problems)
}

func validateDiagnosticsSettings(s *Settings) error {
	var problems []string
	if s.Diagnostics.Interval <= 0 {
		problems = append(problems, "diagnostics.interval must be positive")
	}
	if s.Telemetry.Enabled && s.Telemetry.Listen == "" {
		problems = append(problems, "telemetry.listen is required when telemetry is enabled")
	}
	return joinProblems("diagnostics", problems)
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}

	var problems []string
	if s.MQTT.Broker == "" {
		problems = append(problems, "mqtt.broker is required when mqtt is enabled")
	} else if u, err := url.Parse(s.MQTT.Broker); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("mqtt.broker %q is not a valid broker URL", s.MQTT.Broker))
	}
	if s.MQTT.Topic == "" {
		problems = append(problems, "mqtt.topic is required when mqtt is enabled")
	}
	return joinProblems("mqtt", problems)
}

func validateReceiverSettings(s *Settings) error {
	var problems []string
	if s.Receiver.MTU != 0 && (s.Receiver.MTU < MinMTU || s.Receiver.MTU > MaxMTU) {
		problems = append(problems, fmt.Sprintf("receiver.mtu must be in %d..%d", MinMTU, MaxMTU))
	}
	if s.Receiver.Channels != 1 && s.Receiver.Channels != 2 {
		problems = append(problems, "receiver.channels must be 1 or 2")
	}
	if s.Receiver.SampleRate <= 0 {
		problems = append(problems, "receiver.samplerate must be positive")
	}
	return joinProblems("receiver", problems)
}

func joinProblems(section string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s settings: %s", section, strings.Join(problems, "; "))
}
