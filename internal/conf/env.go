// env.go - Environment variable configuration and validation for pendant-go
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PENDANT_DEBUG", validateEnvBool},
		{"main.log.level", "PENDANT_LOG_LEVEL", validateEnvLogLevel},

		{"audio.source", "PENDANT_AUDIO_SOURCE", validateEnvSource},
		{"audio.device", "PENDANT_AUDIO_DEVICE", nil},
		{"audio.wavpath", "PENDANT_AUDIO_WAVPATH", nil},
		{"audio.samplerate", "PENDANT_SAMPLE_RATE", validateEnvPositiveInt},
		{"audio.blocksamples", "PENDANT_BLOCK_SAMPLES", validateEnvPositiveInt},
		{"audio.preset", "PENDANT_PRESET", nil},

		{"buffer.capacity", "PENDANT_BUFFER_CAPACITY", validateEnvPositiveInt},
		{"buffer.releasethreshold", "PENDANT_RELEASE_THRESHOLD", validateEnvPositiveInt},

		{"connection.settle", "PENDANT_SETTLE_DELAY", validateEnvDuration},

		{"radio.transport", "PENDANT_RADIO_TRANSPORT", nil},
		{"radio.listen", "PENDANT_RADIO_LISTEN", nil},

		{"telemetry.enabled", "PENDANT_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.listen", "PENDANT_TELEMETRY_LISTEN", nil},

		{"mqtt.enabled", "PENDANT_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "PENDANT_MQTT_BROKER", nil},
		{"mqtt.username", "PENDANT_MQTT_USERNAME", nil},
		{"mqtt.password", "PENDANT_MQTT_PASSWORD", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 1500ms")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

func validateEnvSource(value string) error {
	switch value {
	case SourcePattern, SourceMalgo, SourceWAV:
		return nil
	}
	return fmt.Errorf("must be one of %s, %s, %s", SourcePattern, SourceMalgo, SourceWAV)
}
