// Package conf provides configuration management for pendant-go.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Source types accepted by audio.source
const (
	SourcePattern = "pattern"
	SourceMalgo   = "malgo"
	SourceWAV     = "wav"
)

// Radio transports accepted by radio.transport
const (
	TransportWSLink   = "wslink"
	TransportLoopback = "loopback"
)

// PresetM5Stick reproduces the M5StickC firmware timing: 24 kHz, 10000-sample
// blocks, 500-byte chunks, 5 ms notification pacing.
const PresetM5Stick = "m5stick"

// LogSettings controls the central logger
type LogSettings struct {
	Level           string `yaml:"level"`
	Timezone        string `yaml:"timezone"`
	Console         bool   `yaml:"console"`
	FileEnabled     bool   `yaml:"fileenabled"`
	Path            string `yaml:"path"`
	MaxSize         int    `yaml:"maxsize"`         // MB, 0 disables rotation
	MaxAge          int    `yaml:"maxage"`          // days
	MaxRotatedFiles int    `yaml:"maxrotatedfiles"` // backups to keep
	Compress        bool   `yaml:"compress"`

	Modules map[string]string `yaml:"modules"` // per-module level overrides, e.g. pipeline: debug
}

// MainSettings contains identity and logging
type MainSettings struct {
	Name string      `yaml:"name"` // advertised device name
	Log  LogSettings `yaml:"log"`
}

// AudioSettings selects the sample source and block geometry
type AudioSettings struct {
	Source       string  `yaml:"source"`       // pattern, malgo or wav
	Device       string  `yaml:"device"`       // capture device name substring, malgo only
	WavPath      string  `yaml:"wavpath"`      // file replayed by the wav source
	SampleRate   uint32  `yaml:"samplerate"`   // Hz
	BlockSamples int     `yaml:"blocksamples"` // samples per capture cycle, per channel
	Stereo       bool    `yaml:"stereo"`
	Gain         float64 `yaml:"gain"` // linear input gain, malgo only
	Preset       string  `yaml:"preset"`
}

// BufferSettings sizes the byte buffer between capture and transmit
type BufferSettings struct {
	Capacity         int `yaml:"capacity"`         // bytes
	ReleaseThreshold int `yaml:"releasethreshold"` // bytes handed to the transmitter per read
}

// StreamSettings holds pipeline timing
type StreamSettings struct {
	GatePoll         time.Duration `yaml:"gatepoll"`         // sleep while not streaming
	WriteWait        time.Duration `yaml:"writewait"`        // max wait for buffer space per chunk
	ReadTimeout      time.Duration `yaml:"readtimeout"`      // max wait for a release-sized slice
	NotifyPacing     time.Duration `yaml:"notifypacing"`     // delay after each notification
	CaptureBackoff   time.Duration `yaml:"capturebackoff"`   // delay after a failed capture
	ProtocolOverhead int           `yaml:"protocoloverhead"` // bytes reserved per notification
}

// ConnectionSettings holds attach/settle timing
type ConnectionSettings struct {
	Settle time.Duration `yaml:"settle"`
	Tick   time.Duration `yaml:"tick"`
}

// RadioSettings selects and configures the notifier
type RadioSettings struct {
	Transport  string `yaml:"transport"` // wslink or loopback
	Listen     string `yaml:"listen"`    // wslink listen address
	DefaultMTU uint16 `yaml:"defaultmtu"`
	MaxMTU     uint16 `yaml:"maxmtu"`
}

// DiagnosticsSettings controls the periodic status report
type DiagnosticsSettings struct {
	Interval       time.Duration `yaml:"interval"`
	SystemSnapshot bool          `yaml:"systemsnapshot"` // log cpu/mem when drops are sustained
}

// TelemetrySettings controls the metrics and status endpoint
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MQTTSettings controls status publishing
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientid"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Retain   bool   `yaml:"retain"`
}

// ReceiverSettings configures the companion-side recorder
type ReceiverSettings struct {
	URL        string `yaml:"url"`        // ws:// base address of the device
	MTU        uint16 `yaml:"mtu"`        // requested ATT MTU
	OutputPath string `yaml:"outputpath"` // WAV file written by the recorder
	SampleRate int    `yaml:"samplerate"`
	Channels   int    `yaml:"channels"`
}

// Settings is the root configuration
type Settings struct {
	Debug       bool                `yaml:"debug"`
	Main        MainSettings        `yaml:"main"`
	Audio       AudioSettings       `yaml:"audio"`
	Buffer      BufferSettings      `yaml:"buffer"`
	Stream      StreamSettings      `yaml:"stream"`
	Connection  ConnectionSettings  `yaml:"connection"`
	Radio       RadioSettings       `yaml:"radio"`
	Diagnostics DiagnosticsSettings `yaml:"diagnostics"`
	Telemetry   TelemetrySettings   `yaml:"telemetry"`
	MQTT        MQTTSettings        `yaml:"mqtt"`
	Receiver    ReceiverSettings    `yaml:"receiver"`
}

// Channels returns 2 for stereo capture and 1 otherwise
func (s *Settings) Channels() int {
	if s.Audio.Stereo {
		return 2
	}
	return 1
}

// BlockBytes is the serialized size of one audio block
func (s *Settings) BlockBytes() int {
	return s.Audio.BlockSamples * s.Channels() * 2
}

// LoggingConfig converts log settings to the central logger configuration
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Main.Log.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}
	return &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Main.Log.Timezone,
		ModuleLevels: s.Main.Log.Modules,
		Console: &logger.ConsoleOutput{
			Enabled: s.Main.Log.Console,
			Level:   level,
		},
		FileOutput: &logger.FileOutput{
			Enabled:         s.Main.Log.FileEnabled,
			Path:            s.Main.Log.Path,
			Level:           level,
			MaxSize:         s.Main.Log.MaxSize,
			MaxAge:          s.Main.Log.MaxAge,
			MaxRotatedFiles: s.Main.Log.MaxRotatedFiles,
			Compress:        s.Main.Log.Compress,
		},
	}
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, reads the configuration file and binds environment variables.
func initViper() error {
	viper.SetConfigType("yaml")

	if explicit := viper.GetString("config"); explicit != "" {
		viper.SetConfigFile(explicit)
	} else {
		viper.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		// No config file; built-in defaults apply
	}

	// Presets only move defaults, explicit values still win
	applyPresetDefaults(viper.GetString("audio.preset"))

	return nil
}

// DefaultConfig returns the embedded default configuration file.
func DefaultConfig() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// WriteDefaultConfig writes the embedded default configuration to path,
// refusing to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file already exists: %s", path).
			Component("configuration").
			Category(errors.CategoryConflict).
			Build()
	}

	data, err := DefaultConfig()
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // config is not secret by default
		return errors.FileError(err, path, int64(len(data)))
	}
	return nil
}

// GetSettings returns the most recently loaded settings
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Dump renders settings as YAML with secrets masked
func Dump(settings *Settings) ([]byte, error) {
	masked := *settings
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = "[REDACTED]"
	}
	return yaml.Marshal(&masked)
}

// SaveYAMLConfig writes settings to configPath atomically.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
