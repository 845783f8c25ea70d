package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// loadFromYAML resets viper and loads settings from a temporary config file
func loadFromYAML(t *testing.T, content string) (*Settings, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	viper.Set("config", path)

	return Load()
}

func TestLoadDefaults(t *testing.T) {
	settings, err := loadFromYAML(t, "main:\n  name: TestPendant\n")
	require.NoError(t, err)

	assert.Equal(t, "TestPendant", settings.Main.Name)
	assert.Equal(t, SourcePattern, settings.Audio.Source)
	assert.Equal(t, uint32(DefaultSampleRate), settings.Audio.SampleRate)
	assert.Equal(t, DefaultBlockSamples, settings.Audio.BlockSamples)
	assert.Equal(t, DefaultBufferCapacity, settings.Buffer.Capacity)
	assert.Equal(t, DefaultReleaseThreshold, settings.Buffer.ReleaseThreshold)
	assert.Equal(t, 1500*time.Millisecond, settings.Connection.Settle)
	assert.Equal(t, 5*time.Millisecond, settings.Stream.NotifyPacing)
	assert.Equal(t, DefaultProtocolOverhead, settings.Stream.ProtocolOverhead)
	assert.Equal(t, 3200, settings.BlockBytes())
	assert.Same(t, settings, GetSettings())
}

func TestLoadEmbeddedDefaultConfig(t *testing.T) {
	data, err := DefaultConfig()
	require.NoError(t, err)

	settings, err := loadFromYAML(t, string(data))
	require.NoError(t, err)
	assert.Equal(t, TransportWSLink, settings.Radio.Transport)
	assert.Equal(t, uint16(DefaultRequestedMTU), settings.Receiver.MTU)
}

func TestLoadM5StickPreset(t *testing.T) {
	settings, err := loadFromYAML(t, "audio:\n  preset: m5stick\n")
	require.NoError(t, err)

	assert.Equal(t, uint32(24000), settings.Audio.SampleRate)
	assert.Equal(t, 10000, settings.Audio.BlockSamples)
	assert.Equal(t, 500, settings.Buffer.ReleaseThreshold)
}

func TestPresetDoesNotOverrideExplicitValues(t *testing.T) {
	settings, err := loadFromYAML(t, "audio:\n  preset: m5stick\n  samplerate: 16000\n")
	require.NoError(t, err)

	assert.Equal(t, uint32(16000), settings.Audio.SampleRate)
	assert.Equal(t, 10000, settings.Audio.BlockSamples)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PENDANT_RELEASE_THRESHOLD", "256")
	t.Setenv("PENDANT_SETTLE_DELAY", "250ms")

	settings, err := loadFromYAML(t, "buffer:\n  releasethreshold: 128\n")
	require.NoError(t, err)

	assert.Equal(t, 256, settings.Buffer.ReleaseThreshold)
	assert.Equal(t, 250*time.Millisecond, settings.Connection.Settle)
}

func TestInvalidEnvironmentValue(t *testing.T) {
	t.Setenv("PENDANT_BUFFER_CAPACITY", "lots")

	_, err := loadFromYAML(t, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PENDANT_BUFFER_CAPACITY")
}

func TestValidateSettingsCollectsAllProblems(t *testing.T) {
	settings, err := loadFromYAML(t, "")
	require.NoError(t, err)

	bad := *settings
	bad.Buffer.Capacity = 100
	bad.Buffer.ReleaseThreshold = 200
	bad.Audio.Source = "bluetooth"
	bad.Radio.DefaultMTU = 10

	err = ValidateSettings(&bad)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
	assert.Contains(t, err.Error(), "releasethreshold 200 exceeds capacity 100")
}

func TestValidateWavSourceRequiresPath(t *testing.T) {
	settings, err := loadFromYAML(t, "")
	require.NoError(t, err)

	s := *settings
	s.Audio.Source = SourceWAV
	err = ValidateSettings(&s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio.wavpath")
}

func TestDumpMasksPassword(t *testing.T) {
	settings, err := loadFromYAML(t, "mqtt:\n  password: hunter22\n")
	require.NoError(t, err)

	out, err := Dump(settings)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter22")
	assert.Equal(t, "hunter22", settings.MQTT.Password, "dump must not modify settings")

	var roundTrip Settings
	require.NoError(t, yaml.Unmarshal(out, &roundTrip))
	assert.Equal(t, settings.Buffer, roundTrip.Buffer)
}

func TestWriteDefaultConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))
	require.Error(t, WriteDefaultConfig(path))
}

func TestLoggingConfigFromSettings(t *testing.T) {
	settings, err := loadFromYAML(t, "debug: true\n")
	require.NoError(t, err)

	lc := settings.LoggingConfig()
	assert.Equal(t, "debug", lc.DefaultLevel)
	assert.Equal(t, "debug", lc.Console.Level)
	assert.False(t, lc.FileOutput.Enabled)
}

func TestModuleLogLevelsFromYAML(t *testing.T) {
	settings, err := loadFromYAML(t, "main:\n  log:\n    modules:\n      pipeline: debug\n")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"pipeline": "debug"}, settings.LoggingConfig().ModuleLevels)
}
