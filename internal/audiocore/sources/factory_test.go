package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/audiocore/sources/pattern"
	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/errors"
)

func TestNewSelectsImplementation(t *testing.T) {
	t.Parallel()

	src, err := New(Config{Type: "pattern", SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	assert.IsType(t, &pattern.Source{}, src)

	named, ok := src.(audiocore.NamedSource)
	require.True(t, ok)
	assert.Equal(t, "pattern", named.Name())
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
	}{
		{"unknown type", Config{Type: "rtsp"}},
		{"wav without path", Config{Type: "wav", SampleRate: 16000, Channels: 1}},
		{"malgo bad rate", Config{Type: "malgo", SampleRate: 1, Channels: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.config)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Audio.Source = "wav"
	settings.Audio.WavPath = "/tmp/x.wav"
	settings.Audio.SampleRate = 24000
	settings.Audio.Stereo = true
	settings.Audio.Gain = 1.5

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, Config{
		Type:       "wav",
		WavPath:    "/tmp/x.wav",
		SampleRate: 24000,
		Channels:   2,
		Gain:       1.5,
		Realtime:   true,
	}, cfg)
}
