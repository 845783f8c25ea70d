package malgo

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pendant-go/internal/audiocore"
)

func TestNewValidatesFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"mono 16k", Config{SampleRate: 16000, Channels: 1}, false},
		{"stereo 24k", Config{SampleRate: 24000, Channels: 2, Gain: 2}, false},
		{"rate too high", Config{SampleRate: 96000, Channels: 1}, true},
		{"no channels", Config{SampleRate: 16000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src, err := New(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, audiocore.ErrInvalidAudioFormat)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, src.config.Gain)
		})
	}
}

func TestCaptureRejectsFormatMismatchWithoutOpeningDevice(t *testing.T) {
	t.Parallel()

	src, err := New(Config{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)

	err = src.Capture(t.Context(), make([]int16, 16), 24000, false)
	require.ErrorIs(t, err, audiocore.ErrFormatMismatch)
	assert.Nil(t, src.device)
}

func TestCallbackCountsOverruns(t *testing.T) {
	t.Parallel()

	src, err := New(Config{SampleRate: 8000, Channels: 1})
	require.NoError(t, err)

	capacity := src.queue.Capacity()
	src.onAudioData(nil, make([]byte, capacity+100), 0)
	assert.Equal(t, uint64(100), src.Overruns())
	assert.Equal(t, capacity, src.queue.Available())
}

func TestCaptureAfterClose(t *testing.T) {
	t.Parallel()

	src, err := New(Config{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	require.NoError(t, src.Close())

	err = src.Capture(t.Context(), make([]int16, 16), 16000, false)
	assert.ErrorIs(t, err, audiocore.ErrSourceClosed)
}

func TestHexToASCII(t *testing.T) {
	t.Parallel()

	got, err := hexToASCII(hex.EncodeToString([]byte("hw:1,0\x00\x00")))
	require.NoError(t, err)
	assert.Equal(t, "hw:1,0", got)

	_, err = hexToASCII("zz")
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	t.Parallel()

	src, err := New(Config{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	assert.Equal(t, "malgo:default", src.Name())
}
