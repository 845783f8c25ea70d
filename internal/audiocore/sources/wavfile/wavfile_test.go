package wavfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pendant-go/internal/audiocore"
)

// writeTestWAV writes samples as a 16-bit WAV file and returns its path
func writeTestWAV(t *testing.T, sampleRate, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestCaptureLoopsFile(t *testing.T) {
	t.Parallel()

	path := writeTestWAV(t, 16000, 1, []int{1, 2, 3, 4, 5})
	src, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	assert.Equal(t, audiocore.FormatFor(16000, false), src.Format())

	buf := make([]int16, 7)
	require.NoError(t, src.Capture(t.Context(), buf, 16000, false))
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 1, 2}, buf)
	assert.Equal(t, 1, src.Loops())

	require.NoError(t, src.Capture(t.Context(), buf, 16000, false))
	assert.Equal(t, []int16{3, 4, 5, 1, 2, 3, 4}, buf)
	assert.Equal(t, 2, src.Loops())
}

func TestCaptureConvertsChannels(t *testing.T) {
	t.Parallel()

	path := writeTestWAV(t, 16000, 2, []int{100, 300, -50, 50})
	src, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	mono := make([]int16, 2)
	require.NoError(t, src.Capture(t.Context(), mono, 16000, false))
	assert.Equal(t, []int16{200, 0}, mono)

	monoPath := writeTestWAV(t, 16000, 1, []int{7, 9})
	monoSrc, err := Open(monoPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = monoSrc.Close() })

	stereo := make([]int16, 4)
	require.NoError(t, monoSrc.Capture(t.Context(), stereo, 16000, true))
	assert.Equal(t, []int16{7, 7, 9, 9}, stereo)
}

func TestCaptureRateMismatch(t *testing.T) {
	t.Parallel()

	src, err := Open(writeTestWAV(t, 16000, 1, []int{1, 2}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	err = src.Capture(t.Context(), make([]int16, 2), 24000, false)
	assert.ErrorIs(t, err, audiocore.ErrFormatMismatch)
}

func TestOpenRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not riff data"), 0o600))
	_, err = Open(garbage)
	require.Error(t, err)
}

func TestCaptureAfterClose(t *testing.T) {
	t.Parallel()

	src, err := Open(writeTestWAV(t, 16000, 1, []int{1, 2}))
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	err = src.Capture(t.Context(), make([]int16, 2), 16000, false)
	assert.ErrorIs(t, err, audiocore.ErrSourceClosed)
}
