package receiver

import (
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/errors"
)

// WAVWriter records 16-bit PCM samples to a WAV file
type WAVWriter struct {
	path    string
	file    *os.File
	enc     *wav.Encoder
	buf     *audio.IntBuffer
	samples uint64
}

// CreateWAV creates path, including parent directories, and writes a WAV
// header for sampleRate and channels. The header is finalized by Close.
func CreateWAV(path string, sampleRate, channels int) (*WAVWriter, error) {
	if sampleRate <= 0 || channels < 1 || channels > 2 {
		return nil, errors.Newf("unsupported wav format %d Hz, %d channels", sampleRate, channels).
			Component("receiver").
			Category(errors.CategoryValidation).
			Build()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileError(err, dir, 0)
		}
	}

	file, err := os.Create(path) //nolint:gosec // output path comes from configuration
	if err != nil {
		return nil, errors.FileError(err, path, 0)
	}

	format := &audio.Format{SampleRate: sampleRate, NumChannels: channels}
	return &WAVWriter{
		path: path,
		file: file,
		enc:  wav.NewEncoder(file, sampleRate, audiocore.BitDepth, channels, 1),
		buf:  &audio.IntBuffer{Format: format, SourceBitDepth: audiocore.BitDepth},
	}, nil
}

// Write appends interleaved samples
func (w *WAVWriter) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	if err := w.enc.Write(w.buf); err != nil {
		return errors.New(err).
			Component("receiver").
			Category(errors.CategoryFileIO).
			Context("path", w.path).
			Build()
	}
	w.samples += uint64(len(samples))
	return nil
}

// Samples returns the number of samples written
func (w *WAVWriter) Samples() uint64 {
	return w.samples
}

// Path returns the output file path
func (w *WAVWriter) Path() string {
	return w.path
}

// Close finalizes the header and closes the file
func (w *WAVWriter) Close() error {
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if err := errors.Join(encErr, fileErr); err != nil {
		return errors.FileError(err, w.path, 0)
	}
	return nil
}
