package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultBufferSize batches roughly a few hundred JSON entries per write
	DefaultBufferSize = 32 * 1024

	// DefaultFlushInterval bounds how long an entry can sit in the buffer
	DefaultFlushInterval = 5 * time.Second
)

// BufferedFileWriter buffers log output in front of a plain file or, when
// rotation is configured, a lumberjack.Logger. Safe for concurrent use.
type BufferedFileWriter struct {
	filePath      string
	bufferSize    int
	flushInterval time.Duration
	rotation      RotationConfig

	mu      sync.Mutex
	writer  *bufio.Writer // nil after Close
	file    *os.File      // plain sink
	rotator *lumberjack.Logger

	stop chan struct{}
	done chan struct{}
}

// BufferedWriterOption configures a BufferedFileWriter
type BufferedWriterOption func(*BufferedFileWriter)

// WithBufferSize sets the buffer size
func WithBufferSize(size int) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		if size > 0 {
			w.bufferSize = size
		}
	}
}

// WithFlushInterval sets the auto-flush period, 0 disables auto-flush
func WithFlushInterval(interval time.Duration) BufferedWriterOption {
	return func(w *BufferedFileWriter) { w.flushInterval = interval }
}

// WithRotation routes writes through lumberjack with the given limits
func WithRotation(rc RotationConfig) BufferedWriterOption {
	return func(w *BufferedFileWriter) { w.rotation = rc }
}

// NewBufferedFileWriter opens filePath for appending
func NewBufferedFileWriter(filePath string, opts ...BufferedWriterOption) (*BufferedFileWriter, error) {
	w := &BufferedFileWriter{
		filePath:      filePath,
		bufferSize:    DefaultBufferSize,
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}

	var sink io.Writer
	if w.rotation.IsEnabled() {
		w.rotator = &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    w.rotation.MaxSize,
			MaxAge:     w.rotation.MaxAge,
			MaxBackups: w.rotation.MaxBackups,
			Compress:   w.rotation.Compress,
		}
		sink = w.rotator
	} else {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from config
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
		}
		w.file = file
		sink = file
	}
	w.writer = bufio.NewWriterSize(sink, w.bufferSize)

	if w.flushInterval > 0 {
		w.stop = make(chan struct{})
		w.done = make(chan struct{})
		go w.flushLoop()
	}
	return w, nil
}

func (w *BufferedFileWriter) flushLoop() {
	defer close(w.done)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			// errors resurface on the next Write
			_ = w.Flush()
		}
	}
}

// Write buffers p
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return 0, fmt.Errorf("log writer for %s is closed", w.filePath)
	}
	return w.writer.Write(p)
}

// Flush hands buffered bytes to the OS without fsync
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *BufferedFileWriter) flushLocked() error {
	if w.writer == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush log buffer: %w", err)
	}
	return nil
}

// Sync flushes and fsyncs a plain file
func (w *BufferedFileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *BufferedFileWriter) syncLocked() error {
	if err := w.flushLocked(); err != nil {
		return err
	}
	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return nil
}

// Close syncs and closes the sink. Calling Close again is a no-op.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.writer == nil {
		w.mu.Unlock()
		return nil
	}
	stop := w.stop
	w.stop = nil
	w.mu.Unlock()

	if stop != nil {
		close(stop)
		<-w.done
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	errs := []error{w.syncLocked()}
	if w.file != nil {
		errs = append(errs, w.file.Close())
		w.file = nil
	}
	if w.rotator != nil {
		errs = append(errs, w.rotator.Close())
		w.rotator = nil
	}
	w.writer = nil
	return errors.Join(errs...)
}

// FilePath returns the path of the log file
func (w *BufferedFileWriter) FilePath() string {
	return w.filePath
}

// Buffered returns the number of bytes not yet handed to the OS
func (w *BufferedFileWriter) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return 0
	}
	return w.writer.Buffered()
}

// Rotate starts a new file. It is a no-op without rotation.
func (w *BufferedFileWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rotator == nil {
		return nil
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	return w.rotator.Rotate()
}

var _ io.WriteCloser = (*BufferedFileWriter)(nil)
