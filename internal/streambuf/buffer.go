// Package streambuf provides the bounded byte buffer that hands captured audio
// from the capture task to the transmit task.
//
// The buffer never overwrites unread bytes: a write that does not fit is
// partially accepted and the caller is told how much was taken. Reads are
// released in threshold-sized slices so that the transmitter emits full
// notifications, with the remaining tail released when a read times out.
package streambuf

import (
	"context"
	"sync"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/pendant-go/internal/errors"
)

// Buffer is a fixed-capacity FIFO byte buffer for one producer and one consumer.
// All methods are safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	ring      *ringbuffer.RingBuffer
	capacity  int
	threshold int
	changed   chan struct{} // closed and replaced on every write, read and reset
}

// New creates a buffer holding at most capacity bytes that releases reads once
// releaseThreshold bytes are available.
func New(capacity, releaseThreshold int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errors.Newf("buffer capacity must be positive, got %d", capacity).
			Component("streambuf").
			Category(errors.CategoryValidation).
			Context("capacity", capacity).
			Build()
	}
	if releaseThreshold <= 0 || releaseThreshold > capacity {
		return nil, errors.Newf("release threshold %d must be in 1..%d", releaseThreshold, capacity).
			Component("streambuf").
			Category(errors.CategoryValidation).
			Context("capacity", capacity).
			Context("release_threshold", releaseThreshold).
			Build()
	}

	return &Buffer{
		ring:      ringbuffer.New(capacity),
		capacity:  capacity,
		threshold: releaseThreshold,
		changed:   make(chan struct{}),
	}, nil
}

// broadcastLocked wakes every waiter. Caller must hold b.mu.
func (b *Buffer) broadcastLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// writeLocked copies as much of p as fits. Caller must hold b.mu.
func (b *Buffer) writeLocked(p []byte) int {
	free := b.ring.Free()
	if free <= 0 || len(p) == 0 {
		return 0
	}
	if len(p) > free {
		p = p[:free]
	}
	// p fits, so a short count only happens on a ring fault; trust n either way
	n, _ := b.ring.Write(p)
	if n > 0 {
		b.broadcastLocked()
	}
	return n
}

// readLocked copies up to len(p) buffered bytes. Caller must hold b.mu.
func (b *Buffer) readLocked(p []byte) int {
	if len(p) == 0 || b.ring.Length() == 0 {
		return 0
	}
	n, _ := b.ring.Read(p)
	if n > 0 {
		b.broadcastLocked()
	}
	return n
}

// Write copies up to the free space from p without blocking and returns the
// number of bytes accepted. It never returns more than len(p) or the free space.
func (b *Buffer) Write(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeLocked(p)
}

// WriteBlocking writes p, waiting up to timeout for space to free up.
// It returns the number of bytes accepted, which is less than len(p) when the
// timeout expires or ctx is cancelled first.
func (b *Buffer) WriteBlocking(ctx context.Context, p []byte, timeout time.Duration) int {
	written := 0
	var timer *time.Timer

	for {
		b.mu.Lock()
		written += b.writeLocked(p[written:])
		if written == len(p) {
			b.mu.Unlock()
			break
		}
		wait := b.changed
		b.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-wait:
			continue
		case <-timer.C:
		case <-ctx.Done():
		}

		// One last attempt so space freed at the deadline is not wasted
		b.mu.Lock()
		written += b.writeLocked(p[written:])
		b.mu.Unlock()
		break
	}

	if timer != nil {
		timer.Stop()
	}
	return written
}

// ReadBlocking waits until min(release threshold, len(p)) bytes are buffered or
// timeout elapses, then copies up to len(p) bytes into p. On timeout the bytes
// already buffered are returned even if fewer than the threshold, so the tail of
// a stream is never stranded. It returns 0 when nothing is buffered at expiry or
// ctx is cancelled.
func (b *Buffer) ReadBlocking(ctx context.Context, p []byte, timeout time.Duration) int {
	if len(p) == 0 {
		return 0
	}
	need := min(b.threshold, len(p))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		b.mu.Lock()
		if b.ring.Length() >= need {
			n := b.readLocked(p)
			b.mu.Unlock()
			return n
		}
		wait := b.changed
		b.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-wait:
			continue
		case <-ctx.Done():
			return 0
		case <-timer.C:
			b.mu.Lock()
			n := b.readLocked(p)
			b.mu.Unlock()
			return n
		}
	}
}

// Reset discards all buffered bytes and wakes every waiter.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring.Reset()
	b.broadcastLocked()
}

// Available returns the number of buffered bytes. The value is advisory.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.Length()
}

// Free returns the number of bytes that can be written without blocking.
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.Free()
}

// Capacity returns the fixed capacity in bytes.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// ReleaseThreshold returns the read release threshold in bytes.
func (b *Buffer) ReleaseThreshold() int {
	return b.threshold
}
