package pipeline

import "sync/atomic"

// Stats are the cumulative stream counters. Capture-side counters are written
// only by the capture task and transmit-side counters only by the transmit
// task; both are reset on every attach.
type Stats struct {
	// capture task
	framesCaptured atomic.Uint64
	bytesDropped   atomic.Uint64
	highWaterMark  atomic.Uint64
	captureFaults  atomic.Uint64

	// transmit task
	notificationsSent atomic.Uint64
	bytesSent         atomic.Uint64
	notifyFaults      atomic.Uint64
	transmitDropped   atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	FramesCaptured    uint64 `json:"frames_captured"`
	BytesDropped      uint64 `json:"bytes_dropped"`    // buffer overflow on the capture side
	TransmitDropped   uint64 `json:"transmit_dropped"` // slice remainders abandoned by the transmitter
	HighWaterMark     uint64 `json:"high_water_mark"`
	CaptureFaults     uint64 `json:"capture_faults"`
	NotificationsSent uint64 `json:"notifications_sent"`
	BytesSent         uint64 `json:"bytes_sent"`
	NotifyFaults      uint64 `json:"notify_faults"`
}

// TotalDropped sums both drop counters
func (s Snapshot) TotalDropped() uint64 {
	return s.BytesDropped + s.TransmitDropped
}

// Snapshot copies the counters
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		FramesCaptured:    s.framesCaptured.Load(),
		BytesDropped:      s.bytesDropped.Load(),
		TransmitDropped:   s.transmitDropped.Load(),
		HighWaterMark:     s.highWaterMark.Load(),
		CaptureFaults:     s.captureFaults.Load(),
		NotificationsSent: s.notificationsSent.Load(),
		BytesSent:         s.bytesSent.Load(),
		NotifyFaults:      s.notifyFaults.Load(),
	}
}

// Reset zeroes every counter
func (s *Stats) Reset() {
	s.framesCaptured.Store(0)
	s.bytesDropped.Store(0)
	s.highWaterMark.Store(0)
	s.captureFaults.Store(0)
	s.notificationsSent.Store(0)
	s.bytesSent.Store(0)
	s.notifyFaults.Store(0)
	s.transmitDropped.Store(0)
}

// observeLevel raises the high-water mark to level if it is higher
func (s *Stats) observeLevel(level int) {
	l := uint64(level) //nolint:gosec // buffer level is never negative
	for {
		cur := s.highWaterMark.Load()
		if l <= cur || s.highWaterMark.CompareAndSwap(cur, l) {
			return
		}
	}
}
