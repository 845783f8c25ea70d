package receiver

import (
	"slices"

	"github.com/tphakala/pendant-go/internal/audiocore"
)

// Assembler turns notification payloads back into 16-bit samples. The link
// splits the byte stream at arbitrary offsets, so a payload of odd length
// leaves its last byte pending until the next payload completes the sample.
type Assembler struct {
	carry   byte
	pending bool

	notifications uint64
	bytes         uint64
	samples       uint64
	carries       uint64
}

// AssemblerStats counts what an Assembler has consumed
type AssemblerStats struct {
	Notifications uint64 `json:"notifications"`
	Bytes         uint64 `json:"bytes"`
	Samples       uint64 `json:"samples"`
	Carries       uint64 `json:"carries"` // payloads that ended mid-sample
}

// Push decodes payload and appends the completed samples to dst.
func (a *Assembler) Push(dst []int16, payload []byte) []int16 {
	a.notifications++
	a.bytes += uint64(len(payload))
	if len(payload) == 0 {
		return dst
	}

	before := len(dst)
	if a.pending {
		dst = append(dst, int16(uint16(a.carry)|uint16(payload[0])<<8)) //nolint:gosec // reinterpreting PCM bits
		payload = payload[1:]
		a.pending = false
	}

	n := len(payload) / 2
	start := len(dst)
	dst = slices.Grow(dst, n)[:start+n]
	audiocore.DecodeLE(dst[start:], payload[:n*2])

	if len(payload)%2 == 1 {
		a.carry = payload[len(payload)-1]
		a.pending = true
		a.carries++
	}

	a.samples += uint64(len(dst) - before)
	return dst
}

// Pending reports whether half a sample is waiting for the next payload
func (a *Assembler) Pending() bool {
	return a.pending
}

// Reset discards a pending byte, as when the link restarts mid-stream
func (a *Assembler) Reset() {
	a.pending = false
	a.carry = 0
}

// Stats returns the counters
func (a *Assembler) Stats() AssemblerStats {
	return AssemblerStats{
		Notifications: a.notifications,
		Bytes:         a.bytes,
		Samples:       a.samples,
		Carries:       a.carries,
	}
}
