package audiocore

import (
	"encoding/binary"
	"math"
)

// EncodeLE serializes samples little-endian into dst, growing it when needed,
// and returns the filled slice
func EncodeLE(dst []byte, samples []int16) []byte {
	n := len(samples) * BytesPerSample
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(s)) //nolint:gosec // two's complement reinterpretation
	}
	return dst
}

// DecodeLE parses little-endian samples from src into dst and returns the
// number of samples written. A trailing odd byte is ignored.
func DecodeLE(dst []int16, src []byte) int {
	n := min(len(src)/BytesPerSample, len(dst))
	for i := range n {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*BytesPerSample:])) //nolint:gosec // two's complement reinterpretation
	}
	return n
}

// ApplyGain scales samples in place, clipping at the int16 limits
func ApplyGain(samples []int16, gain float64) {
	if gain == 1.0 {
		return
	}
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > math.MaxInt16:
			samples[i] = math.MaxInt16
		case v < math.MinInt16:
			samples[i] = math.MinInt16
		default:
			samples[i] = int16(v)
		}
	}
}

// DownmixToMono averages interleaved stereo pairs into dst and returns the
// number of mono samples written
func DownmixToMono(dst, stereo []int16) int {
	n := min(len(stereo)/2, len(dst))
	for i := range n {
		dst[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return n
}

// DuplicateToStereo expands mono samples into interleaved stereo pairs in dst
// and returns the number of frames written
func DuplicateToStereo(dst, mono []int16) int {
	n := min(len(mono), len(dst)/2)
	for i := range n {
		dst[2*i] = mono[i]
		dst[2*i+1] = mono[i]
	}
	return n
}
