package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssemblerCarriesOddBytes(t *testing.T) {
	tests := []struct {
		name     string
		payloads [][]byte
		want     []int16
		carries  uint64
		pending  bool
	}{
		{
			name:     "even payloads",
			payloads: [][]byte{{0x01, 0x02}, {0x03, 0x04}},
			want:     []int16{0x0201, 0x0403},
		},
		{
			name:     "odd split completes in next payload",
			payloads: [][]byte{{0x01, 0x02, 0x03}, {0x04, 0x05, 0x06, 0x07, 0x08}},
			want:     []int16{0x0201, 0x0403, 0x0605, 0x0807},
			carries:  1,
		},
		{
			name:     "single byte payloads",
			payloads: [][]byte{{0x01}, {0x02}, {0x03}, {0x04}},
			want:     []int16{0x0201, 0x0403},
			carries:  2,
		},
		{
			name:     "trailing half sample stays pending",
			payloads: [][]byte{{0x01, 0x02, 0x03}},
			want:     []int16{0x0201},
			carries:  1,
			pending:  true,
		},
		{
			name:     "negative sample",
			payloads: [][]byte{{0x00}, {0x80}},
			want:     []int16{-32768},
			carries:  1,
		},
		{
			name:     "empty payload is counted but ignored",
			payloads: [][]byte{{0x01}, {}, {0x02}},
			want:     []int16{0x0201},
			carries:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				asm Assembler
				got []int16
			)
			var total uint64
			for _, p := range tt.payloads {
				got = asm.Push(got, p)
				total += uint64(len(p))
			}

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pending, asm.Pending())

			stats := asm.Stats()
			assert.Equal(t, uint64(len(tt.payloads)), stats.Notifications)
			assert.Equal(t, total, stats.Bytes)
			assert.Equal(t, uint64(len(tt.want)), stats.Samples)
			assert.Equal(t, tt.carries, stats.Carries)
		})
	}
}

func TestAssemblerResetDropsPendingByte(t *testing.T) {
	var asm Assembler
	got := asm.Push(nil, []byte{0xAA})
	assert.Empty(t, got)
	assert.True(t, asm.Pending())

	asm.Reset()
	assert.False(t, asm.Pending())

	got = asm.Push(nil, []byte{0x01, 0x02})
	assert.Equal(t, []int16{0x0201}, got)
}

func TestAssemblerReusesDestination(t *testing.T) {
	var asm Assembler
	buf := make([]int16, 0, 8)

	out := asm.Push(buf[:0], []byte{1, 0, 2, 0})
	assert.Equal(t, []int16{1, 2}, out)
	assert.Equal(t, 8, cap(out))
}
