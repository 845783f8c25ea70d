package radio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pendant-go/internal/errors"
)

func TestClampMTU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mtu, limit uint16
		want       uint16
	}{
		{"below minimum", 10, 247, MinMTU},
		{"within range", 185, 247, 185},
		{"above device limit", 250, 247, 247},
		{"limit above att max", 600, 1000, MaxMTU},
		{"limit below minimum", 100, 5, MinMTU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClampMTU(tt.mtu, tt.limit))
		})
	}
}

func TestPayloadLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 20, PayloadLimit(MinMTU, ATTHeaderSize))
	assert.Equal(t, 185, PayloadLimit(188, ATTHeaderSize))
	assert.Equal(t, 0, PayloadLimit(2, ATTHeaderSize))
}

func TestCharacteristicPath(t *testing.T) {
	t.Parallel()

	path := CharacteristicPath()
	parts := strings.Split(strings.TrimPrefix(path, "/gatt/"), "/")
	require.Len(t, parts, 2)
	assert.True(t, MatchesCharacteristic(parts[0], parts[1]))
	assert.True(t, MatchesCharacteristic(strings.ToUpper(parts[0]), parts[1]))
	assert.False(t, MatchesCharacteristic(parts[1], parts[0]))
	assert.False(t, MatchesCharacteristic("nope", parts[1]))
}

func TestParseControlFrame(t *testing.T) {
	t.Parallel()

	frame, err := ParseControlFrame(MTURequest(RequestedMTU))
	require.NoError(t, err)
	assert.Equal(t, ControlFrame{Op: OpMTU, MTU: 250}, frame)

	for _, bad := range []string{`{`, `{"op":"mtu"}`, `{"op":"reboot"}`} {
		_, err := ParseControlFrame([]byte(bad))
		require.Error(t, err, bad)
		assert.True(t, errors.IsCategory(err, errors.CategoryProtocol), bad)
	}
}
