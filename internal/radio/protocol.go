// Package radio holds the pendant's link protocol: the GATT identifiers the
// audio characteristic is published under, ATT MTU bounds and the control
// frames used by the WebSocket link emulation.
package radio

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tphakala/pendant-go/internal/errors"
)

// GATT identifiers of the audio stream
var (
	ServiceUUID        = uuid.MustParse("4fafc201-1fb5-459e-8fcc-c5c9c331914b")
	CharacteristicUUID = uuid.MustParse("beb5483e-36e1-4688-b7f5-ea07361b26a8")
)

// ATT limits
const (
	// ATTHeaderSize is the notification header: opcode plus attribute handle
	ATTHeaderSize = 3
	// MinMTU is the ATT default before any exchange
	MinMTU uint16 = 23
	// MaxMTU is the largest MTU the ATT layer allows
	MaxMTU uint16 = 517
	// RequestedMTU is what the companion app asks for after connecting
	RequestedMTU uint16 = 250
)

// ClampMTU limits mtu to MinMTU..limit, limit itself clamped to MaxMTU
func ClampMTU(mtu, limit uint16) uint16 {
	limit = min(max(limit, MinMTU), MaxMTU)
	return min(max(mtu, MinMTU), limit)
}

// PayloadLimit is the largest notification payload for mtu with the given
// per-notification overhead. It returns 0 when nothing fits.
func PayloadLimit(mtu uint16, overhead int) int {
	return max(int(mtu)-overhead, 0)
}

// CharacteristicPath is the HTTP path the link emulation serves the audio
// characteristic on
func CharacteristicPath() string {
	return fmt.Sprintf("/gatt/%s/%s", ServiceUUID, CharacteristicUUID)
}

// MatchesCharacteristic reports whether the service and characteristic
// strings name the audio stream. Parsing accepts any UUID spelling.
func MatchesCharacteristic(service, characteristic string) bool {
	svc, err := uuid.Parse(service)
	if err != nil {
		return false
	}
	chr, err := uuid.Parse(characteristic)
	if err != nil {
		return false
	}
	return svc == ServiceUUID && chr == CharacteristicUUID
}

// Control frame operations
const (
	OpMTU = "mtu"
)

// ControlFrame is a JSON text frame exchanged over the link emulation
type ControlFrame struct {
	Op  string `json:"op"`
	MTU uint16 `json:"mtu,omitempty"`
}

// ParseControlFrame decodes and validates a control frame
func ParseControlFrame(data []byte) (ControlFrame, error) {
	var frame ControlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, errors.New(err).
			Component("radio").
			Category(errors.CategoryProtocol).
			Context("operation", "parse_control_frame").
			Build()
	}
	switch frame.Op {
	case OpMTU:
		if frame.MTU == 0 {
			return frame, errors.Newf("mtu control frame without mtu value").
				Component("radio").
				Category(errors.CategoryProtocol).
				Build()
		}
	default:
		return frame, errors.Newf("unknown control op %q", frame.Op).
			Component("radio").
			Category(errors.CategoryProtocol).
			Build()
	}
	return frame, nil
}

// MTURequest encodes an MTU exchange request
func MTURequest(mtu uint16) []byte {
	data, _ := json.Marshal(ControlFrame{Op: OpMTU, MTU: mtu})
	return data
}
