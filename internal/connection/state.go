package connection

import "time"

// State is the link state seen by the capture and transmit tasks
type State int32

const (
	// Disconnected means no client is attached; nothing is sampled or sent
	Disconnected State = iota
	// Settling means a client attached and the settle delay is running
	Settling
	// Streaming means audio flows to the client
	Streaming
)

// String returns the lower-case state name
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Settling:
		return "settling"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Transition records a state change
type Transition struct {
	From State
	To   State
	At   time.Time
}
