// Package metrics defines the Prometheus collectors exported by pendant-go.
package metrics

import "time"

// Drop stage label values
const (
	StageCapture  = "capture"
	StageTransmit = "transmit"
)

// ShutdownTimeout bounds graceful shutdown of the metrics endpoint
const ShutdownTimeout = 5 * time.Second

// Namespace prefixes every metric name
const Namespace = "pendant"
