// Package observability serves Prometheus metrics and the stream status over HTTP.
package observability

import "github.com/tphakala/pendant-go/internal/logger"

// GetLogger returns the telemetry logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
