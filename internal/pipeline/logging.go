package pipeline

import "github.com/tphakala/pendant-go/internal/logger"

// GetLogger returns the stream logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("stream")
}
