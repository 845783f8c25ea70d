package diagnostics

import "github.com/tphakala/pendant-go/internal/logger"

// GetLogger returns the diagnostics logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("diagnostics")
}
