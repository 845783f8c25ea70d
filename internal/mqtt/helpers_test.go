package mqtt

import (
	"io"

	"github.com/tphakala/pendant-go/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}
