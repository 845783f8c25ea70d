package pipeline

import (
	"context"
	"time"

	"github.com/tphakala/pendant-go/internal/logger"
)

// haltInterval is how often Halt wakes while idling
const haltInterval = time.Second

// Halt logs a fatal initialization fault and idles until ctx is done. The
// process stays up without streaming so a supervisor sees a live but inert
// device rather than a crash loop.
func Halt(ctx context.Context, err error) {
	log := GetLogger()
	log.Error("fatal initialization fault, halting", logger.Error(err))
	_ = log.Flush()

	ticker := time.NewTicker(haltInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
