package pipeline

import (
	"context"

	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/radio"
)

// runTransmit is the transmit task
func (p *Pipeline) runTransmit(ctx context.Context) error {
	slice := make([]byte, p.buffer.ReleaseThreshold())

	for ctx.Err() == nil {
		if !p.machine.Refresh() {
			sleep(ctx, p.config.GatePoll)
			continue
		}

		n := p.buffer.ReadBlocking(ctx, slice, p.config.ReadTimeout)
		if n == 0 {
			continue
		}
		p.recorder.SetBufferLevel(p.buffer.Available())
		p.emit(ctx, slice[:n])
	}
	return nil
}

// emit sends data as a run of notifications. The payload limit is re-read
// from the notifier before every notification. Leaving Streaming, a limit of
// zero or a notify error abandons the rest of data.
func (p *Pipeline) emit(ctx context.Context, data []byte) {
	threshold := p.buffer.ReleaseThreshold()

	for off := 0; off < len(data); {
		if !p.machine.Streaming() {
			p.dropTail(len(data)-off, "link left streaming state")
			return
		}

		mtu := p.notifier.MaxPayloadSize()
		limit := radio.PayloadLimit(mtu, p.config.ProtocolOverhead)
		if limit <= 0 {
			p.dropTail(len(data)-off, "mtu leaves no room for payload")
			return
		}
		size := min(threshold, limit, len(data)-off)

		p.notifier.SetPayload(data[off : off+size])
		if err := p.notifier.Notify(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.stats.notifyFaults.Add(1)
			p.recorder.RecordNotifyFault()
			if p.notifyFaultLimiter.Allow() {
				p.transmitLog.Warn("notification failed",
					logger.Error(err),
					logger.Int("mtu", int(mtu)),
					logger.Int("payload", size),
					logger.Uint64("notify_faults", p.stats.notifyFaults.Load()))
			}
			p.dropTail(len(data)-off, "")
			return
		}

		p.stats.notificationsSent.Add(1)
		p.stats.bytesSent.Add(uint64(size)) //nolint:gosec // positive by construction
		p.recorder.RecordNotification(size)
		off += size

		if !sleep(ctx, p.config.NotifyPacing) {
			return
		}
	}
}

// dropTail counts bytes of a slice that will never be sent
func (p *Pipeline) dropTail(n int, reason string) {
	if n <= 0 {
		return
	}
	p.stats.transmitDropped.Add(uint64(n)) //nolint:gosec // positive by construction
	p.recorder.RecordDropped(StageTransmit, n)
	if reason != "" {
		p.transmitLog.Debug("abandoning slice", logger.String("reason", reason), logger.Int("bytes", n))
	}
}
