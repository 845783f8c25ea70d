package pipeline

import (
	"context"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/logger"
)

// runCapture is the capture task. One block is captured, serialized and
// written or abandoned before the next capture starts. A block whose capture
// spanned a detach or a new attach belongs to another session and is
// discarded uncounted.
func (p *Pipeline) runCapture(ctx context.Context) error {
	block := make([]int16, p.config.BlockSamples*p.config.Channels())
	wire := make([]byte, 0, p.config.BlockBytes())

	for ctx.Err() == nil {
		if !p.machine.Refresh() {
			sleep(ctx, p.config.GatePoll)
			continue
		}
		session := p.machine.Attaches()

		if err := p.source.Capture(ctx, block, p.config.SampleRate, p.config.Stereo); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.stats.captureFaults.Add(1)
			p.recorder.RecordCaptureFault()
			if p.captureFaultLimiter.Allow() {
				p.captureLog.Warn("audio capture failed, retrying",
					logger.Error(err),
					logger.Uint64("capture_faults", p.stats.captureFaults.Load()),
					logger.Duration("backoff", p.config.CaptureBackoff))
			}
			sleep(ctx, p.config.CaptureBackoff)
			continue
		}

		if !p.machine.Streaming() || p.machine.Attaches() != session {
			p.captureLog.Debug("discarding block from previous session")
			continue
		}

		p.stats.framesCaptured.Add(1)
		wire = audiocore.EncodeLE(wire, block)
		p.recorder.RecordBlockCaptured(len(wire))
		p.writeBlock(ctx, wire)
	}
	return nil
}

// writeBlock splits a serialized block into release-threshold sized
// sub-chunks. The first sub-chunk not fully accepted ends the block: its
// shortfall and every remaining byte of the block count as dropped.
func (p *Pipeline) writeBlock(ctx context.Context, wire []byte) {
	chunk := p.buffer.ReleaseThreshold()

	for off := 0; off < len(wire); off += chunk {
		end := min(off+chunk, len(wire))
		n := p.buffer.WriteBlocking(ctx, wire[off:end], p.config.WriteWait)

		if n > 0 {
			level := p.buffer.Available()
			p.stats.observeLevel(level)
			p.recorder.SetBufferLevel(level)
		}

		if n < end-off {
			dropped := len(wire) - off - n
			p.stats.bytesDropped.Add(uint64(dropped)) //nolint:gosec // positive by construction
			p.recorder.RecordDropped(StageCapture, dropped)
			if p.dropLimiter.Allow() {
				p.captureLog.Warn("stream buffer full, dropping rest of block",
					logger.Int("dropped", dropped),
					logger.Uint64("bytes_dropped", p.stats.bytesDropped.Load()),
					logger.Int("buffer_free", p.buffer.Free()))
			}
			return
		}
	}
}
