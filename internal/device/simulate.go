package device

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/tphakala/pendant-go/internal/audiocore/sources/pattern"
	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/pipeline"
	"github.com/tphakala/pendant-go/internal/radio/loopback"
)

// Summary describes a simulated session
type Summary struct {
	Duration       time.Duration     `json:"duration"`
	MTU            uint16            `json:"mtu"`
	BytesCaptured  uint64            `json:"bytes_captured"`
	BytesNotified  int               `json:"bytes_notified"`
	Notifications  int               `json:"notifications"`
	LargestPayload int               `json:"largest_payload"`
	BytesDropped   uint64            `json:"bytes_dropped"`
	Verified       bool              `json:"verified"` // notified bytes equal the captured ramp, in order
	Stats          pipeline.Snapshot `json:"stats"`
}

// Simulate streams the synthetic ramp to an in-process client for duration
// and checks what the client received. mtu 0 uses radio.maxmtu.
func Simulate(ctx context.Context, settings *conf.Settings, duration time.Duration, mtu uint16) (Summary, error) {
	if mtu == 0 {
		mtu = settings.Radio.MaxMTU
	}

	notifier := loopback.New(mtu, loopback.WithOverhead(settings.Stream.ProtocolOverhead))
	p, err := pipeline.New(pipeline.ConfigFromSettings(settings),
		pattern.New(pattern.WithRealtime()), notifier)
	if err != nil {
		return Summary{}, err
	}

	GetLogger().Info("simulation starting",
		logger.Duration("duration", duration),
		logger.Int("mtu", int(mtu)))

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	started := time.Now()
	connect := func(ctx context.Context) error {
		notifier.Connect()
		<-ctx.Done()
		return nil
	}
	if err := p.Run(runCtx, connect); err != nil {
		return Summary{}, err
	}

	received := notifier.Received()
	sizes := notifier.Sizes()
	stats := p.Stats().Snapshot()

	summary := Summary{
		Duration:      time.Since(started),
		MTU:           mtu,
		BytesCaptured: stats.FramesCaptured * uint64(p.Config().BlockBytes()),
		BytesNotified: len(received),
		Notifications: len(sizes),
		BytesDropped:  stats.TotalDropped(),
		Stats:         stats,
	}
	if len(sizes) > 0 {
		summary.LargestPayload = slices.Max(sizes)
	}
	summary.Verified = summary.BytesDropped == 0 &&
		bytes.Equal(received, pattern.Bytes(0, len(received)))

	return summary, nil
}
