package device

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/pendant-go/internal/conf"
)

func TestMain(m *testing.M) {
	// signal.Notify starts a process-wide receiver goroutine that never exits
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("os/signal.signal_recv"))
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Main: conf.MainSettings{Name: "TestPendant"},
		Audio: conf.AudioSettings{
			Source:       conf.SourcePattern,
			SampleRate:   16000,
			BlockSamples: 160,
			Gain:         1,
		},
		Buffer: conf.BufferSettings{Capacity: 32768, ReleaseThreshold: 512},
		Stream: conf.StreamSettings{
			GatePoll:         2 * time.Millisecond,
			WriteWait:        30 * time.Millisecond,
			ReadTimeout:      20 * time.Millisecond,
			CaptureBackoff:   5 * time.Millisecond,
			ProtocolOverhead: 3,
		},
		Connection:  conf.ConnectionSettings{Settle: 20 * time.Millisecond, Tick: 5 * time.Millisecond},
		Radio:       conf.RadioSettings{Transport: conf.TransportLoopback, Listen: "127.0.0.1:0", DefaultMTU: 23, MaxMTU: 247},
		Diagnostics: conf.DiagnosticsSettings{Interval: 50 * time.Millisecond},
		Telemetry:   conf.TelemetrySettings{Listen: "127.0.0.1:0"},
	}
}

func TestSimulateDeliversRampIntact(t *testing.T) {
	settings := testSettings()

	summary, err := Simulate(t.Context(), settings, 400*time.Millisecond, 188)
	require.NoError(t, err)

	assert.True(t, summary.Verified, "notified bytes must be the captured ramp in order")
	assert.Positive(t, summary.Notifications)
	assert.Positive(t, summary.BytesNotified)
	assert.LessOrEqual(t, summary.LargestPayload, 185)
	assert.Zero(t, summary.BytesDropped)
	assert.GreaterOrEqual(t, summary.BytesCaptured, uint64(summary.BytesNotified))
	assert.Equal(t, uint16(188), summary.MTU)
}

func TestSimulateDefaultsToMaxMTU(t *testing.T) {
	settings := testSettings()

	summary, err := Simulate(t.Context(), settings, 100*time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(247), summary.MTU)
}

func TestSimulateRejectsInvalidBuffer(t *testing.T) {
	settings := testSettings()
	settings.Buffer.ReleaseThreshold = settings.Buffer.Capacity + 1

	_, err := Simulate(t.Context(), settings, 50*time.Millisecond, 0)
	require.Error(t, err)
}

func TestRunLoopbackWithTelemetry(t *testing.T) {
	settings := testSettings()
	settings.Telemetry.Enabled = true

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, settings))
}

func TestRunWSLinkTransport(t *testing.T) {
	settings := testSettings()
	settings.Radio.Transport = conf.TransportWSLink

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, settings))
}

func TestRunHaltsWhenSourceCannotOpen(t *testing.T) {
	settings := testSettings()
	settings.Audio.Source = conf.SourceWAV
	settings.Audio.WavPath = filepath.Join(t.TempDir(), "missing.wav")

	ctx, cancel := context.WithTimeout(t.Context(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, Run(ctx, settings))
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond, "halt idles until the context ends")
}

func TestNewNotifierUnknownTransport(t *testing.T) {
	settings := testSettings()
	settings.Radio.Transport = "carrier-pigeon"

	_, _, _, err := newNotifier(settings)
	require.Error(t, err)
}
