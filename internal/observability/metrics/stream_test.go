package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamMetricsRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewStreamMetrics(registry)
	require.NoError(t, err)

	m.RecordBlockCaptured(3200)
	m.RecordBlockCaptured(3200)
	m.RecordCaptureFault()
	m.RecordDropped(StageCapture, 640)
	m.RecordDropped(StageTransmit, 10)
	m.RecordNotification(185)
	m.RecordNotifyFault()
	m.SetBufferLevel(512)
	m.SetMTU(188)

	assert.InDelta(t, 2, testutil.ToFloat64(m.BlocksCaptured), 0)
	assert.InDelta(t, 6400, testutil.ToFloat64(m.BytesCaptured), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CaptureFaults), 0)
	assert.InDelta(t, 640, testutil.ToFloat64(m.BytesDropped.WithLabelValues(StageCapture)), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.BytesDropped.WithLabelValues(StageTransmit)), 0)
	assert.InDelta(t, 185, testutil.ToFloat64(m.BytesNotified), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotifyFaults), 0)
	assert.InDelta(t, 512, testutil.ToFloat64(m.BufferLevel), 0)
	assert.InDelta(t, 188, testutil.ToFloat64(m.LinkMTU), 0)
}

func TestConnectionStateCountsAttaches(t *testing.T) {
	t.Parallel()

	m, err := NewStreamMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetConnectionState(1)
	m.SetConnectionState(2)
	m.SetConnectionState(0)
	m.SetConnectionState(1)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Attaches), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionState), 0)
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewStreamMetrics(registry)
	require.NoError(t, err)
	_, err = NewStreamMetrics(registry)
	assert.Error(t, err)

	_, err = NewMQTTMetrics(registry)
	require.NoError(t, err)
}

func TestDroppedStagesExportedAtZero(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewStreamMetrics(registry)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "pendant_dropped_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMQTTFailuresByOp(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "pendant_mqtt_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "every op is exported before its first failure")

	m.Failure(OpPublish)
	m.SetConnected(true)
	m.ObservePublish(180, 3*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Failures.WithLabelValues(OpPublish)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Failures.WithLabelValues(OpConnect)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Connected), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Published), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastConnect))

	var sample dto.Metric
	require.NoError(t, m.PayloadBytes.Write(&sample))
	assert.Equal(t, uint64(1), sample.GetHistogram().GetSampleCount())
	assert.InDelta(t, 180, sample.GetHistogram().GetSampleSum(), 0)
}
