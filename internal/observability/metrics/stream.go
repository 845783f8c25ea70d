package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics contains the Prometheus metrics of the capture and transmit
// tasks and the connection state machine
type StreamMetrics struct {
	BlocksCaptured   prometheus.Counter
	BytesCaptured    prometheus.Counter
	CaptureFaults    prometheus.Counter
	BytesDropped     *prometheus.CounterVec
	Notifications    prometheus.Counter
	BytesNotified    prometheus.Counter
	NotifyFaults     prometheus.Counter
	BufferLevel      prometheus.Gauge
	NotificationSize prometheus.Histogram
	ConnectionState  prometheus.Gauge
	Attaches         prometheus.Counter
	LinkMTU          prometheus.Gauge
	registry         *prometheus.Registry
}

// NewStreamMetrics creates and registers the stream metrics
func NewStreamMetrics(registry *prometheus.Registry) (*StreamMetrics, error) {
	m := &StreamMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register stream metrics: %w", err)
	}
	return m, nil
}

func (m *StreamMetrics) initMetrics() {
	m.BlocksCaptured = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "blocks_captured_total",
		Help:      "Audio blocks successfully captured",
	})
	m.BytesCaptured = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "captured_bytes_total",
		Help:      "Serialized audio bytes produced by the capture task",
	})
	m.CaptureFaults = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "capture_faults_total",
		Help:      "Failed sample source reads",
	})
	m.BytesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "dropped_bytes_total",
		Help:      "Audio bytes discarded, by pipeline stage",
	}, []string{"stage"})
	m.Notifications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_total",
		Help:      "Notifications delivered to the client",
	})
	m.BytesNotified = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notified_bytes_total",
		Help:      "Payload bytes delivered in notifications",
	})
	m.NotifyFaults = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notify_faults_total",
		Help:      "Notifications that failed",
	})
	m.BufferLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "buffer_level_bytes",
		Help:      "Bytes waiting in the stream buffer",
	})
	m.NotificationSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "notification_payload_bytes",
		Help:      "Payload size of delivered notifications",
		Buckets:   []float64{20, 64, 128, 185, 244, 256, 512},
	})
	m.ConnectionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "connection_state",
		Help:      "Connection state (0 disconnected, 1 settling, 2 streaming)",
	})
	m.Attaches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "attaches_total",
		Help:      "Client attach events",
	})
	m.LinkMTU = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "link_mtu_bytes",
		Help:      "Current negotiated ATT MTU",
	})

	// Pre-create stage series so they are exported at zero
	m.BytesDropped.WithLabelValues(StageCapture)
	m.BytesDropped.WithLabelValues(StageTransmit)
}

// RecordBlockCaptured counts one captured block of the given serialized size
func (m *StreamMetrics) RecordBlockCaptured(bytes int) {
	m.BlocksCaptured.Inc()
	m.BytesCaptured.Add(float64(bytes))
}

// RecordCaptureFault counts a failed capture
func (m *StreamMetrics) RecordCaptureFault() {
	m.CaptureFaults.Inc()
}

// RecordDropped counts bytes discarded at stage
func (m *StreamMetrics) RecordDropped(stage string, bytes int) {
	m.BytesDropped.WithLabelValues(stage).Add(float64(bytes))
}

// RecordNotification counts a delivered notification
func (m *StreamMetrics) RecordNotification(bytes int) {
	m.Notifications.Inc()
	m.BytesNotified.Add(float64(bytes))
	m.NotificationSize.Observe(float64(bytes))
}

// RecordNotifyFault counts a failed notification
func (m *StreamMetrics) RecordNotifyFault() {
	m.NotifyFaults.Inc()
}

// SetBufferLevel records the current buffer occupancy
func (m *StreamMetrics) SetBufferLevel(bytes int) {
	m.BufferLevel.Set(float64(bytes))
}

// SetConnectionState records the numeric connection state and counts
// attaches, which are transitions into settling
func (m *StreamMetrics) SetConnectionState(state int) {
	if state == 1 {
		m.Attaches.Inc()
	}
	m.ConnectionState.Set(float64(state))
}

// SetMTU records the negotiated ATT MTU
func (m *StreamMetrics) SetMTU(mtu uint16) {
	m.LinkMTU.Set(float64(mtu))
}

// Describe implements the prometheus.Collector interface
func (m *StreamMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.BlocksCaptured.Desc()
	ch <- m.BytesCaptured.Desc()
	ch <- m.CaptureFaults.Desc()
	m.BytesDropped.Describe(ch)
	ch <- m.Notifications.Desc()
	ch <- m.BytesNotified.Desc()
	ch <- m.NotifyFaults.Desc()
	ch <- m.BufferLevel.Desc()
	ch <- m.NotificationSize.Desc()
	ch <- m.ConnectionState.Desc()
	ch <- m.Attaches.Desc()
	ch <- m.LinkMTU.Desc()
}

// Collect implements the prometheus.Collector interface
func (m *StreamMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.BlocksCaptured
	ch <- m.BytesCaptured
	ch <- m.CaptureFaults
	m.BytesDropped.Collect(ch)
	ch <- m.Notifications
	ch <- m.BytesNotified
	ch <- m.NotifyFaults
	ch <- m.BufferLevel
	ch <- m.NotificationSize
	ch <- m.ConnectionState
	ch <- m.Attaches
	ch <- m.LinkMTU
}
