package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT failure label values
const (
	OpConnect        = "connect"
	OpPublish        = "publish"
	OpConnectionLost = "connection_lost"
)

// MQTTMetrics tracks the status publisher's broker session
type MQTTMetrics struct {
	Connected      prometheus.Gauge
	LastConnect    prometheus.Gauge
	Published      prometheus.Counter
	Failures       *prometheus.CounterVec // by op
	PayloadBytes   prometheus.Histogram
	PublishSeconds prometheus.Histogram
}

// NewMQTTMetrics creates the publisher metrics and registers them
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "mqtt", Name: "connected",
			Help: "1 while a broker session is up",
		}),
		LastConnect: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: "mqtt", Name: "last_connect_timestamp_seconds",
			Help: "Unix time of the last established broker session",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "mqtt", Name: "published_total",
			Help: "Status reports acknowledged by the broker",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: "mqtt", Name: "failures_total",
			Help: "Broker failures by operation",
		}, []string{"op"}),
		PayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "mqtt", Name: "payload_bytes",
			Help:    "Size of published status reports",
			Buckets: prometheus.ExponentialBuckets(64, 2, 8),
		}),
		PublishSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: "mqtt", Name: "publish_duration_seconds",
			Help:    "Time from publish to broker acknowledgement",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
	for _, op := range []string{OpConnect, OpPublish, OpConnectionLost} {
		m.Failures.WithLabelValues(op)
	}

	for _, c := range []prometheus.Collector{m.Connected, m.LastConnect, m.Published, m.Failures, m.PayloadBytes, m.PublishSeconds} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

// SetConnected records a session change
func (m *MQTTMetrics) SetConnected(connected bool) {
	if !connected {
		m.Connected.Set(0)
		return
	}
	m.Connected.Set(1)
	m.LastConnect.SetToCurrentTime()
}

// ObservePublish records an acknowledged publish
func (m *MQTTMetrics) ObservePublish(payloadSize int, elapsed time.Duration) {
	m.Published.Inc()
	m.PayloadBytes.Observe(float64(payloadSize))
	m.PublishSeconds.Observe(elapsed.Seconds())
}

// Failure counts a failed op
func (m *MQTTMetrics) Failure(op string) {
	m.Failures.WithLabelValues(op).Inc()
}
