package mqtt

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/observability/metrics"
)

// isMosquittoTestServerAvailable reports whether the public test broker is reachable
func isMosquittoTestServerAvailable() bool {
	conn, err := net.DialTimeout("tcp", "test.mosquitto.org:1883", 5*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func createTestClient(t *testing.T, broker string) (*client, *metrics.MQTTMetrics) {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	config := DefaultConfig()
	config.Broker = broker
	config.ClientID = clientIDFor("pendant-test")
	config.ConnectTimeout = 5 * time.Second
	config.ReconnectCooldown = 0

	c, err := newClient(config, m)
	require.NoError(t, err)
	c.logger = quietLogger()
	return c, m
}

func TestNewClientFromSettings(t *testing.T) {
	settings := &conf.Settings{
		Main: conf.MainSettings{Name: "SmartPendant"},
		MQTT: conf.MQTTSettings{
			Broker: "tcp://localhost:1883",
			Topic:  "pendant/status",
			Retain: true,
		},
	}

	c, err := NewClient(settings, nil)
	require.NoError(t, err)

	impl, ok := c.(*client)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(impl.config.ClientID, "SmartPendant-"))
	assert.Equal(t, "pendant/status", impl.config.Topic)
	assert.True(t, impl.config.Retain)
	assert.False(t, c.IsConnected())
}

func TestNewClientRejectsInvalidBroker(t *testing.T) {
	tests := []struct {
		name   string
		broker string
	}{
		{"empty", ""},
		{"no scheme", "localhost:1883"},
		{"bad url", "tcp://%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(&conf.Settings{MQTT: conf.MQTTSettings{Broker: tt.broker}}, nil)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
		})
	}
}

func TestClientIDIsUnique(t *testing.T) {
	a := clientIDFor("")
	b := clientIDFor("")
	assert.True(t, strings.HasPrefix(a, "pendant-"))
	assert.NotEqual(t, a, b)
}

func TestPublishWhileDisconnected(t *testing.T) {
	c, m := createTestClient(t, "tcp://127.0.0.1:1883")

	err := c.Publish(t.Context(), "pendant/test", "{}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
	assert.InDelta(t, 0, testutil.ToFloat64(m.Published), 0)
}

func TestConnectUnresolvableHost(t *testing.T) {
	c, _ := createTestClient(t, "tcp://unresolvable.invalid:1883")

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.False(t, c.IsConnected())
}

func TestConnectCooldown(t *testing.T) {
	c, _ := createTestClient(t, "tcp://unresolvable.invalid:1883")
	c.config.ReconnectCooldown = time.Hour

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	_ = c.Connect(ctx)
	err := c.Connect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

func TestRunReturnsWhenCancelledWhileRetrying(t *testing.T) {
	c, _ := createTestClient(t, "tcp://unresolvable.invalid:1883")
	c.config.ReconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, c.Run(ctx))
	assert.Less(t, time.Since(start), 15*time.Second)
}

func TestPublishToPublicBroker(t *testing.T) {
	if testing.Short() || !isMosquittoTestServerAvailable() {
		t.Skip("Skipping MQTT broker test: test.mosquitto.org is not available")
	}

	c, m := createTestClient(t, "tcp://test.mosquitto.org:1883")

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	require.True(t, c.IsConnected())

	require.NoError(t, c.Publish(ctx, "pendant-go/test", `{"state":"streaming"}`))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Published), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Connected), 0)

	c.Disconnect()
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 0, testutil.ToFloat64(m.Connected), 0)
}
