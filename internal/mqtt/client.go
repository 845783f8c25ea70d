package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/observability/metrics"
)

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	metrics         *metrics.MQTTMetrics
	logger          logger.Logger
}

// NewClient creates a new MQTT client with the provided configuration.
// m may be nil when metrics are disabled.
func NewClient(settings *conf.Settings, m *metrics.MQTTMetrics) (Client, error) {
	config := DefaultConfig()
	config.Broker = settings.MQTT.Broker
	config.ClientID = settings.MQTT.ClientID
	config.Username = settings.MQTT.Username
	config.Password = settings.MQTT.Password
	config.Topic = settings.MQTT.Topic
	config.Retain = settings.MQTT.Retain

	if config.ClientID == "" {
		config.ClientID = clientIDFor(settings.Main.Name)
	}

	return newClient(config, m)
}

func newClient(config Config, m *metrics.MQTTMetrics) (*client, error) {
	if _, err := parseBroker(config.Broker); err != nil {
		return nil, err
	}
	return &client{
		config:  config,
		metrics: m,
		logger:  GetLogger(),
	}, nil
}

// clientIDFor derives a unique client id from the device name
func clientIDFor(name string) string {
	if name == "" {
		name = "pendant"
	}
	return name + "-" + uuid.NewString()[:8]
}

func parseBroker(broker string) (*url.URL, error) {
	u, err := url.Parse(broker)
	if err == nil && (u.Scheme == "" || u.Host == "") {
		err = errors.NewStd("missing scheme or host")
	}
	if err != nil {
		return nil, errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", logger.RedactSensitiveData(broker)).
			Build()
	}
	return u, nil
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := parseBroker(c.config.Broker)
	if err != nil {
		return err
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryNetwork).
				Context("host", host).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		c.countFailure(metrics.OpConnect)
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", logger.RedactSensitiveData(c.config.Broker)).
			Build()
	}

	c.setConnected(true)
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnectedLocked() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("topic", topic).
			Build()
	}

	started := time.Now()
	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		c.countFailure(metrics.OpPublish)
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Context("payload_size", len(payload)).
			Build()
	}

	if c.metrics != nil {
		c.metrics.ObservePublish(len(payload), time.Since(started))
	}
	c.logger.Debug("published", logger.String("topic", topic), logger.Int("size", len(payload)))
	return nil
}

// waitToken waits for token completion, the timeout or ctx, whichever is first
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.NewStd("operation timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnectedLocked()
}

func (c *client) isConnectedLocked() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds())) //nolint:gosec // small positive duration
		c.setConnected(false)
	}
}

// Run connects with exponential backoff, keeps the session until ctx is done
// and then disconnects. It returns nil so a broker outage never stops the
// stream.
func (c *client) Run(ctx context.Context) error {
	backoff := c.config.ReconnectDelay
	for {
		err := c.Connect(ctx)
		if err == nil {
			c.logger.Info("connected to MQTT broker", logger.String("broker", logger.RedactSensitiveData(c.config.Broker)))
			break
		}
		c.logger.Warn("failed to connect to MQTT broker",
			logger.String("broker", logger.RedactSensitiveData(c.config.Broker)),
			logger.Duration("retry_in", max(backoff, c.config.ReconnectCooldown)),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(max(backoff, c.config.ReconnectCooldown)):
		}
		backoff = min(backoff*2, c.config.MaxReconnectDelay)
	}

	<-ctx.Done()
	c.Disconnect()
	return nil
}

func (c *client) onConnect(paho.Client) {
	c.logger.Info("MQTT session established", logger.String("broker", logger.RedactSensitiveData(c.config.Broker)))
	c.setConnected(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("connection to MQTT broker lost",
		logger.String("broker", logger.RedactSensitiveData(c.config.Broker)),
		logger.Error(err))
	c.setConnected(false)
	c.countFailure(metrics.OpConnectionLost)
}

func (c *client) setConnected(connected bool) {
	if c.metrics != nil {
		c.metrics.SetConnected(connected)
	}
}

func (c *client) countFailure(op string) {
	if c.metrics != nil {
		c.metrics.Failure(op)
	}
}
