// Package mqtt publishes stream status reports to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/pendant-go/internal/logger"
)

// Client is a broker session used by the diagnostics reporter
type Client interface {
	Connect(ctx context.Context) error
	// Publish fails fast when no session is up
	Publish(ctx context.Context, topic string, payload string) error
	IsConnected() bool
	Disconnect()
	// Run connects with backoff and holds the session until ctx is done
	Run(ctx context.Context) error
}

// Config holds broker credentials and session timing
type Config struct {
	Broker   string // tcp://, ssl:// or ws:// URL
	ClientID string
	Username string
	Password string
	Topic    string
	Retain   bool

	ReconnectCooldown time.Duration // minimum gap between connect attempts
	ReconnectDelay    time.Duration // first retry delay, doubled per failure
	MaxReconnectDelay time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration // quiesce time granted to paho
}

// GetLogger returns the MQTT logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}

// DefaultConfig returns session timing without broker details
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 5 * time.Minute,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
