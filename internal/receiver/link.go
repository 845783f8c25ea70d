package receiver

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/radio"
)

const defaultHandshakeTimeout = 10 * time.Second

// LinkConfig selects the device endpoint
type LinkConfig struct {
	URL              string // ws:// base address of the device
	MTU              uint16 // requested ATT MTU, 0 keeps the default
	HandshakeTimeout time.Duration
}

// Link is a subscription to the audio characteristic
type Link struct {
	conn  *websocket.Conn
	mtu   atomic.Uint32
	early [][]byte // notifications that arrived before the MTU reply
}

// Dial subscribes to the audio characteristic and, when config.MTU is set,
// performs the MTU exchange before returning.
func Dial(ctx context.Context, config LinkConfig) (*Link, error) {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	url := strings.TrimSuffix(config.URL, "/") + radio.CharacteristicPath()

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("receiver").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}

	l := &Link{conn: conn}
	l.mtu.Store(uint32(radio.MinMTU))

	if config.MTU > 0 {
		if err := l.exchangeMTU(config.MTU, config.HandshakeTimeout); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return l, nil
}

// exchangeMTU sends the request and waits for the negotiated value
func (l *Link) exchangeMTU(mtu uint16, timeout time.Duration) error {
	if err := l.conn.WriteMessage(websocket.TextMessage, radio.MTURequest(mtu)); err != nil {
		return errors.New(err).
			Component("receiver").
			Category(errors.CategoryNetwork).
			Context("operation", "mtu_request").
			Build()
	}

	_ = l.conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = l.conn.SetReadDeadline(time.Time{}) }()

	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			return errors.New(err).
				Component("receiver").
				Category(errors.CategoryTimeout).
				Context("operation", "mtu_reply").
				Build()
		}
		if msgType == websocket.BinaryMessage {
			l.early = append(l.early, data)
			continue
		}
		frame, err := radio.ParseControlFrame(data)
		if err != nil {
			return err
		}
		if frame.Op == radio.OpMTU {
			l.mtu.Store(uint32(frame.MTU))
			return nil
		}
	}
}

// MTU returns the negotiated ATT MTU
func (l *Link) MTU() uint16 {
	return uint16(l.mtu.Load()) //nolint:gosec // stored from a uint16
}

// Receive calls fn for every notification payload until ctx is done, the
// device closes the link or fn fails. A closed link or cancelled ctx is not
// an error.
func (l *Link) Receive(ctx context.Context, fn func(payload []byte) error) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()

	for _, payload := range l.early {
		if err := fn(payload); err != nil {
			return err
		}
	}
	l.early = nil

	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.New(err).
				Component("receiver").
				Category(errors.CategoryNetwork).
				Context("operation", "receive").
				Build()
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := fn(data); err != nil {
				return err
			}
		case websocket.TextMessage:
			if frame, err := radio.ParseControlFrame(data); err == nil && frame.Op == radio.OpMTU {
				l.mtu.Store(uint32(frame.MTU))
			}
		}
	}
}

// Close unsubscribes and closes the connection
func (l *Link) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return l.conn.Close()
}
