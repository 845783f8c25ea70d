// Package wslink emulates the pendant's GATT notify characteristic over a
// WebSocket so the streaming core can run on a host machine.
//
// A client opens a WebSocket on /gatt/{service}/{characteristic}; the upgrade
// counts as connect plus notification subscribe. Text frames carry JSON
// control messages (MTU exchange), binary frames carry notifications. Only one
// subscriber is served at a time, a second client receives 409 Conflict.
package wslink

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/radio"
)

const defaultWriteTimeout = 2 * time.Second

// Config configures the link server
type Config struct {
	Listen       string // host:port
	Name         string // advertised device name
	DefaultMTU   uint16 // MTU before the client exchanges one
	MaxMTU       uint16 // largest MTU the device accepts
	Overhead     int    // bytes reserved per notification, radio.ATTHeaderSize on a real link
	WriteTimeout time.Duration
}

// Advertisement is served on GET /gatt for discovery
type Advertisement struct {
	Name           string `json:"name"`
	Service        string `json:"service"`
	Characteristic string `json:"characteristic"`
	Path           string `json:"path"`
	Advertising    bool   `json:"advertising"`
	Connected      bool   `json:"connected"`
	MTU            uint16 `json:"mtu"`
}

// Server is a RadioNotifier backed by a single WebSocket subscriber
type Server struct {
	config   Config
	echo     *echo.Echo
	upgrader websocket.Upgrader
	log      logger.Logger

	mtu         atomic.Uint32
	advertising atomic.Bool

	mu       sync.Mutex
	conn     *websocket.Conn
	busy     bool // a subscriber holds or is claiming the slot
	payload  []byte
	onAttach []func()
	onDetach []func()

	writeMu sync.Mutex // gorilla allows one concurrent writer

	serveErr chan error
}

var _ audiocore.RadioNotifier = (*Server)(nil)

// New creates a server; call Start to listen or use Handler with an
// existing HTTP server
func New(config Config) *Server {
	if config.DefaultMTU == 0 {
		config.DefaultMTU = radio.MinMTU
	}
	if config.MaxMTU == 0 {
		config.MaxMTU = radio.MaxMTU
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaultWriteTimeout
	}

	s := &Server{
		config: config,
		echo:   echo.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: int(radio.MaxMTU),
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logger.Global().Module("radio.wslink"),
	}
	s.mtu.Store(uint32(config.DefaultMTU))

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.GET("/gatt", s.handleAdvertisement)
	s.echo.GET("/gatt/:service/:characteristic", s.handleSubscribe)
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return errors.New(err).
			Component("radio.wslink").
			Category(errors.CategoryNetwork).
			Context("listen", s.config.Listen).
			Build()
	}
	s.echo.Listener = ln
	s.serveErr = make(chan error, 1)

	go func() {
		err := s.echo.Start("")
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("link server stopped", logger.Error(err))
		}
		s.serveErr <- err
	}()

	s.log.Info("link server listening",
		logger.String("address", ln.Addr().String()),
		logger.String("path", radio.CharacteristicPath()))
	return nil
}

// Addr returns the listening address after Start
func (s *Server) Addr() string {
	if addr := s.echo.ListenerAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Shutdown closes the subscriber and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	err := s.echo.Shutdown(ctx)
	if s.serveErr != nil {
		<-s.serveErr
	}
	return err
}

// Close drops the current subscriber, if any
func (s *Server) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = conn.Close()
	}
}

func (s *Server) handleAdvertisement(c echo.Context) error {
	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()

	return c.JSON(http.StatusOK, Advertisement{
		Name:           s.config.Name,
		Service:        radio.ServiceUUID.String(),
		Characteristic: radio.CharacteristicUUID.String(),
		Path:           radio.CharacteristicPath(),
		Advertising:    s.advertising.Load(),
		Connected:      connected,
		MTU:            s.MaxPayloadSize(),
	})
}

func (s *Server) handleSubscribe(c echo.Context) error {
	if !radio.MatchesCharacteristic(c.Param("service"), c.Param("characteristic")) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown service or characteristic")
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusConflict, "another client is subscribed")
	}
	s.busy = true
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		s.log.Warn("websocket upgrade failed", logger.Error(err), logger.String("remote", c.RealIP()))
		return nil
	}

	s.mtu.Store(uint32(s.config.DefaultMTU))
	s.advertising.Store(false)

	s.mu.Lock()
	s.conn = conn
	attach := append([]func(){}, s.onAttach...)
	s.mu.Unlock()

	s.log.Info("client connected", logger.String("remote", c.RealIP()))
	for _, fn := range attach {
		fn()
	}

	s.readLoop(conn)

	s.mu.Lock()
	s.conn = nil
	s.busy = false
	detach := append([]func(){}, s.onDetach...)
	s.mu.Unlock()
	_ = conn.Close()

	s.log.Info("client disconnected", logger.String("remote", c.RealIP()))
	for _, fn := range detach {
		fn()
	}
	return nil
}

// readLoop handles control frames until the connection fails
func (s *Server) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read loop ended", logger.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		frame, err := radio.ParseControlFrame(data)
		if err != nil {
			s.log.Warn("ignoring control frame", logger.Error(err))
			continue
		}

		if frame.Op == radio.OpMTU {
			negotiated := radio.ClampMTU(frame.MTU, s.config.MaxMTU)
			s.mtu.Store(uint32(negotiated))
			s.log.Info("mtu exchanged",
				logger.Int("requested", int(frame.MTU)),
				logger.Int("negotiated", int(negotiated)))

			reply := radio.MTURequest(negotiated)
			s.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			err := conn.WriteMessage(websocket.TextMessage, reply)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// SetPayload stages a copy of p
func (s *Server) SetPayload(p []byte) {
	s.mu.Lock()
	s.payload = append(s.payload[:0], p...)
	s.mu.Unlock()
}

// Notify sends the staged payload as one binary frame
func (s *Server) Notify(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	payload := append([]byte(nil), s.payload...)
	s.mu.Unlock()

	if conn == nil {
		return audiocore.ErrNotSubscribed
	}
	mtu := s.MaxPayloadSize()
	if limit := radio.PayloadLimit(mtu, s.config.Overhead); len(payload) > limit {
		return fmt.Errorf("%w: %d > %d", audiocore.ErrPayloadTooLarge, len(payload), limit)
	}

	deadline := time.Now().Add(s.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return errors.New(err).
			Component("radio.wslink").
			Category(errors.CategoryRadio).
			LinkContext(mtu, len(payload)).
			Context("operation", "notify").
			Build()
	}
	return nil
}

// MaxPayloadSize returns the negotiated ATT MTU
func (s *Server) MaxPayloadSize() uint16 {
	return uint16(s.mtu.Load()) //nolint:gosec // stored from a uint16
}

// OnAttach registers fn to run after a client subscribes
func (s *Server) OnAttach(fn func()) {
	s.mu.Lock()
	s.onAttach = append(s.onAttach, fn)
	s.mu.Unlock()
}

// OnDetach registers fn to run after the subscriber goes away
func (s *Server) OnDetach(fn func()) {
	s.mu.Lock()
	s.onDetach = append(s.onDetach, fn)
	s.mu.Unlock()
}

// Advertise makes the characteristic discoverable again
func (s *Server) Advertise() error {
	s.advertising.Store(true)
	s.log.Info("advertising",
		logger.String("name", s.config.Name),
		logger.String("service", radio.ServiceUUID.String()))
	return nil
}
