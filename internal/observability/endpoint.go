package observability

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/diagnostics"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	metricspkg "github.com/tphakala/pendant-go/internal/observability/metrics"
)

// StatusProvider supplies the stream status served on /api/v1/status
type StatusProvider interface {
	Status() diagnostics.Status
}

// Endpoint serves /metrics, /healthz and /api/v1/status.
type Endpoint struct {
	echo          *echo.Echo
	listenAddress string
	metrics       *Metrics
	status        StatusProvider
	started       time.Time
	serveErr      chan error
	log           logger.Logger

	mu   sync.Mutex
	addr string
}

// NewEndpoint creates a new instance of telemetry Endpoint.
//
// It returns an error if telemetry is not enabled in the settings. status may
// be nil, in which case /api/v1/status answers 503.
func NewEndpoint(settings *conf.Settings, metrics *Metrics, status StatusProvider) (*Endpoint, error) {
	if !settings.Telemetry.Enabled {
		return nil, errors.Newf("telemetry not enabled in settings").
			Component("observability").
			Category(errors.CategoryConfiguration).
			Build()
	}

	e := &Endpoint{
		echo:          echo.New(),
		listenAddress: settings.Telemetry.Listen,
		metrics:       metrics,
		status:        status,
		started:       time.Now(),
		log:           GetLogger(),
	}
	e.echo.HideBanner = true
	e.echo.HidePort = true

	metrics.RegisterHandlers(e.echo)
	e.echo.GET("/healthz", e.handleHealth)
	e.echo.GET("/api/v1/status", e.handleStatus)

	return e, nil
}

// Handler exposes the router for tests
func (e *Endpoint) Handler() http.Handler {
	return e.echo
}

// Start binds the listen address and serves in the background.
func (e *Endpoint) Start() error {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("listen", e.listenAddress).
			Build()
	}
	e.echo.Listener = ln
	e.serveErr = make(chan error, 1)
	e.mu.Lock()
	e.addr = ln.Addr().String()
	e.mu.Unlock()

	go func() {
		err := e.echo.Start("")
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("Telemetry HTTP server error", logger.Error(err))
		}
		e.serveErr <- err
	}()

	e.log.Info("Telemetry endpoint starting", logger.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started
func (e *Endpoint) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

// Run starts the endpoint and shuts it down gracefully when ctx is done.
func (e *Endpoint) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	e.log.Info("Stopping telemetry server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.echo.Shutdown(shutdownCtx); err != nil {
		e.log.Error("Telemetry server shutdown error", logger.Error(err))
	}
	<-e.serveErr
	return nil
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}

func (e *Endpoint) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(e.started).Seconds(),
	})
}

func (e *Endpoint) handleStatus(c echo.Context) error {
	if e.status == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "stream not running")
	}
	return c.JSON(http.StatusOK, e.status.Status())
}
