// Package device assembles the pendant from settings: sample source, radio
// transport, stream pipeline and the diagnostics around them.
package device

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tphakala/pendant-go/internal/audiocore"
	"github.com/tphakala/pendant-go/internal/audiocore/sources"
	"github.com/tphakala/pendant-go/internal/conf"
	"github.com/tphakala/pendant-go/internal/diagnostics"
	"github.com/tphakala/pendant-go/internal/errors"
	"github.com/tphakala/pendant-go/internal/logger"
	"github.com/tphakala/pendant-go/internal/mqtt"
	"github.com/tphakala/pendant-go/internal/observability"
	"github.com/tphakala/pendant-go/internal/pipeline"
	"github.com/tphakala/pendant-go/internal/radio/loopback"
	"github.com/tphakala/pendant-go/internal/radio/wslink"
)

const transportShutdownTimeout = 5 * time.Second

// GetLogger returns the device logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("device")
}

// errorCounter is registered as an error hook once per process
var errorCounter = sync.OnceValue(func() *diagnostics.ErrorCounter {
	c := diagnostics.NewErrorCounter()
	errors.AddErrorHook(c.Hook())
	return c
})

// Task is an extra goroutine run alongside the pipeline
type Task = func(context.Context) error

// Run builds the device from settings and streams until ctx is done. A
// source, transport or buffer that cannot be created halts the device in an
// idle loop instead of returning, so Run then also returns nil once ctx ends.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := GetLogger()

	stopRotation := watchRotation(ctx)
	defer stopRotation()

	source, err := sources.New(sources.ConfigFromSettings(settings))
	if err != nil {
		pipeline.Halt(ctx, err)
		return nil
	}
	defer closeSource(source)

	notifier, transportTask, shutdown, err := newNotifier(settings)
	if err != nil {
		pipeline.Halt(ctx, err)
		return nil
	}
	defer shutdown()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.ConfigFromSettings(settings), source, notifier,
		pipeline.WithRecorder(metrics.Stream))
	if err != nil {
		pipeline.Halt(ctx, err)
		return nil
	}

	tasks, err := supportTasks(settings, p, notifier, metrics)
	if err != nil {
		return err
	}
	if transportTask != nil {
		tasks = append(tasks, transportTask)
	}

	log.Info("device starting",
		logger.String("name", settings.Main.Name),
		logger.String("source", settings.Audio.Source),
		logger.String("transport", settings.Radio.Transport))

	return p.Run(ctx, tasks...)
}

// newNotifier creates the configured transport. The returned task, if any,
// runs with the pipeline; shutdown releases the transport.
func newNotifier(settings *conf.Settings) (audiocore.RadioNotifier, Task, func(), error) {
	switch settings.Radio.Transport {
	case conf.TransportLoopback:
		n := loopback.New(settings.Radio.MaxMTU,
			loopback.WithDiscard(),
			loopback.WithOverhead(settings.Stream.ProtocolOverhead))
		// a local client that subscribes as soon as the pipeline runs
		connect := func(ctx context.Context) error {
			n.Connect()
			<-ctx.Done()
			return nil
		}
		return n, connect, func() {}, nil

	case conf.TransportWSLink:
		server := wslink.New(wslink.Config{
			Listen:     settings.Radio.Listen,
			Name:       settings.Main.Name,
			DefaultMTU: settings.Radio.DefaultMTU,
			MaxMTU:     settings.Radio.MaxMTU,
			Overhead:   settings.Stream.ProtocolOverhead,
		})
		if err := server.Start(); err != nil {
			return nil, nil, nil, err
		}
		shutdown := func() {
			ctx, cancel := context.WithTimeout(context.Background(), transportShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				GetLogger().Warn("link server shutdown", logger.Error(err))
			}
		}
		return server, nil, shutdown, nil
	}

	return nil, nil, nil, errors.Newf("unknown radio transport %q", settings.Radio.Transport).
		Component("device").
		Category(errors.CategoryConfiguration).
		Build()
}

// supportTasks builds the diagnostics reporter and, when enabled, the
// telemetry endpoint and MQTT session
func supportTasks(settings *conf.Settings, p *pipeline.Pipeline, notifier audiocore.RadioNotifier, metrics *observability.Metrics) ([]Task, error) {
	opts := []diagnostics.Option{
		diagnostics.WithObserver(metrics.Stream),
		diagnostics.WithErrorCounter(errorCounter()),
	}

	var tasks []Task
	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings, metrics.MQTT)
		if err != nil {
			return nil, err
		}
		opts = append(opts, diagnostics.WithPublisher(client))
		tasks = append(tasks, client.Run)
	}

	reporter := diagnostics.New(diagnostics.Config{
		Device:         settings.Main.Name,
		Interval:       settings.Diagnostics.Interval,
		SystemSnapshot: settings.Diagnostics.SystemSnapshot,
		Topic:          settings.MQTT.Topic,
	}, p, notifier, opts...)
	tasks = append(tasks, reporter.Run)

	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics, reporter)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, endpoint.Run)
	}

	return tasks, nil
}

func closeSource(source audiocore.SampleSource) {
	if c, ok := source.(io.Closer); ok {
		if err := c.Close(); err != nil {
			GetLogger().Warn("closing sample source", logger.Error(err))
		}
	}
}

// watchRotation reopens log files on SIGHUP until ctx is done
func watchRotation(ctx context.Context) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				if err := logger.Global().Rotate(); err != nil {
					GetLogger().Warn("log rotation failed", logger.Error(err))
				} else {
					GetLogger().Info("log files reopened")
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		cancel()
		<-done
	}
}
