package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/hostwatch/internal/alert"
	"codeberg.org/mutker/hostwatch/internal/archive"
	"codeberg.org/mutker/hostwatch/internal/config"
	"codeberg.org/mutker/hostwatch/internal/document"
	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/host"
	"codeberg.org/mutker/hostwatch/internal/logger"
	"codeberg.org/mutker/hostwatch/internal/pid"
	"codeberg.org/mutker/hostwatch/internal/publisher"
	"codeberg.org/mutker/hostwatch/internal/telemetry"
	"codeberg.org/mutker/hostwatch/internal/weather"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "hostwatch: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "hostwatch: %v\n", err)
		return 1
	}
	logger.Debug().Msg("Config loaded")

	app, err := setup(cfg)
	if err != nil {
		logFailure(err, errors.ErrInitApp).Msg("Startup failed")
		return 1
	}
	defer app.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := app.scheduler.Run(ctx); err != nil {
		logFailure(err, errors.ErrMainLoop).Msg("Error in main loop")
		return 1
	}

	return 0
}

// logFailure starts an error event carrying the code of err, or fallback
// when err has none.
func logFailure(err error, fallback errors.ErrorCode) *logger.LogEvent {
	var coded errors.Error
	if !errors.As(err, &coded) {
		coded = errors.New().Wrap(fallback, err)
	}

	return logger.ErrorWithCode(coded)
}

type app struct {
	scheduler *publisher.Scheduler
	recorder  telemetry.Recorder
	metrics   *http.Server
	pidPath   string
}

func setup(cfg *config.Config) (*app, error) {
	errFactory := errors.New()
	a := &app{}

	if cfg.PIDFile {
		path := pid.DefaultPath()
		if err := pid.Write(path); err != nil {
			return nil, err
		}
		a.pidPath = path
	}

	if err := archive.EnsureDir(cfg.ArchiveDirectory); err != nil {
		a.cleanup()
		return nil, err
	}

	enc, err := document.NewEncoder(document.Format(cfg.Format))
	if err != nil {
		a.cleanup()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.Enabled = cfg.Telemetry
	tcfg.DBPath = cfg.TelemetryDB
	a.recorder, err = telemetry.NewService(tcfg, logger.Get())
	if err != nil {
		a.cleanup()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := publisher.Deps{
		Host: host.NewSampler(host.Config{
			DiskPath:  cfg.DiskPath,
			CPUWindow: cfg.CPUWindow(),
		}),
		Writer:    document.NewFileWriter(enc),
		Namer:     archive.NewNamer(cfg.ArchiveDirectory, enc.Format().Extension()),
		Telemetry: a.recorder,
		Metrics:   publisher.NewMetrics(reg),
	}

	if cfg.WeatherEnabled {
		lat, lon, err := config.ParseLocation(cfg.WeatherLocation)
		if err != nil {
			a.cleanup()
			return nil, err
		}
		deps.Weather = weather.NewClient(weather.Config{
			Endpoint:  cfg.WeatherEndpoint,
			APIKey:    cfg.WeatherAPIKey,
			Latitude:  lat,
			Longitude: lon,
			Timeout:   cfg.WeatherTimeout(),
		})
	}

	if cfg.MetricsListen != "" {
		a.metrics = serveMetrics(cfg.MetricsListen, reg)
	}

	a.scheduler = publisher.New(publisher.Config{
		SampleInterval:  cfg.SampleInterval(),
		ArchiveInterval: cfg.ArchiveInterval(),
		LivePath:        cfg.LivePath,
		Thresholds: alert.Thresholds{
			CPU:    cfg.CPUThreshold,
			Memory: cfg.MemoryThreshold,
			Disk:   cfg.DiskThreshold,
		},
	}, deps)

	return a, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("address", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal, finishing current cycle...")
	cancel()
}

func (a *app) cleanup() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metrics.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}

	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close telemetry")
		}
	}

	if a.pidPath != "" {
		if err := pid.Remove(a.pidPath); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}

	logger.Info().Msg("Exiting...")
}
