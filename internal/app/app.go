// Package app wires every component into a runnable process: config load,
// logger setup, registry/health/dispatcher/sweeper/ingest construction, the
// ingest and metrics HTTP servers, and the graceful-shutdown sequence.
// Grounded on the teacher's internal/app/app.go (New/initializeComponents/
// Start/Stop/Run shape, signal.Notify(SIGINT, SIGTERM) lifecycle), trimmed
// to this domain's seven core components plus the ambient HTTP/metrics shell.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/resolveai/log-distributor/internal/config"
	"github.com/resolveai/log-distributor/internal/counters"
	"github.com/resolveai/log-distributor/internal/dispatcher"
	"github.com/resolveai/log-distributor/internal/dlq"
	"github.com/resolveai/log-distributor/internal/health"
	"github.com/resolveai/log-distributor/internal/ingest"
	"github.com/resolveai/log-distributor/internal/metrics"
	"github.com/resolveai/log-distributor/internal/registry"
	"github.com/resolveai/log-distributor/internal/resourcemonitor"
	"github.com/resolveai/log-distributor/internal/selector"
	"github.com/resolveai/log-distributor/internal/sweeper"
)

// App owns every component's lifecycle for one process.
type App struct {
	config *config.Config
	logger *logrus.Logger

	registry  *registry.AnalyzerRegistry
	tracker   *health.Tracker
	counts    *counters.Counters
	deadLetters *dlq.Log
	pipeline  *dispatcher.Pipeline
	sweeper   *sweeper.Sweeper
	adapter   *ingest.Adapter
	resources *resourcemonitor.Monitor

	ingestServer  *http.Server
	metricsServer *metrics.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads configuration and builds every component, but starts nothing.
func New(configFile string) (*App, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	descriptors := cfg.Analyzers
	reg := registry.New(descriptors)

	tracker := health.New(health.Config{
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		OfflineTimeout:         cfg.OfflineTimeout,
	}, nil)

	counts := counters.New()
	deadLetters := dlq.New(cfg.DLQCapacity)

	pipeline := dispatcher.New(dispatcher.Config{
		QueueCapacity:   cfg.QueueCapacity,
		Workers:         cfg.WorkerMax,
		RequestTimeout:  cfg.RequestTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, tracker, counts, deadLetters, logger)

	sweep := sweeper.New(cfg.SweepInterval, reg, tracker, logger)

	adapter := ingest.New(reg, selector.Config{DeficitThreshold: cfg.DeficitThreshold}, pipeline, counts, deadLetters, logger)

	resources := resourcemonitor.New(logger)

	a := &App{
		config:      cfg,
		logger:      logger,
		registry:    reg,
		tracker:     tracker,
		counts:      counts,
		deadLetters: deadLetters,
		pipeline:    pipeline,
		sweeper:     sweep,
		adapter:     adapter,
		resources:   resources,
		ctx:         ctx,
		cancel:      cancel,
	}

	a.ingestServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.IngestPort),
		Handler: adapter.Router(),
	}
	a.metricsServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.MetricsPort), logger)

	return a, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// Start launches every background component and the HTTP servers.
func (a *App) Start() error {
	a.logger.WithFields(logrus.Fields{
		"analyzers":    len(a.registry.States()),
		"ingest_port":  a.config.IngestPort,
		"metrics_port": a.config.MetricsPort,
	}).Info("starting distributor")

	a.metricsServer.Start()
	a.pipeline.Start(a.ctx)
	a.sweeper.Start(a.ctx)
	a.resources.Start(a.ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.ingestServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("ingest server stopped unexpectedly")
		}
	}()

	return nil
}

// Stop drains the dispatch pipeline and shuts every server down within
// ShutdownTimeout, following the teacher's reverse-order Stop sequence.
func (a *App) Stop() {
	a.logger.Info("shutting down distributor")
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.ingestServer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("ingest server shutdown error")
	}

	a.sweeper.Stop()
	a.pipeline.Stop()

	if err := a.metricsServer.Stop(a.config.ShutdownTimeout); err != nil {
		a.logger.WithError(err).Warn("metrics server shutdown error")
	}

	a.wg.Wait()
}

// Run starts the application and blocks until SIGINT/SIGTERM, then performs
// a graceful shutdown — the teacher's cmd/main.go Run() contract.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Stop()
	return nil
}
