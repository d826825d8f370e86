package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"temporal-fiscal-request/activities"
	"temporal-fiscal-request/config"
	"temporal-fiscal-request/logging"
	"temporal-fiscal-request/shared"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Unable to create logger: %v", err)
	}
	defer logger.Sync()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal("Unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := activities.NewGatewayMetrics(reg)
	go serveMetrics(cfg.Metrics.Addr, reg, logger)

	// MaxConcurrentActivityExecutionSize (default 1000) caps parallel gateway
	// calls from this worker. Lower it if the backends are rate limited.
	w := worker.New(c, shared.ActivityTaskQueue, worker.Options{})

	// Keep backend.timeout at or below the activity StartToCloseTimeout (30s)
	// so a hung backend surfaces as a transport failure.
	httpClient := &http.Client{Timeout: cfg.Backend.Timeout}
	a := activities.New(httpClient, cfg.Backend.FiscalBaseURL, cfg.Backend.DocumentsBaseURL, metrics)
	w.RegisterActivity(a)

	logger.Info("Starting gateway activity worker",
		zap.String("taskQueue", shared.ActivityTaskQueue),
		zap.String("fiscalBaseURL", cfg.Backend.FiscalBaseURL),
		zap.String("documentsBaseURL", cfg.Backend.DocumentsBaseURL),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("Unable to start worker", zap.Error(err))
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}
