package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/readshelf/internal/bootstrap"
	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/observability/logging"
	"github.com/kirillkom/readshelf/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		RequireQueue:         true,
		OnBreakerStateChange: workerMetrics.RecordBreakerState,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux(workerMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	processTimeout := time.Duration(cfg.WorkerProcessTimeoutSeconds) * time.Second
	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "process_timeout_s", cfg.WorkerProcessTimeoutSeconds)
	err = app.Queue.SubscribeIngestRequested(ctx, func(handlerCtx context.Context, req domain.IngestRequest) error {
		workerMetrics.ObserveQueueLag(req.RequestedAt)

		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		done := workerMetrics.Begin()
		doc, err := app.ProcessUC.Process(processCtx, req.URL)
		done(doc, err)
		if err != nil {
			return fmt.Errorf("%s: %w", domain.ErrorKind(err), err)
		}
		logger.Info("worker_ingest_done",
			"url", req.URL,
			"document_id", doc.ID,
			"cached", doc.Cached,
			"summary_source", doc.SummarySource,
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func metricsMux(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
