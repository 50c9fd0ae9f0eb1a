package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/readshelf/internal/adapters/http"
	"github.com/kirillkom/readshelf/internal/bootstrap"
	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/observability/logging"
	"github.com/kirillkom/readshelf/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		OnBreakerStateChange: httpMetrics.RecordBreakerState,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.ProcessUC, app.LibraryUC, httpadapter.Options{
		Enqueuer:          app.EnqueueUC,
		Metrics:           httpMetrics,
		BreakerStates:     app.BreakerStates,
		EnrichmentEnabled: app.EnrichmentEnabled,
	}).Handler()

	// WriteTimeout must outlast a slow fetch followed by enrichment.
	writeTimeout := time.Duration(cfg.FetchTimeoutSeconds+cfg.EnrichmentTimeoutSeconds+15) * time.Second
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening",
			"port", cfg.APIPort,
			"storage_driver", cfg.StorageDriver,
			"enrichment_enabled", cfg.EnrichmentEnabled,
			"async_ingest_enabled", cfg.AsyncIngestEnabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
