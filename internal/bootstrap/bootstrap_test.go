package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/core/domain"
)

func memoryConfig() config.Config {
	return config.Config{
		StorageDriver:       config.StorageDriverMemory,
		FetchTimeoutSeconds: 5,
		FetchMaxBytes:       1 << 20,
	}
}

func TestNewRejectsUnknownStorageDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StorageDriver = "sqlite"

	if _, err := New(context.Background(), cfg, Options{}); err == nil {
		t.Fatalf("expected error for unknown storage driver")
	}
}

func TestNewWithMemoryStorageProcessesAndCaches(t *testing.T) {
	var hits int
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Wired</title><script>x()</script></head><body><p>Hello from the wired pipeline.</p></body></html>`))
	}))
	defer page.Close()

	app, err := New(context.Background(), memoryConfig(), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil || app.EnqueueUC != nil {
		t.Fatalf("queue must not be connected when async ingest is disabled")
	}
	if app.EnrichmentEnabled {
		t.Fatalf("enrichment must be off unless configured")
	}

	first, err := app.ProcessUC.Process(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if first.Metadata.Title != "Wired" || first.Summary != "Hello from the wired pipeline." || first.Cached {
		t.Fatalf("unexpected first document: %+v", first)
	}

	second, err := app.ProcessUC.Process(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("Process() second error = %v", err)
	}
	if !second.Cached || second.ID != first.ID || hits != 1 {
		t.Fatalf("expected cached result without refetch, hits=%d doc=%+v", hits, second)
	}

	docs, err := app.LibraryUC.List(context.Background(), domain.DocumentFilter{})
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected one listed document, got %d err=%v", len(docs), err)
	}
}

func TestEnrichmentExecutorIsTrackedForHealth(t *testing.T) {
	cfg := memoryConfig()
	cfg.EnrichmentEnabled = true
	cfg.EnrichmentBreakerEnabled = true
	cfg.OllamaURL = "http://127.0.0.1:1"

	app, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if !app.EnrichmentEnabled {
		t.Fatalf("expected enrichment to be reported as enabled")
	}
	if len(app.executors) != 1 {
		t.Fatalf("expected one resilience executor, got %d", len(app.executors))
	}
	if states := app.BreakerStates(); len(states) != 0 {
		t.Fatalf("no breaker should exist before the first call, got %v", states)
	}
}

func TestEnrichmentResilienceConfigDisablesRetries(t *testing.T) {
	var transitions []string
	out := enrichmentResilienceConfig(config.Config{EnrichmentBreakerEnabled: false}, func(op, state string) {
		transitions = append(transitions, op+":"+state)
	})
	if out.RetryMaxAttempts != 1 || out.BreakerEnabled {
		t.Fatalf("unexpected enrichment resilience config: %+v", out)
	}
	out.OnStateChange("ollama.generate", "open")
	if len(transitions) != 1 {
		t.Fatalf("expected state change hook to be forwarded")
	}
}
