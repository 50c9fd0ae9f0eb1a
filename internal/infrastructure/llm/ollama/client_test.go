package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/infrastructure/resilience"
)

func TestEnricherParsesStructuredResponse(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"Here you go: {\"summary\":\" Short summary. \",\"contentType\":\"Tutorial\",\"author\":\"Jane\",\"publishDate\":\"2024-03-15\",\"primaryCategory\":\"Development\"}"}`))
	}))
	defer server.Close()

	enricher := NewEnricher(New(server.URL, "gen-model"), 100)
	result, err := enricher.Classify(context.Background(), "Some article text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Summary != "Short summary." || result.ContentType != "Tutorial" || result.Author != "Jane" || result.PrimaryCategory != "Development" {
		t.Fatalf("unexpected enrichment: %+v", result)
	}
	if result.PublishDate == nil || !result.PublishDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected publish date: %v", result.PublishDate)
	}
	if payload["model"] != "gen-model" || payload["format"] != "json" || payload["stream"] != false {
		t.Fatalf("unexpected request payload: %v", payload)
	}
	if prompt, _ := payload["prompt"].(string); !strings.Contains(prompt, "Some article text") {
		t.Fatalf("expected document text in prompt, got %q", prompt)
	}
}

func TestEnricherAcceptsNestedMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"contentType\":\"Technical Article\",\"summary\":\"AI summary.\",\"metadata\":{\"author\":\"John Doe\",\"publishDate\":\"not a date\",\"primaryCategory\":\"Development\"}}"}`))
	}))
	defer server.Close()

	result, err := NewEnricher(New(server.URL, "gen"), 0).Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Author != "John Doe" || result.PrimaryCategory != "Development" || result.ContentType != "Technical Article" {
		t.Fatalf("unexpected enrichment: %+v", result)
	}
	if result.PublishDate != nil {
		t.Fatalf("expected unparseable date to be dropped, got %v", result.PublishDate)
	}
}

func TestEnricherRejectsEmptySummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"{\"contentType\":\"Article\"}"}`))
	}))
	defer server.Close()

	_, err := NewEnricher(New(server.URL, "gen"), 0).Classify(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrEnrichment) {
		t.Fatalf("expected ErrEnrichment, got %v", err)
	}
}

func TestEnricherIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEnricher(New(server.URL, "gen"), 0).Classify(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrEnrichment) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected enrichment and temporary kinds, got %v", err)
	}
}

func TestEnricherRetriesRetryableStatusThroughExecutor(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{\"summary\":\"ok\"}"}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
	})
	client := NewWithOptions(server.URL, "gen", Options{ResilienceExecutor: executor})

	result, err := NewEnricher(client, 0).Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Summary != "ok" {
		t.Fatalf("unexpected summary %q", result.Summary)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestTruncateRunesKeepsCharactersWhole(t *testing.T) {
	if got := truncateRunes("héllo wörld", 4); got != "héll" {
		t.Fatalf("truncateRunes() = %q", got)
	}
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("truncateRunes() = %q", got)
	}
}
