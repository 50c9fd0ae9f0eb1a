package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
	"github.com/kirillkom/readshelf/internal/observability/metrics"
)

const (
	serviceName      = "api"
	maxRequestBytes  = 1 << 20
	backpressureWait = 100 * time.Millisecond
)

// Options carries the optional collaborators of the router. A nil Enqueuer
// disables asynchronous ingest.
type Options struct {
	Enqueuer      ports.IngestEnqueuer
	Metrics       *metrics.HTTPServerMetrics
	BreakerStates func() map[string]string
	// EnrichmentEnabled is reported on /healthz.
	EnrichmentEnabled bool
}

type Router struct {
	cfg       config.Config
	processor ports.DocumentProcessor
	library   ports.DocumentLibrary
	opts      Options
}

func NewRouter(
	cfg config.Config,
	processor ports.DocumentProcessor,
	library ports.DocumentLibrary,
	opts Options,
) *Router {
	return &Router{
		cfg:       cfg,
		processor: processor,
		library:   library,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/documents", rt.processDocument)
	api.HandleFunc("GET /v1/documents", rt.listDocuments)
	api.HandleFunc("DELETE /v1/documents", rt.deleteDocument)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	api.HandleFunc("PATCH /v1/documents/{id}/status", rt.updateReadingStatus)

	var guarded http.Handler = api
	if rt.cfg.APIMaxInFlight > 0 {
		guarded = backpressureMiddleware(guarded, rt.cfg.APIMaxInFlight, backpressureWait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		guarded = rateLimitMiddleware(guarded, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics.Handler())
	}
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	enrichment := "disabled"
	if rt.opts.EnrichmentEnabled {
		enrichment = "enabled"
	}
	resp := map[string]any{"status": "ok", "enrichment": enrichment}
	if rt.opts.BreakerStates != nil {
		states := rt.opts.BreakerStates()
		for _, state := range states {
			if state == "open" {
				resp["status"] = "degraded"
			}
		}
		resp["breakers"] = states
	}
	writeJSON(w, http.StatusOK, resp)
}

type processRequest struct {
	URL   string `json:"url"`
	Async bool   `json:"async"`
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}

	if req.Async {
		rt.enqueueDocument(w, r, req.URL)
		return
	}

	start := time.Now()
	doc, err := rt.processor.Process(r.Context(), req.URL)
	if err != nil {
		rt.recordIngest("error", start)
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	outcome := "cache_miss"
	if doc.Cached {
		status = http.StatusOK
		outcome = "cache_hit"
	}
	rt.recordIngest(outcome, start)
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordSummarySource(serviceName, string(doc.SummarySource))
	}
	writeJSON(w, status, doc)
}

func (rt *Router) enqueueDocument(w http.ResponseWriter, r *http.Request, rawURL string) {
	if rt.opts.Enqueuer == nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "enqueue document", errors.New("async ingest is disabled")))
		return
	}

	start := time.Now()
	if err := rt.opts.Enqueuer.Enqueue(r.Context(), rawURL); err != nil {
		rt.recordIngest("error", start)
		writeError(w, err)
		return
	}
	rt.recordIngest("queued", start)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"url":    strings.TrimSpace(rawURL),
	})
}

func (rt *Router) recordIngest(outcome string, start time.Time) {
	if rt.opts.Metrics == nil {
		return
	}
	rt.opts.Metrics.RecordIngest(serviceName, outcome, time.Since(start))
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	docs, err := rt.library.List(r.Context(), domain.DocumentFilter{
		ContentType:     strings.TrimSpace(query.Get("content_type")),
		PrimaryCategory: strings.TrimSpace(query.Get("category")),
		ReadingStatus:   domain.ReadingStatus(strings.TrimSpace(query.Get("status"))),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.library.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) updateReadingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}

	doc, err := rt.library.UpdateReadingStatus(r.Context(), r.PathValue("id"), domain.ReadingStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if strings.TrimSpace(rawURL) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "delete document", fmt.Errorf("query parameter %q is required", "url")))
		return
	}
	if err := rt.library.DeleteByURL(r.Context(), rawURL); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
