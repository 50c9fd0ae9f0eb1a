package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
)

const defaultEnrichmentTimeout = 20 * time.Second

// SummaryResult is the outcome of the fallback chain. Enrichment is set only
// when the enrichment call succeeded.
type SummaryResult struct {
	Summary    string
	Source     domain.SummarySource
	Enrichment *domain.Enrichment
}

// Summarizer tries the enrichment collaborator first and degrades to the
// heuristic summarizer on any failure. It never returns an error.
type Summarizer struct {
	heuristic ports.HeuristicSummarizer
	renderer  ports.TextRenderer
	enricher  ports.Enricher
	timeout   time.Duration
}

// NewSummarizer builds the chain. A nil enricher disables enrichment.
func NewSummarizer(
	heuristic ports.HeuristicSummarizer,
	renderer ports.TextRenderer,
	enricher ports.Enricher,
	timeout time.Duration,
) *Summarizer {
	if timeout <= 0 {
		timeout = defaultEnrichmentTimeout
	}
	return &Summarizer{
		heuristic: heuristic,
		renderer:  renderer,
		enricher:  enricher,
		timeout:   timeout,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, cleanHTML, pageURL string) SummaryResult {
	if enrichment, ok := s.enrich(ctx, cleanHTML, pageURL); ok {
		result := SummaryResult{
			Summary:    strings.TrimSpace(enrichment.Summary),
			Source:     domain.SummaryFromEnrichment,
			Enrichment: &enrichment,
		}
		if result.Summary == "" {
			result.Summary = s.Heuristic(cleanHTML)
			result.Source = domain.SummaryFromHeuristic
		}
		return result
	}
	return SummaryResult{
		Summary: s.Heuristic(cleanHTML),
		Source:  domain.SummaryFromHeuristic,
	}
}

// Heuristic is the deterministic, network-free summary used for stored
// documents.
func (s *Summarizer) Heuristic(cleanHTML string) string {
	return s.heuristic.Summarize(cleanHTML)
}

func (s *Summarizer) EnrichmentEnabled() bool {
	return s.enricher != nil
}

func (s *Summarizer) enrich(ctx context.Context, cleanHTML, pageURL string) (domain.Enrichment, bool) {
	if s.enricher == nil {
		return domain.Enrichment{}, false
	}
	text := strings.TrimSpace(s.renderer.Render(cleanHTML, pageURL))
	if text == "" {
		return domain.Enrichment{}, false
	}

	enrichCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	enrichment, err := s.enricher.Classify(enrichCtx, text)
	if err != nil {
		slog.Warn("enrichment_fallback",
			"url", pageURL,
			"error", domain.WrapError(domain.ErrEnrichment, "enrich document", err),
		)
		return domain.Enrichment{}, false
	}
	return enrichment, true
}
