package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	fetcher    ports.PageFetcher
	sanitizer  ports.Sanitizer
	extractor  ports.MetadataExtractor
	summarizer *Summarizer

	now   func() time.Time
	newID func() string
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	fetcher ports.PageFetcher,
	sanitizer ports.Sanitizer,
	extractor ports.MetadataExtractor,
	summarizer *Summarizer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:       repo,
		fetcher:    fetcher,
		sanitizer:  sanitizer,
		extractor:  extractor,
		summarizer: summarizer,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Process returns the stored document for url when one exists, without any
// network access. Otherwise it fetches, derives and persists a new document.
// Nothing is written before the final create.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, rawURL string) (*domain.Document, error) {
	if _, err := domain.ParseDocumentURL(rawURL); err != nil {
		return nil, err
	}
	pageURL := strings.TrimSpace(rawURL)

	existing, err := uc.lookup(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("ingest_cache_hit", "url", pageURL, "document_id", existing.ID)
		return uc.fromStore(existing), nil
	}

	raw, err := uc.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	clean := uc.sanitizer.Sanitize(raw)
	meta, err := uc.extractor.Extract(raw, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	summary := uc.summarizer.Summarize(ctx, clean, pageURL)
	if summary.Enrichment != nil {
		summary.Enrichment.Apply(&meta)
	}

	now := uc.now()
	doc := &domain.Document{
		ID:            uc.newID(),
		URL:           pageURL,
		RawContent:    raw,
		CleanContent:  clean,
		Metadata:      meta,
		ReadingStatus: domain.StatusUnread,
		CreatedAt:     now,
		UpdatedAt:     now,
		Summary:       summary.Summary,
		SummarySource: summary.Source,
	}

	return uc.persist(ctx, doc)
}

func (uc *ProcessDocumentUseCase) lookup(ctx context.Context, pageURL string) (*domain.Document, error) {
	doc, err := uc.repo.FindByURL(ctx, pageURL)
	if err != nil {
		return nil, storageError("find document by url", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) fetch(ctx context.Context, pageURL string) (string, error) {
	raw, err := uc.fetcher.Fetch(ctx, pageURL)
	if err == nil {
		return raw, nil
	}
	if domain.IsKind(err, domain.ErrFetchFailed) || domain.IsKind(err, domain.ErrNetwork) || domain.IsKind(err, domain.ErrInvalidURL) {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	return "", domain.WrapError(domain.ErrNetwork, "fetch page", err)
}

// persist resolves a lost insert race by re-reading the winner's record.
func (uc *ProcessDocumentUseCase) persist(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	err := uc.repo.Create(ctx, doc)
	if err == nil {
		slog.Info("ingest_document_stored",
			"url", doc.URL,
			"document_id", doc.ID,
			"word_count", doc.Metadata.WordCount,
			"summary_source", string(doc.SummarySource),
		)
		return doc, nil
	}
	if !domain.IsKind(err, domain.ErrDuplicateKey) {
		return nil, storageError("create document", err)
	}

	stored, findErr := uc.repo.FindByURL(ctx, doc.URL)
	if findErr != nil {
		return nil, storageError("re-read duplicate document", findErr)
	}
	if stored == nil {
		return nil, domain.WrapError(domain.ErrStorage, "re-read duplicate document", fmt.Errorf("%s vanished after conflict", doc.URL))
	}
	slog.Info("ingest_duplicate_resolved", "url", doc.URL, "document_id", stored.ID)
	resolved := uc.fromStore(stored)
	if doc.SummarySource == domain.SummaryFromEnrichment {
		// Same page, same enrichment call: keep it instead of downgrading to the heuristic.
		resolved.Summary, resolved.SummarySource = doc.Summary, doc.SummarySource
	}
	return resolved, nil
}

func (uc *ProcessDocumentUseCase) fromStore(doc *domain.Document) *domain.Document {
	return withHeuristicSummary(doc, uc.summarizer)
}

func withHeuristicSummary(doc *domain.Document, summarizer *Summarizer) *domain.Document {
	doc.Summary = summarizer.Heuristic(doc.CleanContent)
	doc.SummarySource = domain.SummaryFromHeuristic
	doc.Cached = true
	return doc
}

// storageError keeps an existing storage kind and tags anything else.
func storageError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrStorage, operation, err)
}
