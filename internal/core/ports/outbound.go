package ports

import (
	"context"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

// DocumentRepository persists processed documents keyed by URL.
// FindByURL returns (nil, nil) on a miss. Create fails with
// domain.ErrDuplicateKey when the URL is already stored.
type DocumentRepository interface {
	FindByURL(ctx context.Context, url string) (*domain.Document, error)
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	UpdateReadingStatus(ctx context.Context, id string, status domain.ReadingStatus) (*domain.Document, error)
	DeleteByURL(ctx context.Context, url string) error
}

// PageFetcher retrieves the raw document behind a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Sanitizer strips non-content markup.
type Sanitizer interface {
	Sanitize(raw string) string
}

// MetadataExtractor derives descriptive metadata from the raw document.
type MetadataExtractor interface {
	Extract(raw, pageURL string) (domain.Metadata, error)
}

// HeuristicSummarizer picks a synopsis straight from markup and never fails.
type HeuristicSummarizer interface {
	Summarize(cleanHTML string) string
}

// TextRenderer turns clean markup into text suitable for an enrichment prompt.
type TextRenderer interface {
	Render(cleanHTML, pageURL string) string
}

// Enricher is the optional structured-extraction collaborator.
type Enricher interface {
	Classify(ctx context.Context, text string) (domain.Enrichment, error)
}

// MessageQueue publishes/consumes ingestion requests.
type MessageQueue interface {
	PublishIngestRequested(ctx context.Context, url string) error
	SubscribeIngestRequested(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error
}
