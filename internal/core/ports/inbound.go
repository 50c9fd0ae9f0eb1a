package ports

import (
	"context"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

// DocumentProcessor is the inbound contract for URL ingestion.
type DocumentProcessor interface {
	Process(ctx context.Context, rawURL string) (*domain.Document, error)
}

// DocumentLibrary is the inbound read/write model for stored documents.
type DocumentLibrary interface {
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	UpdateReadingStatus(ctx context.Context, id string, status domain.ReadingStatus) (*domain.Document, error)
	DeleteByURL(ctx context.Context, rawURL string) error
}

// IngestEnqueuer accepts URLs for asynchronous processing.
type IngestEnqueuer interface {
	Enqueue(ctx context.Context, rawURL string) error
}
