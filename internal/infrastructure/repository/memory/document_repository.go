package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
)

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

// DocumentRepository keeps documents in process memory. URL uniqueness is
// enforced the same way the Postgres table does it, so concurrent ingestion
// behaves identically against both stores.
type DocumentRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Document
	byURL map[string]string
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{
		byID:  make(map[string]*domain.Document),
		byURL: make(map[string]string),
	}
}

func (r *DocumentRepository) FindByURL(_ context.Context, url string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURL[url]
	if !ok {
		return nil, nil
	}
	return copyDocument(r.byID[id]), nil
}

func (r *DocumentRepository) Create(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byURL[doc.URL]; exists {
		return domain.WrapError(domain.ErrDuplicateKey, "insert document", fmt.Errorf("url %s", doc.URL))
	}
	if _, exists := r.byID[doc.ID]; exists {
		return domain.WrapError(domain.ErrDuplicateKey, "insert document", fmt.Errorf("id %s", doc.ID))
	}

	stored := copyDocument(doc)
	r.byID[stored.ID] = stored
	r.byURL[stored.URL] = stored.ID
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	return copyDocument(doc), nil
}

func (r *DocumentRepository) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]domain.Document, 0, len(r.byID))
	for _, doc := range r.byID {
		if filter.ContentType != "" && doc.Metadata.ContentType != filter.ContentType {
			continue
		}
		if filter.PrimaryCategory != "" && doc.Metadata.PrimaryCategory != filter.PrimaryCategory {
			continue
		}
		if filter.ReadingStatus != "" && doc.ReadingStatus != filter.ReadingStatus {
			continue
		}
		docs = append(docs, *copyDocument(doc))
	}

	// Same order as the SQL store: newest first, id as tie breaker.
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (r *DocumentRepository) UpdateReadingStatus(_ context.Context, id string, status domain.ReadingStatus) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update reading status", fmt.Errorf("id %s", id))
	}
	doc.ReadingStatus = status
	doc.UpdatedAt = time.Now().UTC()
	return copyDocument(doc), nil
}

func (r *DocumentRepository) DeleteByURL(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byURL[url]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("url %s", url))
	}
	delete(r.byURL, url)
	delete(r.byID, id)
	return nil
}

// copyDocument detaches stored state from callers, including the publish
// date pointer.
func copyDocument(doc *domain.Document) *domain.Document {
	out := *doc
	if doc.Metadata.PublishDate != nil {
		published := *doc.Metadata.PublishDate
		out.Metadata.PublishDate = &published
	}
	out.Summary = ""
	out.SummarySource = ""
	out.Cached = false
	return &out
}
