package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
)

// LibraryUseCase serves stored documents. Summaries are recomputed with the
// heuristic summarizer exactly like cache hits.
type LibraryUseCase struct {
	repo       ports.DocumentRepository
	summarizer *Summarizer
}

func NewLibraryUseCase(repo ports.DocumentRepository, summarizer *Summarizer) *LibraryUseCase {
	return &LibraryUseCase{repo: repo, summarizer: summarizer}
}

func (uc *LibraryUseCase) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	if filter.ReadingStatus != "" {
		status, err := domain.ParseReadingStatus(string(filter.ReadingStatus))
		if err != nil {
			return nil, err
		}
		filter.ReadingStatus = status
	}

	docs, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, storageError("list documents", err)
	}
	for i := range docs {
		withHeuristicSummary(&docs[i], uc.summarizer)
	}
	return docs, nil
}

func (uc *LibraryUseCase) Get(ctx context.Context, id string) (*domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("id is required"))
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, libraryError("get document", err)
	}
	return withHeuristicSummary(doc, uc.summarizer), nil
}

func (uc *LibraryUseCase) UpdateReadingStatus(ctx context.Context, id string, status domain.ReadingStatus) (*domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update reading status", errors.New("id is required"))
	}
	parsed, err := domain.ParseReadingStatus(string(status))
	if err != nil {
		return nil, err
	}

	doc, err := uc.repo.UpdateReadingStatus(ctx, id, parsed)
	if err != nil {
		return nil, libraryError("update reading status", err)
	}
	return withHeuristicSummary(doc, uc.summarizer), nil
}

func (uc *LibraryUseCase) DeleteByURL(ctx context.Context, rawURL string) error {
	if _, err := domain.ParseDocumentURL(rawURL); err != nil {
		return err
	}
	if err := uc.repo.DeleteByURL(ctx, strings.TrimSpace(rawURL)); err != nil {
		return libraryError("delete document", err)
	}
	return nil
}

// libraryError lets not-found pass through untouched.
func libraryError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrDocumentNotFound) {
		return err
	}
	return storageError(operation, err)
}
