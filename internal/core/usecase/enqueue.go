package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
)

// EnqueueIngestUseCase validates a URL and hands it to the worker queue.
type EnqueueIngestUseCase struct {
	queue ports.MessageQueue
}

func NewEnqueueIngestUseCase(queue ports.MessageQueue) *EnqueueIngestUseCase {
	return &EnqueueIngestUseCase{queue: queue}
}

func (uc *EnqueueIngestUseCase) Enqueue(ctx context.Context, rawURL string) error {
	if _, err := domain.ParseDocumentURL(rawURL); err != nil {
		return err
	}
	if err := uc.queue.PublishIngestRequested(ctx, strings.TrimSpace(rawURL)); err != nil {
		return fmt.Errorf("publish ingest request: %w", err)
	}
	return nil
}
