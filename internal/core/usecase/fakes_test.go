package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
	"github.com/kirillkom/readshelf/internal/infrastructure/htmldoc"
	"github.com/kirillkom/readshelf/internal/infrastructure/repository/memory"
)

type fetcherFake struct {
	body    string
	err     error
	calls   atomic.Int32
	arrived *sync.WaitGroup
}

func (f *fetcherFake) Fetch(context.Context, string) (string, error) {
	f.calls.Add(1)
	if f.arrived != nil {
		f.arrived.Done()
		f.arrived.Wait()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

type repoSpy struct {
	ports.DocumentRepository
	findErr     error
	createErr   error
	findCalls   atomic.Int32
	createCalls atomic.Int32
}

func newRepoSpy() *repoSpy {
	return &repoSpy{DocumentRepository: memory.NewDocumentRepository()}
}

func (r *repoSpy) FindByURL(ctx context.Context, url string) (*domain.Document, error) {
	r.findCalls.Add(1)
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.DocumentRepository.FindByURL(ctx, url)
}

func (r *repoSpy) Create(ctx context.Context, doc *domain.Document) error {
	r.createCalls.Add(1)
	if r.createErr != nil {
		return r.createErr
	}
	return r.DocumentRepository.Create(ctx, doc)
}

type enricherFake struct {
	result domain.Enrichment
	err    error
	block  bool
	calls  atomic.Int32

	mu   sync.Mutex
	text string
}

func (f *enricherFake) Classify(ctx context.Context, text string) (domain.Enrichment, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return domain.Enrichment{}, ctx.Err()
	}
	if f.err != nil {
		return domain.Enrichment{}, f.err
	}
	return f.result, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishIngestRequested(_ context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, url)
	return nil
}

func (f *queueFake) SubscribeIngestRequested(context.Context, func(context.Context, domain.IngestRequest) error) error {
	return nil
}

func newTestSummarizer(enricher ports.Enricher) *Summarizer {
	return NewSummarizer(htmldoc.NewParagraphSummarizer(), htmldoc.NewTextRenderer(), enricher, 0)
}

func newTestProcessor(repo ports.DocumentRepository, fetcher ports.PageFetcher, enricher ports.Enricher) *ProcessDocumentUseCase {
	return NewProcessDocumentUseCase(
		repo,
		fetcher,
		htmldoc.NewSanitizer(),
		htmldoc.NewMetadataExtractor(),
		newTestSummarizer(enricher),
	)
}
