package usecase

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
	"github.com/kirillkom/readshelf/internal/infrastructure/htmldoc"
)

const testPage = `<html><head><title>Test Page</title><script>track()</script></head>
<body><!-- nav --><p>This is a test paragraph with multiple words</p><style>p{}</style><p>Second</p></body></html>`

func TestProcessCacheMissStoresDocument(t *testing.T) {
	repo := newRepoSpy()
	fetcher := &fetcherFake{body: testPage}
	uc := newTestProcessor(repo, fetcher, nil)

	doc, err := uc.Process(context.Background(), "  https://example.com/post  ")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if doc.URL != "https://example.com/post" {
		t.Fatalf("expected trimmed url, got %q", doc.URL)
	}
	if doc.RawContent != testPage {
		t.Fatalf("raw content must be stored as fetched")
	}
	if doc.Metadata.Title != "Test Page" || doc.Metadata.Source != "example.com" || doc.Metadata.ContentType != domain.DefaultContentType {
		t.Fatalf("unexpected metadata: %+v", doc.Metadata)
	}
	if doc.Metadata.CharacterCount != len([]rune(testPage)) {
		t.Fatalf("character count = %d, want %d", doc.Metadata.CharacterCount, len([]rune(testPage)))
	}
	if doc.Metadata.WordCount != 13 || doc.Metadata.ReadingTime != 1 {
		t.Fatalf("unexpected counts: %+v", doc.Metadata)
	}
	if doc.Summary != "This is a test paragraph with multiple words" || doc.SummarySource != domain.SummaryFromHeuristic {
		t.Fatalf("unexpected summary %q (%s)", doc.Summary, doc.SummarySource)
	}
	if doc.Cached || doc.ReadingStatus != domain.StatusUnread || doc.ID == "" {
		t.Fatalf("unexpected document state: %+v", doc)
	}
	if fetcher.calls.Load() != 1 || repo.createCalls.Load() != 1 {
		t.Fatalf("expected one fetch and one create, got %d/%d", fetcher.calls.Load(), repo.createCalls.Load())
	}
}

func TestProcessCacheHitMakesNoNetworkCall(t *testing.T) {
	repo := newRepoSpy()
	fetcher := &fetcherFake{body: testPage}
	uc := newTestProcessor(repo, fetcher, nil)
	ctx := context.Background()

	first, err := uc.Process(ctx, "https://example.com/post")
	if err != nil {
		t.Fatalf("first Process() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := uc.Process(ctx, "https://example.com/post")
		if err != nil {
			t.Fatalf("repeat Process() error = %v", err)
		}
		if !again.Cached {
			t.Fatalf("expected cached result")
		}
		if !reflect.DeepEqual(again.Metadata, first.Metadata) {
			t.Fatalf("metadata changed on cache hit: %+v vs %+v", again.Metadata, first.Metadata)
		}
		if again.Summary != first.Summary || again.ID != first.ID {
			t.Fatalf("cache hit differs: %+v", again)
		}
	}
	if fetcher.calls.Load() != 1 || repo.createCalls.Load() != 1 {
		t.Fatalf("expected a single fetch and create, got %d/%d", fetcher.calls.Load(), repo.createCalls.Load())
	}
}

func TestProcessCacheHitRecomputesSummaryFromStoredContent(t *testing.T) {
	repo := newRepoSpy()
	now := time.Now().UTC()
	_ = repo.DocumentRepository.Create(context.Background(), &domain.Document{
		ID:           "stored",
		URL:          "https://example.com/old",
		RawContent:   "<p>Old raw</p>",
		CleanContent: "<div><p>  Stored paragraph </p></div>",
		Metadata:     domain.Metadata{Title: "Old", ContentType: "Tutorial", WordCount: 2, ReadingTime: 1},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	enricher := &enricherFake{result: domain.Enrichment{Summary: "must not be used"}}
	fetcher := &fetcherFake{}

	doc, err := newTestProcessor(repo, fetcher, enricher).Process(context.Background(), "https://example.com/old")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if doc.Summary != "Stored paragraph" || doc.SummarySource != domain.SummaryFromHeuristic {
		t.Fatalf("unexpected summary %q (%s)", doc.Summary, doc.SummarySource)
	}
	if doc.Metadata.ContentType != "Tutorial" {
		t.Fatalf("expected stored metadata, got %+v", doc.Metadata)
	}
	if fetcher.calls.Load() != 0 || enricher.calls.Load() != 0 {
		t.Fatalf("cache hit must not call fetcher or enricher")
	}
}

func TestProcessInvalidURLPerformsNoIO(t *testing.T) {
	repo := newRepoSpy()
	fetcher := &fetcherFake{body: testPage}
	uc := newTestProcessor(repo, fetcher, nil)

	for _, raw := range []string{"not-a-valid-url", "", "ftp://example.com/x", "/relative"} {
		_, err := uc.Process(context.Background(), raw)
		if !domain.IsKind(err, domain.ErrInvalidURL) {
			t.Fatalf("Process(%q) expected ErrInvalidURL, got %v", raw, err)
		}
		if domain.ErrorKind(err) != "InvalidUrl" {
			t.Fatalf("unexpected public kind %q", domain.ErrorKind(err))
		}
	}
	if fetcher.calls.Load() != 0 || repo.findCalls.Load() != 0 {
		t.Fatalf("invalid url must not touch fetcher or repository")
	}
}

func TestProcessFetchFailureSurfacesStatus(t *testing.T) {
	repo := newRepoSpy()
	fetcher := &fetcherFake{err: &domain.FetchError{URL: "https://example.com/missing", StatusCode: 404, Status: "404 Not Found"}}

	_, err := newTestProcessor(repo, fetcher, nil).Process(context.Background(), "https://example.com/missing")
	if !domain.IsKind(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if domain.FetchStatus(err) != 404 {
		t.Fatalf("expected status 404, got %d", domain.FetchStatus(err))
	}
	if repo.createCalls.Load() != 0 {
		t.Fatalf("fetch failure must not persist anything")
	}
}

func TestProcessTransportFailureIsNetworkError(t *testing.T) {
	repo := newRepoSpy()
	fetcher := &fetcherFake{err: errors.New("connection refused")}

	_, err := newTestProcessor(repo, fetcher, nil).Process(context.Background(), "https://example.com")
	if !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if repo.createCalls.Load() != 0 {
		t.Fatalf("network failure must not persist anything")
	}
}

func TestProcessLookupFailureIsStorageError(t *testing.T) {
	repo := newRepoSpy()
	repo.findErr = errors.New("db down")
	fetcher := &fetcherFake{body: testPage}

	_, err := newTestProcessor(repo, fetcher, nil).Process(context.Background(), "https://example.com")
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if fetcher.calls.Load() != 0 {
		t.Fatalf("lookup failure must stop before fetch")
	}
}

func TestProcessCreateFailureIsStorageError(t *testing.T) {
	repo := newRepoSpy()
	repo.createErr = errors.New("disk full")

	doc, err := newTestProcessor(repo, &fetcherFake{body: testPage}, nil).Process(context.Background(), "https://example.com")
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if doc != nil {
		t.Fatalf("unsaved document must not be returned")
	}
}

func TestProcessDuplicateWithoutStoredRecordIsStorageError(t *testing.T) {
	repo := newRepoSpy()
	repo.createErr = domain.WrapError(domain.ErrDuplicateKey, "insert document", errors.New("conflict"))

	_, err := newTestProcessor(repo, &fetcherFake{body: testPage}, nil).Process(context.Background(), "https://example.com")
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

// raceFirstCalls runs two Process calls that both miss the cache before
// either persists.
func raceFirstCalls(t *testing.T, enricher ports.Enricher) ([]*domain.Document, *repoSpy) {
	t.Helper()
	repo := newRepoSpy()
	arrived := &sync.WaitGroup{}
	arrived.Add(2)
	fetcher := &fetcherFake{body: testPage, arrived: arrived}
	uc := newTestProcessor(repo, fetcher, enricher)

	results := make([]*domain.Document, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = uc.Process(context.Background(), "https://example.com/race")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if fetcher.calls.Load() != 2 {
		t.Fatalf("expected both calls to miss the cache, got %d fetches", fetcher.calls.Load())
	}
	docs, err := repo.List(context.Background(), domain.DocumentFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected exactly one stored record, got %d", len(docs))
	}
	if results[0].ID != results[1].ID || results[0].ID != docs[0].ID {
		t.Fatalf("expected both calls to return the stored record, got %s and %s", results[0].ID, results[1].ID)
	}
	return results, repo
}

func TestProcessConcurrentFirstCallsStoreOneRecord(t *testing.T) {
	results, _ := raceFirstCalls(t, nil)
	if !reflect.DeepEqual(results[0].Metadata, results[1].Metadata) || results[0].Summary != results[1].Summary {
		t.Fatalf("results differ: %+v vs %+v", results[0], results[1])
	}
}

func TestProcessConcurrentFirstCallsWithEnrichmentAgree(t *testing.T) {
	enricher := &enricherFake{result: domain.Enrichment{
		Summary:         "Enriched synopsis.",
		ContentType:     "Tutorial",
		PrimaryCategory: "Development",
	}}
	results, _ := raceFirstCalls(t, enricher)

	if !reflect.DeepEqual(results[0].Metadata, results[1].Metadata) {
		t.Fatalf("metadata differs: %+v vs %+v", results[0].Metadata, results[1].Metadata)
	}
	for i, doc := range results {
		if doc.Summary != "Enriched synopsis." || doc.SummarySource != domain.SummaryFromEnrichment {
			t.Fatalf("call %d summary %q (%s), want the enrichment summary", i, doc.Summary, doc.SummarySource)
		}
		if doc.Metadata.ContentType != "Tutorial" {
			t.Fatalf("call %d content type %q, want enrichment override", i, doc.Metadata.ContentType)
		}
	}
	if enricher.calls.Load() != 2 {
		t.Fatalf("expected each miss to enrich once, got %d calls", enricher.calls.Load())
	}
}

func TestProcessAppliesEnrichment(t *testing.T) {
	published := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	enricher := &enricherFake{result: domain.Enrichment{
		Summary:         "This is an AI-generated summary of the content.",
		ContentType:     "Technical Article",
		Author:          "John Doe",
		PublishDate:     &published,
		PrimaryCategory: "Development",
	}}
	repo := newRepoSpy()

	doc, err := newTestProcessor(repo, &fetcherFake{body: testPage}, enricher).Process(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if doc.Summary != "This is an AI-generated summary of the content." || doc.SummarySource != domain.SummaryFromEnrichment {
		t.Fatalf("unexpected summary %q (%s)", doc.Summary, doc.SummarySource)
	}
	if doc.Metadata.ContentType != "Technical Article" || doc.Metadata.Author != "John Doe" || doc.Metadata.PrimaryCategory != "Development" {
		t.Fatalf("enrichment overrides not applied: %+v", doc.Metadata)
	}
	if doc.Metadata.WordCount != 13 || doc.Metadata.Title != "Test Page" {
		t.Fatalf("extracted metadata must survive enrichment: %+v", doc.Metadata)
	}
	if enricher.text == "" {
		t.Fatalf("expected rendered text to reach the enricher")
	}

	stored, _ := repo.FindByURL(context.Background(), "https://example.com")
	if stored.Metadata.ContentType != "Technical Article" {
		t.Fatalf("expected enriched metadata to be persisted, got %+v", stored.Metadata)
	}
}

func TestProcessFallsBackWhenEnrichmentFails(t *testing.T) {
	enricher := &enricherFake{err: errors.New("api unavailable")}

	doc, err := newTestProcessor(newRepoSpy(), &fetcherFake{body: testPage}, enricher).Process(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("enrichment failure must be absorbed, got %v", err)
	}
	if doc.Metadata.ContentType != domain.DefaultContentType {
		t.Fatalf("expected default content type, got %q", doc.Metadata.ContentType)
	}
	if doc.Summary != "This is a test paragraph with multiple words" || doc.SummarySource != domain.SummaryFromHeuristic {
		t.Fatalf("unexpected fallback summary %q (%s)", doc.Summary, doc.SummarySource)
	}
}

func TestProcessFallsBackWhenEnrichmentTimesOut(t *testing.T) {
	enricher := &enricherFake{block: true}
	summarizer := NewSummarizer(htmldoc.NewParagraphSummarizer(), htmldoc.NewTextRenderer(), enricher, 20*time.Millisecond)
	uc := NewProcessDocumentUseCase(newRepoSpy(), &fetcherFake{body: testPage}, htmldoc.NewSanitizer(), htmldoc.NewMetadataExtractor(), summarizer)

	start := time.Now()
	doc, err := uc.Process(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("enrichment timeout was not enforced")
	}
	if doc.SummarySource != domain.SummaryFromHeuristic {
		t.Fatalf("expected heuristic fallback, got %s", doc.SummarySource)
	}
}

func TestProcessDocumentWithoutParagraph(t *testing.T) {
	doc, err := newTestProcessor(newRepoSpy(), &fetcherFake{body: "<html><body><div>No paragraphs</div></body></html>"}, nil).
		Process(context.Background(), "https://example.com/empty")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if doc.Summary != domain.NoSummary {
		t.Fatalf("expected %q, got %q", domain.NoSummary, doc.Summary)
	}
	if doc.Metadata.Title != domain.DefaultTitle {
		t.Fatalf("expected default title, got %q", doc.Metadata.Title)
	}
}
