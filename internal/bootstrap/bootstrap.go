package bootstrap

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/core/ports"
	"github.com/kirillkom/readshelf/internal/core/usecase"
	"github.com/kirillkom/readshelf/internal/infrastructure/htmldoc"
	"github.com/kirillkom/readshelf/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/readshelf/internal/infrastructure/queue/nats"
	"github.com/kirillkom/readshelf/internal/infrastructure/repository/memory"
	"github.com/kirillkom/readshelf/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/readshelf/internal/infrastructure/resilience"
	"github.com/kirillkom/readshelf/internal/infrastructure/web"
)

// Options selects optional infrastructure per binary.
type Options struct {
	// RequireQueue connects to NATS even when async ingest is disabled.
	RequireQueue bool
	// OnBreakerStateChange receives every circuit breaker transition.
	OnBreakerStateChange func(operation, state string)
}

type App struct {
	Config config.Config

	Repo      ports.DocumentRepository
	Queue     ports.MessageQueue
	ProcessUC ports.DocumentProcessor
	LibraryUC ports.DocumentLibrary
	EnqueueUC ports.IngestEnqueuer

	// EnrichmentEnabled reports whether summaries try the enrichment service
	// before the paragraph heuristic.
	EnrichmentEnabled bool

	executors []*resilience.Executor
	closeFn   func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	var closers []func()
	app.closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeRepo)
	app.Repo = repo

	var enricher ports.Enricher
	if cfg.EnrichmentEnabled {
		executor := resilience.NewExecutor(enrichmentResilienceConfig(cfg, opts.OnBreakerStateChange))
		app.executors = append(app.executors, executor)
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
			Timeout:            time.Duration(cfg.EnrichmentTimeoutSeconds) * time.Second,
			ResilienceExecutor: executor,
		})
		enricher = ollama.NewEnricher(client, cfg.EnrichmentMaxChars)
	}

	summarizer := usecase.NewSummarizer(
		htmldoc.NewParagraphSummarizer(),
		htmldoc.NewTextRenderer(),
		enricher,
		time.Duration(cfg.EnrichmentTimeoutSeconds)*time.Second,
	)
	fetcher := web.NewFetcher(
		time.Duration(cfg.FetchTimeoutSeconds)*time.Second,
		cfg.FetchUserAgent,
		cfg.FetchMaxBytes,
	)

	app.ProcessUC = usecase.NewProcessDocumentUseCase(
		repo,
		fetcher,
		htmldoc.NewSanitizer(),
		htmldoc.NewMetadataExtractor(),
		summarizer,
	)
	app.LibraryUC = usecase.NewLibraryUseCase(repo, summarizer)
	app.EnrichmentEnabled = summarizer.EnrichmentEnabled()

	if opts.RequireQueue || cfg.AsyncIngestEnabled {
		queueCfg := resilience.DefaultConfig()
		queueCfg.OnStateChange = opts.OnBreakerStateChange
		executor := resilience.NewExecutor(queueCfg)
		app.executors = append(app.executors, executor)

		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, queue.Close)
		app.Queue = queue
		app.EnqueueUC = usecase.NewEnqueueIngestUseCase(queue)
	}

	return app, nil
}

func newRepository(ctx context.Context, cfg config.Config) (ports.DocumentRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		return memory.NewDocumentRepository(), func() {}, nil
	case config.StorageDriverPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewDocumentRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// enrichmentResilienceConfig keeps retries to one attempt: the summarizer
// already bounds the whole call and falls back on failure.
func enrichmentResilienceConfig(cfg config.Config, onStateChange func(string, string)) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = 1
	out.BreakerEnabled = cfg.EnrichmentBreakerEnabled
	out.OnStateChange = onStateChange
	return out
}

// BreakerStates merges the breaker states of every executor in use.
func (a *App) BreakerStates() map[string]string {
	out := make(map[string]string)
	for _, executor := range a.executors {
		maps.Copy(out, executor.States())
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
