package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel string) *Client {
	return NewWithOptions(baseURL, genModel, Options{})
}

func NewWithOptions(baseURL, genModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Enricher asks the generation model for a structured summary and metadata
// overrides of a document.
type Enricher struct {
	client   *Client
	maxChars int
}

func NewEnricher(client *Client, maxChars int) *Enricher {
	if maxChars <= 0 {
		maxChars = defaultMaxPromptChars
	}
	return &Enricher{client: client, maxChars: maxChars}
}

// enrichmentPayload accepts the flat shape requested by the prompt as well as
// the nested {"metadata": {...}} shape some models prefer.
type enrichmentPayload struct {
	Summary         string `json:"summary"`
	ContentType     string `json:"contentType"`
	Author          string `json:"author"`
	PublishDate     string `json:"publishDate"`
	PrimaryCategory string `json:"primaryCategory"`
	Metadata        *struct {
		Author          string `json:"author"`
		PublishDate     string `json:"publishDate"`
		PrimaryCategory string `json:"primaryCategory"`
	} `json:"metadata"`
}

func (e *Enricher) Classify(ctx context.Context, text string) (domain.Enrichment, error) {
	respText, err := e.client.generateJSON(ctx, buildEnrichmentPrompt(text, e.maxChars))
	if err != nil {
		return domain.Enrichment{}, domain.WrapError(domain.ErrEnrichment, "ollama enrich", err)
	}

	var payload enrichmentPayload
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &payload); err != nil {
		return domain.Enrichment{}, domain.WrapError(domain.ErrEnrichment, "parse enrichment json", err)
	}

	result := domain.Enrichment{
		Summary:         strings.TrimSpace(payload.Summary),
		ContentType:     strings.TrimSpace(payload.ContentType),
		Author:          strings.TrimSpace(payload.Author),
		PrimaryCategory: strings.TrimSpace(payload.PrimaryCategory),
	}
	publishDate := payload.PublishDate
	if payload.Metadata != nil {
		if result.Author == "" {
			result.Author = strings.TrimSpace(payload.Metadata.Author)
		}
		if result.PrimaryCategory == "" {
			result.PrimaryCategory = strings.TrimSpace(payload.Metadata.PrimaryCategory)
		}
		if strings.TrimSpace(publishDate) == "" {
			publishDate = payload.Metadata.PublishDate
		}
	}
	result.PublishDate = parsePublishDate(publishDate)

	if result.Summary == "" {
		return domain.Enrichment{}, domain.WrapError(domain.ErrEnrichment, "parse enrichment json", fmt.Errorf("empty summary"))
	}
	return result, nil
}

var publishDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"2 January 2006",
}

// parsePublishDate drops dates it cannot read instead of failing the whole
// enrichment.
func parsePublishDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range publishDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

const generateOperation = "ollama.generate"

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Model: c.genModel, Prompt: prompt, Format: "json"}

	var resp generateResponse
	call := func(callCtx context.Context) error {
		return c.post(callCtx, "/api/generate", req, &resp)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, generateOperation, call, classifyGenerateError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.WrapTemporary("ollama generate", err, classifyGenerateError)
	}
	return strings.TrimSpace(resp.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
