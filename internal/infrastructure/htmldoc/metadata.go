package htmldoc

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

// MetadataExtractor computes title, source and size statistics from the raw
// payload. It never classifies; ContentType is always the default.
type MetadataExtractor struct {
	policyPool sync.Pool
}

func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{
		policyPool: sync.Pool{
			New: func() any { return newWordCountPolicy() },
		},
	}
}

func (e *MetadataExtractor) Extract(raw, pageURL string) (domain.Metadata, error) {
	parsed, err := domain.ParseDocumentURL(pageURL)
	if err != nil {
		return domain.Metadata{}, err
	}

	words := e.CountWords(raw)
	return domain.Metadata{
		Title:          extractTitle(raw),
		Source:         parsed.Hostname(),
		ContentType:    domain.DefaultContentType,
		ReadingTime:    domain.ReadingTime(words),
		WordCount:      words,
		CharacterCount: utf8.RuneCountInString(raw),
	}, nil
}

// textBearingElements are elements whose text StrictPolicy drops along with
// the tag. Word counts strip tags only, so their text is kept.
var textBearingElements = []string{
	"title", "script", "style", "noscript", "nostyle",
	"iframe", "noembed", "noframes", "frame", "frameset", "object",
}

// newWordCountPolicy keeps element text and removes tags and comments.
// AllowUnsafe only lets script and style bodies through as text; the output
// is tokenized, never rendered.
func newWordCountPolicy() *bluemonday.Policy {
	return bluemonday.StrictPolicy().
		AllowElementsContent(textBearingElements...).
		AllowUnsafe(true).
		// Adjacent blocks such as </p><p> must not glue words together.
		AddSpaceWhenStrippingTag(true)
}

// CountWords strips all tags and counts whitespace-delimited tokens of the
// remaining text, including title, script and style bodies.
func (e *MetadataExtractor) CountWords(raw string) int {
	policy := e.policyPool.Get().(*bluemonday.Policy)
	defer e.policyPool.Put(policy)

	// strings.Fields of blank text is empty, so an empty page counts 0.
	return len(strings.Fields(policy.Sanitize(raw)))
}

func extractTitle(raw string) string {
	doc, err := parseDocument(raw)
	if err != nil {
		return domain.DefaultTitle
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if title == "" {
		return domain.DefaultTitle
	}
	return title
}
