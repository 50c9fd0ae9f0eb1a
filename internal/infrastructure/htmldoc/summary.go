package htmldoc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

// ParagraphSummarizer returns the trimmed text of the first non-blank
// paragraph, or domain.NoSummary when there is none.
type ParagraphSummarizer struct{}

func NewParagraphSummarizer() *ParagraphSummarizer {
	return &ParagraphSummarizer{}
}

func (s *ParagraphSummarizer) Summarize(cleanHTML string) string {
	doc, err := parseDocument(cleanHTML)
	if err != nil {
		return domain.NoSummary
	}

	summary := domain.NoSummary
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if text := strings.TrimSpace(p.Text()); text != "" {
			summary = text
			return false
		}
		return true
	})
	return summary
}
