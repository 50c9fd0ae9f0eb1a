package htmldoc

import (
	"bytes"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// TextRenderer narrows clean markup to the readable article body and
// converts it to Markdown for enrichment prompts.
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (r *TextRenderer) Render(cleanHTML, pageURL string) string {
	body := articleHTML(cleanHTML, pageURL)

	md, err := htmltomarkdown.ConvertString(body, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(md) == "" {
		return plainText(body)
	}
	return cleanMarkdown(md)
}

// articleHTML falls back to the whole document when readability finds no
// article body.
func articleHTML(cleanHTML, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return cleanHTML
	}
	article, err := readability.FromReader(strings.NewReader(cleanHTML), parsedURL)
	if err != nil {
		return cleanHTML
	}

	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil || strings.TrimSpace(buf.String()) == "" {
		return cleanHTML
	}
	return buf.String()
}

func plainText(markup string) string {
	doc, err := parseDocument(markup)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func cleanMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	result := make([]string, 0, len(lines))
	blankCount := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, "")
			}
			continue
		}
		blankCount = 0
		result = append(result, strings.TrimRight(line, " \t"))
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}
