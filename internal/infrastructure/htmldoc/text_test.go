package htmldoc

import (
	"strings"
	"testing"
)

func TestTextRendererKeepsArticleText(t *testing.T) {
	html := `<html><head><title>Post</title></head><body>
<article><h1>Heading</h1><p>Hello world from the article body.</p><p>Second paragraph here.</p></article>
</body></html>`

	out := NewTextRenderer().Render(html, "https://example.com/post")
	if !strings.Contains(out, "Hello world from the article body.") {
		t.Fatalf("expected article text in output, got %q", out)
	}
	if strings.Contains(out, "<p>") {
		t.Fatalf("expected markup to be converted, got %q", out)
	}
}

func TestCleanMarkdownCollapsesBlankLines(t *testing.T) {
	got := cleanMarkdown("a  \n\n\n\nb\n")
	if got != "a\n\nb" {
		t.Fatalf("cleanMarkdown() = %q", got)
	}
}
