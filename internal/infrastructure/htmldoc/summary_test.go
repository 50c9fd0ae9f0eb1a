package htmldoc

import (
	"testing"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

func TestParagraphSummarizer(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "first paragraph",
			html: "<body><h1>Head</h1><p>  First para.  </p><p>Second.</p></body>",
			want: "First para.",
		},
		{
			name: "inline markup",
			html: "<p>Hello <b>bold</b> world</p>",
			want: "Hello bold world",
		},
		{
			name: "blank paragraphs skipped",
			html: "<p>   </p><p><img src=x></p><p>Later text</p>",
			want: "Later text",
		},
		{
			name: "only blank paragraphs",
			html: "<p> </p><p>\n\t</p>",
			want: domain.NoSummary,
		},
		{
			name: "no paragraph",
			html: "<body><div>Only a div</div></body>",
			want: domain.NoSummary,
		},
		{
			name: "empty document",
			html: "",
			want: domain.NoSummary,
		},
	}

	s := NewParagraphSummarizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Summarize(tt.html); got != tt.want {
				t.Fatalf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParagraphSummarizerIsDeterministic(t *testing.T) {
	s := NewParagraphSummarizer()
	html := "<article><p>Stable summary</p></article>"
	if first, second := s.Summarize(html), s.Summarize(html); first != second {
		t.Fatalf("expected identical summaries, got %q and %q", first, second)
	}
}
