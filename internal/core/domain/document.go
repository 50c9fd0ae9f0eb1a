package domain

import (
	"fmt"
	"strings"
	"time"
)

type ReadingStatus string

const (
	StatusUnread     ReadingStatus = "UNREAD"
	StatusInProgress ReadingStatus = "IN_PROGRESS"
	StatusRead       ReadingStatus = "READ"
)

func ParseReadingStatus(raw string) (ReadingStatus, error) {
	switch status := ReadingStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case StatusUnread, StatusInProgress, StatusRead:
		return status, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse reading status", fmt.Errorf("unknown status %q", raw))
	}
}

const (
	DefaultTitle       = "Untitled"
	DefaultContentType = "Article"
	NoSummary          = "No summary available"
	WordsPerMinute     = 200
)

type SummarySource string

const (
	SummaryFromEnrichment SummarySource = "enrichment"
	SummaryFromHeuristic  SummarySource = "heuristic"
)

type Metadata struct {
	Title           string     `json:"title"`
	Author          string     `json:"author,omitempty"`
	PublishDate     *time.Time `json:"publish_date,omitempty"`
	Source          string     `json:"source"`
	ContentType     string     `json:"content_type"`
	PrimaryCategory string     `json:"primary_category,omitempty"`
	ReadingTime     int        `json:"reading_time"`
	WordCount       int        `json:"word_count"`
	CharacterCount  int        `json:"character_count"`
}

// Document is a processed web page. Summary, SummarySource and Cached are
// derived on every read and never persisted.
type Document struct {
	ID            string        `json:"id"`
	URL           string        `json:"url"`
	RawContent    string        `json:"raw_content"`
	CleanContent  string        `json:"clean_content"`
	Metadata      Metadata      `json:"metadata"`
	ReadingStatus ReadingStatus `json:"reading_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Summary       string        `json:"summary"`
	SummarySource SummarySource `json:"summary_source,omitempty"`
	Cached        bool          `json:"cached"`
}

// Enrichment is the structured result of the optional text-understanding service.
type Enrichment struct {
	Summary         string     `json:"summary"`
	ContentType     string     `json:"contentType"`
	Author          string     `json:"author,omitempty"`
	PublishDate     *time.Time `json:"publishDate,omitempty"`
	PrimaryCategory string     `json:"primaryCategory,omitempty"`
}

// Apply overwrites metadata fields the enrichment filled in. Empty fields
// leave the extracted values untouched.
func (e Enrichment) Apply(meta *Metadata) {
	if v := strings.TrimSpace(e.ContentType); v != "" {
		meta.ContentType = v
	}
	if v := strings.TrimSpace(e.Author); v != "" {
		meta.Author = v
	}
	if e.PublishDate != nil {
		published := *e.PublishDate
		meta.PublishDate = &published
	}
	if v := strings.TrimSpace(e.PrimaryCategory); v != "" {
		meta.PrimaryCategory = v
	}
}

// IngestRequest is one queued URL awaiting asynchronous processing.
type IngestRequest struct {
	URL         string    `json:"url"`
	RequestedAt time.Time `json:"requested_at"`
}

type DocumentFilter struct {
	ContentType     string
	PrimaryCategory string
	ReadingStatus   ReadingStatus
}

// ReadingTime converts a word count to whole minutes at WordsPerMinute.
// Any positive count yields at least one minute.
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
