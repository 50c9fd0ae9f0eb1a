package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/readshelf/internal/core/domain"
	"github.com/kirillkom/readshelf/internal/core/ports"
)

const (
	toolProcessURL    = "process_url"
	toolListDocuments = "list_documents"
)

// Server exposes the ingestion pipeline and the library as MCP tools.
type Server struct {
	processor ports.DocumentProcessor
	library   ports.DocumentLibrary
}

func NewServer(processor ports.DocumentProcessor, library ports.DocumentLibrary) *Server {
	return &Server{processor: processor, library: library}
}

func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("readshelf", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	srv.AddTool(mcp.NewTool(toolProcessURL,
		mcp.WithDescription("Fetch a web page, store it in the reading library and return its metadata and summary. Already stored URLs are returned without refetching."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL of the page")),
	), s.processURL)
	srv.AddTool(mcp.NewTool(toolListDocuments,
		mcp.WithDescription("List stored documents, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("status", mcp.Enum(string(domain.StatusUnread), string(domain.StatusInProgress), string(domain.StatusRead)),
			mcp.Description("Only documents with this reading status")),
		mcp.WithString("content_type", mcp.Description("Only documents with this content type")),
		mcp.WithString("category", mcp.Description("Only documents with this primary category")),
	), s.listDocuments)
	return srv
}

// documentView omits raw and clean markup, which are too large for a tool result.
type documentView struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Summary         string     `json:"summary"`
	SummarySource   string     `json:"summary_source,omitempty"`
	Source          string     `json:"source"`
	ContentType     string     `json:"content_type"`
	Author          string     `json:"author,omitempty"`
	PublishDate     *time.Time `json:"publish_date,omitempty"`
	PrimaryCategory string     `json:"primary_category,omitempty"`
	ReadingTime     int        `json:"reading_time"`
	WordCount       int        `json:"word_count"`
	CharacterCount  int        `json:"character_count"`
	ReadingStatus   string     `json:"reading_status"`
	Cached          bool       `json:"cached"`
}

func newDocumentView(doc domain.Document) documentView {
	return documentView{
		ID:              doc.ID,
		URL:             doc.URL,
		Title:           doc.Metadata.Title,
		Summary:         doc.Summary,
		SummarySource:   string(doc.SummarySource),
		Source:          doc.Metadata.Source,
		ContentType:     doc.Metadata.ContentType,
		Author:          doc.Metadata.Author,
		PublishDate:     doc.Metadata.PublishDate,
		PrimaryCategory: doc.Metadata.PrimaryCategory,
		ReadingTime:     doc.Metadata.ReadingTime,
		WordCount:       doc.Metadata.WordCount,
		CharacterCount:  doc.Metadata.CharacterCount,
		ReadingStatus:   string(doc.ReadingStatus),
		Cached:          doc.Cached,
	}
}

func (s *Server) processURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return toolError(domain.WrapError(domain.ErrInvalidInput, toolProcessURL, err)), nil
	}

	doc, err := s.processor.Process(ctx, rawURL)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolProcessURL, "url", rawURL, "error", err)
		return toolError(err), nil
	}
	return mcp.NewToolResultJSON(newDocumentView(*doc))
}

type listResult struct {
	Documents []documentView `json:"documents"`
	Count     int            `json:"count"`
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.library.List(ctx, domain.DocumentFilter{
		ReadingStatus:   domain.ReadingStatus(strings.TrimSpace(req.GetString("status", ""))),
		ContentType:     strings.TrimSpace(req.GetString("content_type", "")),
		PrimaryCategory: strings.TrimSpace(req.GetString("category", "")),
	})
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolListDocuments, "error", err)
		return toolError(err), nil
	}

	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, newDocumentView(doc))
	}
	return mcp.NewToolResultJSON(listResult{Documents: views, Count: len(views)})
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.ErrorKind(err), err))
}
