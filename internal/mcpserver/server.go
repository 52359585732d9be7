// Package mcpserver exposes the library as Model Context Protocol tools.
package mcpserver

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	librarySvc "contentflow/internal/domain/services/library"
)

// Version is reported to MCP clients
const Version = "0.1.0"

// Services are what the tools call into
type Services struct {
	Contents librarySvc.ContentService
	Themes   librarySvc.ThemeService
	Ingestor librarySvc.Ingestor
}

// New creates an MCP server with every tool registered
func New(svc Services, logger *slog.Logger) *mcp.Server {
	t := &tools{svc: svc, logger: logger}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "contentflow",
		Version: Version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_content",
		Description: "Full-text search over ingested articles, papers and posts, with optional theme, source type and date filters",
	}, t.SearchContent)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_content",
		Description: "Get one content item with its summary, key insights and themes",
	}, t.GetContent)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_themes",
		Description: "List every theme with its description and content count",
	}, t.ListThemes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "submit_url",
		Description: "Ingest a URL (web article, arXiv paper, ACM paper, tweet or PDF link): extract, summarize and theme it",
	}, t.SubmitURL)

	return srv
}
