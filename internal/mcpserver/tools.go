package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
)

type tools struct {
	svc    Services
	logger *slog.Logger
}

// --- Input types ---

type SearchContentInput struct {
	Query       string `json:"query,omitempty" jsonschema:"Free-text query; empty lists newest items first"`
	ThemeIDs    string `json:"theme_ids,omitempty" jsonschema:"Comma-separated theme UUIDs"`
	SourceTypes string `json:"source_types,omitempty" jsonschema:"Comma-separated source types: twitter, arxiv, acm, pdf, web"`
	DateFrom    string `json:"date_from,omitempty" jsonschema:"Earliest publish date, YYYY-MM-DD or RFC 3339"`
	DateTo      string `json:"date_to,omitempty" jsonschema:"Latest publish date, YYYY-MM-DD or RFC 3339"`
	Page        int    `json:"page,omitempty" jsonschema:"Page number starting at 1"`
	PageSize    int    `json:"page_size,omitempty" jsonschema:"Items per page"`
}

type GetContentInput struct {
	ID string `json:"id" jsonschema:"Content item UUID"`
}

type SubmitURLInput struct {
	URL string `json:"url" jsonschema:"The http or https URL to ingest"`
}

// --- Handlers ---

func (t *tools) SearchContent(ctx context.Context, _ *mcp.CallToolRequest, input SearchContentInput) (*mcp.CallToolResult, any, error) {
	page, err := t.svc.Contents.SearchContent(ctx, &librarySvc.SearchContentRequest{
		Query:       input.Query,
		ThemeIDs:    input.ThemeIDs,
		SourceTypes: input.SourceTypes,
		DateFrom:    input.DateFrom,
		DateTo:      input.DateTo,
		Page:        input.Page,
		PageSize:    input.PageSize,
	})
	if err != nil {
		return t.toolFailure("search", err), nil, nil
	}
	return toolJSON(page)
}

func (t *tools) GetContent(ctx context.Context, _ *mcp.CallToolRequest, input GetContentInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		return toolError("Content id is required"), nil, nil
	}
	item, err := t.svc.Contents.GetContent(ctx, input.ID)
	if err != nil {
		return t.toolFailure("get content", err), nil, nil
	}
	return toolJSON(item)
}

func (t *tools) ListThemes(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	themes, err := t.svc.Themes.ListThemes(ctx)
	if err != nil {
		return t.toolFailure("list themes", err), nil, nil
	}
	if themes == nil {
		themes = []models.Theme{}
	}
	return toolJSON(themes)
}

func (t *tools) SubmitURL(ctx context.Context, _ *mcp.CallToolRequest, input SubmitURLInput) (*mcp.CallToolResult, any, error) {
	if input.URL == "" {
		return toolError("URL is required"), nil, nil
	}

	result, err := t.svc.Ingestor.Submit(ctx, &librarySvc.Submission{URL: input.URL})
	if err != nil {
		return t.toolFailure("submit url", err), nil, nil
	}

	if result.Job != nil {
		return toolJSON(map[string]any{"status": "pending", "job_id": result.Job.ID})
	}
	status := "completed"
	switch {
	case result.Result.Duplicate:
		status = "duplicate"
	case result.Result.SummaryFailed:
		status = "partial"
	}
	return toolJSON(map[string]any{"status": status, "content": result.Result.Content})
}

// toolFailure reports domain errors verbatim and hides everything else
func (t *tools) toolFailure(op string, err error) *mcp.CallToolResult {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return toolError("%s", httpErr.Error())
	}
	t.logger.Error("mcp tool failed", "op", op, "error", err)
	return toolError("Failed to %s: internal error", op)
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
