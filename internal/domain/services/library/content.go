package library

import (
	"context"

	models "contentflow/internal/domain/models/library"
)

// ContentService handles reading and deleting content items
type ContentService interface {
	GetContent(ctx context.Context, id string) (*models.Content, error)

	// DeleteContent removes the item, its summary, its theme assignments and
	// any uploaded file.
	DeleteContent(ctx context.Context, id string) error

	// ListContent pages through items newest first
	ListContent(ctx context.Context, req *ListContentRequest) (*models.Page[models.ContentListItem], error)

	// SearchContent applies free text and filters; with a query, results are
	// ordered by relevance
	SearchContent(ctx context.Context, req *SearchContentRequest) (*models.SearchPage, error)
}

// ListContentRequest mirrors the GET /content query string
type ListContentRequest struct {
	Page       int
	PageSize   int
	SourceType string
	ThemeID    string
}

// SearchContentRequest mirrors the GET /search query string. List values are
// comma-separated; dates are RFC 3339 or YYYY-MM-DD.
type SearchContentRequest struct {
	Query       string
	ThemeIDs    string
	SourceTypes string
	DateFrom    string
	DateTo      string
	Page        int
	PageSize    int
}
