package library

import "time"

// ContentFilter narrows list and search queries. The zero value lists
// everything, newest first.
type ContentFilter struct {
	// Query is free text matched against title, author and summary overview.
	// When set, results are ordered by relevance.
	Query string

	// QueryEmbedding is the embedded Query used for the vector part of the
	// relevance score. Filled by the service layer.
	QueryEmbedding []float32

	SourceTypes []SourceType
	ThemeIDs    []string

	// DateFrom and DateTo are inclusive bounds on publish_date.
	DateFrom *time.Time
	DateTo   *time.Time

	// Page is 1-indexed.
	Page     int
	PageSize int

	// Language is the Postgres text search configuration (default "english").
	Language string
}

// ApplyDefaults clamps pagination and fills the text search language.
func (f *ContentFilter) ApplyDefaults(defaultPageSize, maxPageSize int) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if f.Language == "" {
		f.Language = "english"
	}
}

// Offset is the number of rows to skip for the current page.
func (f *ContentFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPage builds a page and computes TotalPages as ceil(total/pageSize).
// A nil items slice is replaced by an empty one.
func NewPage[T any](items []T, total, page, pageSize int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}
}

// TotalPages returns ceil(total/pageSize), or 0 for an empty result.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// SearchPage is a page of search results echoing the query.
type SearchPage struct {
	Query *string `json:"query"`
	*Page[ContentListItem]
}
