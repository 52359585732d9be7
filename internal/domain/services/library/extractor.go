package library

import (
	"context"
	"time"

	models "contentflow/internal/domain/models/library"
)

// Source is what an extractor works on: a normalized URL or an uploaded file.
type Source struct {
	URL string

	// Upload fields (empty for URL submissions)
	Filename    string
	ContentType string
	Data        []byte
}

// IsFile reports whether the source is an uploaded file.
func (s *Source) IsFile() bool {
	return s.URL == "" && s.Data != nil
}

// ExtractionResult is the typed envelope every extractor returns. Core fields
// map to columns; Metadata is stored as-is in extraction_metadata.
type ExtractionResult struct {
	SourceType  models.SourceType
	Title       string
	Author      string
	PublishDate *time.Time
	Text        string
	Metadata    map[string]any
}

// Extractor pulls raw text and metadata out of one kind of source.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// CanHandle returns true if this extractor accepts the source
	CanHandle(src *Source) bool

	// Extract fetches and parses the source
	Extract(ctx context.Context, src *Source) (*ExtractionResult, error)

	// SourceType is the source_type recorded for items this extractor produces
	SourceType() models.SourceType

	// Name returns the extractor name for logging
	Name() string
}
