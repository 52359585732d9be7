package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"contentflow/internal/domain"
	librarySvc "contentflow/internal/domain/services/library"
)

// Registry routes a source to the first extractor that accepts it.
// Order matters: specific extractors come before the web catch-all.
type Registry struct {
	extractors []librarySvc.Extractor
	logger     *slog.Logger
}

// NewRegistry creates a registry over extractors in priority order
func NewRegistry(logger *slog.Logger, extractors ...librarySvc.Extractor) *Registry {
	return &Registry{extractors: extractors, logger: logger}
}

// Config holds what the standard extractor set needs
type Config struct {
	Fetcher            *Fetcher
	TwitterBearerToken string
	ArxivAPIURL        string
	TwitterAPIURL      string
}

// NewDefaultRegistry registers twitter, arxiv, acm, pdf and web, in that order
func NewDefaultRegistry(cfg Config, logger *slog.Logger) *Registry {
	return NewRegistry(logger,
		NewTwitterExtractor(cfg.Fetcher, cfg.TwitterBearerToken, cfg.TwitterAPIURL),
		NewArxivExtractor(cfg.Fetcher, cfg.ArxivAPIURL),
		NewACMExtractor(cfg.Fetcher),
		NewPDFExtractor(),
		NewWebExtractor(cfg.Fetcher),
	)
}

// Find returns the extractor for src, or nil
func (r *Registry) Find(src *librarySvc.Source) librarySvc.Extractor {
	for _, e := range r.extractors {
		if e.CanHandle(src) {
			return e
		}
	}
	return nil
}

// Extract runs the matching extractor. Failures surface as
// ExtractionFailedError with a fixed message; the cause is logged.
func (r *Registry) Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	e := r.Find(src)
	if e == nil {
		if src.IsFile() {
			return nil, &domain.UnsupportedSourceError{Message: "only PDF files are supported"}
		}
		return nil, &domain.UnsupportedSourceError{Message: "no extractor supports this source"}
	}

	result, err := e.Extract(ctx, src)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Domain errors raised by the extractor already carry a client message
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			return nil, err
		}
		r.logger.Warn("extraction failed",
			"extractor", e.Name(),
			"url", src.URL,
			"file", src.Filename,
			"error", err,
		)
		return nil, &domain.ExtractionFailedError{
			Message: fmt.Sprintf("could not extract content from %s source", e.SourceType()),
			Cause:   err,
		}
	}

	if strings.TrimSpace(result.Text) == "" {
		return nil, &domain.ExtractionFailedError{
			Message: fmt.Sprintf("no text could be extracted from %s source", e.SourceType()),
		}
	}

	if result.SourceType == "" {
		result.SourceType = e.SourceType()
	}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["extractor"] = e.Name()

	r.logger.Debug("extracted content",
		"extractor", e.Name(),
		"source_type", result.SourceType,
		"chars", len(result.Text),
	)

	return result, nil
}
