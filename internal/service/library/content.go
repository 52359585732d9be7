package library

import (
	"context"
	"log/slog"
	"strings"

	"contentflow/internal/config"
	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
)

// FileRemover deletes stored uploads
type FileRemover interface {
	Remove(path string) error
}

// SearchOptions carries the search settings from config
type SearchOptions struct {
	MaxPageSize int
	Language    string
}

type contentService struct {
	contents libraryRepo.ContentRepository
	embedder librarySvc.Embedder
	files    FileRemover
	opts     SearchOptions
	logger   *slog.Logger
}

// NewContentService creates the content read/delete service
func NewContentService(
	contents libraryRepo.ContentRepository,
	embedder librarySvc.Embedder,
	files FileRemover,
	opts SearchOptions,
	logger *slog.Logger,
) librarySvc.ContentService {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = config.DefaultMaxPageSize
	}
	return &contentService{
		contents: contents,
		embedder: embedder,
		files:    files,
		opts:     opts,
		logger:   logger,
	}
}

func (s *contentService) GetContent(ctx context.Context, id string) (*models.Content, error) {
	if err := validateID("content", id); err != nil {
		return nil, err
	}
	return s.contents.GetByID(ctx, id)
}

// DeleteContent also removes the uploaded file, logging rather than failing
// when the file is already gone
func (s *contentService) DeleteContent(ctx context.Context, id string) error {
	if err := validateID("content", id); err != nil {
		return err
	}
	path, err := s.contents.Delete(ctx, id)
	if err != nil {
		return err
	}
	if path != nil && s.files != nil {
		if err := s.files.Remove(*path); err != nil {
			s.logger.Warn("could not remove uploaded file", "content_id", id, "path", *path, "error", err)
		}
	}
	s.logger.Info("content deleted", "content_id", id)
	return nil
}

func (s *contentService) ListContent(ctx context.Context, req *librarySvc.ListContentRequest) (*models.Page[models.ContentListItem], error) {
	filter := &models.ContentFilter{Page: req.Page, PageSize: req.PageSize, Language: s.opts.Language}

	if st := strings.TrimSpace(req.SourceType); st != "" {
		types, err := models.ParseSourceTypes(st)
		if err != nil {
			return nil, &domain.ValidationError{Message: err.Error()}
		}
		filter.SourceTypes = types
	}
	if tid := strings.TrimSpace(req.ThemeID); tid != "" {
		if err := validateID("theme", tid); err != nil {
			return nil, err
		}
		filter.ThemeIDs = []string{tid}
	}

	return s.list(ctx, filter)
}

func (s *contentService) SearchContent(ctx context.Context, req *librarySvc.SearchContentRequest) (*models.SearchPage, error) {
	filter := &models.ContentFilter{
		Query:    strings.TrimSpace(req.Query),
		Page:     req.Page,
		PageSize: req.PageSize,
		Language: s.opts.Language,
	}

	var err error
	if filter.ThemeIDs, err = splitIDs("theme", req.ThemeIDs); err != nil {
		return nil, err
	}
	if filter.SourceTypes, err = models.ParseSourceTypes(req.SourceTypes); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if filter.DateFrom, err = parseDateBound("date_from", req.DateFrom, false); err != nil {
		return nil, err
	}
	if filter.DateTo, err = parseDateBound("date_to", req.DateTo, true); err != nil {
		return nil, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, &domain.ValidationError{Message: "date_from must not be after date_to"}
	}

	if filter.Query != "" && s.embedder != nil {
		filter.QueryEmbedding = s.embedder.Embed(filter.Query)
	}

	page, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &models.SearchPage{Page: page}
	if filter.Query != "" {
		result.Query = &filter.Query
	}
	return result, nil
}

func (s *contentService) list(ctx context.Context, filter *models.ContentFilter) (*models.Page[models.ContentListItem], error) {
	filter.ApplyDefaults(config.DefaultPageSize, s.opts.MaxPageSize)
	items, total, err := s.contents.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return models.NewPage(items, total, filter.Page, filter.PageSize), nil
}
