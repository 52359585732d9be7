package library

import (
	"context"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"contentflow/internal/config"
	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
)

type themeService struct {
	themes      libraryRepo.ThemeRepository
	contents    libraryRepo.ContentRepository
	maxPageSize int
	logger      *slog.Logger
}

// NewThemeService creates the theme CRUD service
func NewThemeService(themes libraryRepo.ThemeRepository, contents libraryRepo.ContentRepository, maxPageSize int, logger *slog.Logger) librarySvc.ThemeService {
	if maxPageSize <= 0 {
		maxPageSize = config.DefaultMaxPageSize
	}
	return &themeService{
		themes:      themes,
		contents:    contents,
		maxPageSize: maxPageSize,
		logger:      logger,
	}
}

func (s *themeService) ListThemes(ctx context.Context) ([]models.Theme, error) {
	themes, err := s.themes.List(ctx)
	if err != nil {
		return nil, err
	}
	if themes == nil {
		themes = []models.Theme{}
	}
	return themes, nil
}

func (s *themeService) GetTheme(ctx context.Context, id string) (*models.Theme, error) {
	if err := validateID("theme", id); err != nil {
		return nil, err
	}
	return s.themes.GetByID(ctx, id)
}

// CreateTheme trims the name and applies the default color. A taken name
// surfaces as the repository's ConflictError.
func (s *themeService) CreateTheme(ctx context.Context, req *librarySvc.CreateThemeRequest) (*models.Theme, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateCreateTheme(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	theme := &models.Theme{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}
	if theme.Color == nil {
		color := models.DefaultThemeColor
		theme.Color = &color
	}

	if err := s.themes.Create(ctx, theme); err != nil {
		return nil, err
	}
	s.logger.Info("theme created", "theme_id", theme.ID, "name", theme.Name)
	return theme, nil
}

func (s *themeService) UpdateTheme(ctx context.Context, id string, req *librarySvc.UpdateThemeRequest) (*models.Theme, error) {
	if err := validateID("theme", id); err != nil {
		return nil, err
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validateUpdateTheme(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if req.Name == nil && req.Description == nil && req.Color == nil {
		return s.themes.GetByID(ctx, id)
	}

	theme, err := s.themes.Update(ctx, id, &libraryRepo.ThemeUpdate{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("theme updated", "theme_id", id)
	return theme, nil
}

func (s *themeService) DeleteTheme(ctx context.Context, id string) error {
	if err := validateID("theme", id); err != nil {
		return err
	}
	if err := s.themes.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("theme deleted", "theme_id", id)
	return nil
}

func (s *themeService) ListThemeContent(ctx context.Context, id string, page, pageSize int) (*models.Page[models.ContentListItem], error) {
	if _, err := s.GetTheme(ctx, id); err != nil {
		return nil, err
	}

	filter := &models.ContentFilter{ThemeIDs: []string{id}, Page: page, PageSize: pageSize}
	filter.ApplyDefaults(config.DefaultPageSize, s.maxPageSize)

	items, total, err := s.contents.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return models.NewPage(items, total, filter.Page, filter.PageSize), nil
}

func validateCreateTheme(req *librarySvc.CreateThemeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, config.MaxThemeNameLength),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxThemeDescriptionLength)),
		validation.Field(&req.Color, validation.Match(colorPattern).Error("color must look like #RRGGBB")),
	)
}

func validateUpdateTheme(req *librarySvc.UpdateThemeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.NilOrNotEmpty.Error("name cannot be blank"),
			validation.RuneLength(1, config.MaxThemeNameLength),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxThemeDescriptionLength)),
		validation.Field(&req.Color, validation.Match(colorPattern).Error("color must look like #RRGGBB")),
	)
}
