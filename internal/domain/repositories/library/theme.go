package library

import (
	"context"

	models "contentflow/internal/domain/models/library"
)

// ThemeUpdate carries optional fields for a partial theme update.
type ThemeUpdate struct {
	Name        *string
	Description *string
	Color       *string
}

// ThemeRepository persists themes and content/theme assignments.
type ThemeRepository interface {
	// List returns all themes ordered by content_count desc, then name.
	List(ctx context.Context) ([]models.Theme, error)
	GetByID(ctx context.Context, id string) (*models.Theme, error)
	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, name string) (*models.Theme, error)
	// Create fails with a ConflictError when the name is taken (case-insensitive).
	Create(ctx context.Context, theme *models.Theme) error
	Update(ctx context.Context, id string, update *ThemeUpdate) (*models.Theme, error)
	// Delete removes the theme; its assignments cascade.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Assign upserts assignments, overwriting confidence on existing pairs.
	Assign(ctx context.Context, assignments []models.ThemeAssignment) error
}
