package library

import (
	"context"

	models "contentflow/internal/domain/models/library"
)

// ThemeService handles theme CRUD
type ThemeService interface {
	ListThemes(ctx context.Context) ([]models.Theme, error)
	GetTheme(ctx context.Context, id string) (*models.Theme, error)
	CreateTheme(ctx context.Context, req *CreateThemeRequest) (*models.Theme, error)
	UpdateTheme(ctx context.Context, id string, req *UpdateThemeRequest) (*models.Theme, error)
	DeleteTheme(ctx context.Context, id string) error

	// ListThemeContent pages through items assigned to the theme
	ListThemeContent(ctx context.Context, id string, page, pageSize int) (*models.Page[models.ContentListItem], error)
}

// CreateThemeRequest is the POST /themes body
type CreateThemeRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// UpdateThemeRequest is the PUT /themes/{id} body; nil fields are left unchanged
type UpdateThemeRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}
