package handler

import (
	"log/slog"
	"net/http"

	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/httputil"
)

// ThemeHandler serves /api/v1/themes
type ThemeHandler struct {
	themes    librarySvc.ThemeService
	ingestion librarySvc.IngestionService
	logger    *slog.Logger
}

// NewThemeHandler creates a new theme handler
func NewThemeHandler(themes librarySvc.ThemeService, ingestion librarySvc.IngestionService, logger *slog.Logger) *ThemeHandler {
	return &ThemeHandler{themes: themes, ingestion: ingestion, logger: logger}
}

// updateThemeRequest distinguishes an absent description from null
type updateThemeRequest struct {
	Name        *string                 `json:"name"`
	Description httputil.OptionalString `json:"description"`
	Color       *string                 `json:"color"`
}

// ListThemes returns every theme with its content count
// GET /api/v1/themes
func (h *ThemeHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.themes.ListThemes(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, themes)
}

// GetTheme returns a theme
// GET /api/v1/themes/{id}
func (h *ThemeHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.themes.GetTheme(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, theme)
}

// ListThemeContent pages through the theme's items
// GET /api/v1/themes/{id}/content
func (h *ThemeHandler) ListThemeContent(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.themes.ListThemeContent(r.Context(), r.PathValue("id"), page, pageSize)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// CreateTheme creates a theme
// POST /api/v1/themes
func (h *ThemeHandler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req librarySvc.CreateThemeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	theme, err := h.themes.CreateTheme(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("theme created", "theme_id", theme.ID, "name", theme.Name)
	httputil.RespondJSON(w, http.StatusCreated, theme)
}

// ProposeThemes asks the themer for an initial theme set
// POST /api/v1/themes/propose
func (h *ThemeHandler) ProposeThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.ingestion.ProposeThemes(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, themes)
}

// UpdateTheme changes the fields present in the body. A null description
// clears it.
// PUT /api/v1/themes/{id}
func (h *ThemeHandler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	var body updateThemeRequest
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := &librarySvc.UpdateThemeRequest{Name: body.Name, Color: body.Color}
	if body.Description.Present {
		desc := ""
		if body.Description.Value != nil {
			desc = *body.Description.Value
		}
		req.Description = &desc
	}

	theme, err := h.themes.UpdateTheme(r.Context(), r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, theme)
}

// DeleteTheme removes a theme and its assignments
// DELETE /api/v1/themes/{id}
func (h *ThemeHandler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	if err := h.themes.DeleteTheme(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}
