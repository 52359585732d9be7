package handler

import (
	"log/slog"
	"net/http"

	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/httputil"
)

// SearchHandler serves /api/v1/search
type SearchHandler struct {
	contents librarySvc.ContentService
	logger   *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(contents librarySvc.ContentService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{contents: contents, logger: logger}
}

// Search runs full-text and filter search
// GET /api/v1/search?q=&theme_ids=&source_types=&date_from=&date_to=&page=&page_size=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		handleError(w, err)
		return
	}
	q := r.URL.Query()

	result, err := h.contents.SearchContent(r.Context(), &librarySvc.SearchContentRequest{
		Query:       q.Get("q"),
		ThemeIDs:    q.Get("theme_ids"),
		SourceTypes: q.Get("source_types"),
		DateFrom:    q.Get("date_from"),
		DateTo:      q.Get("date_to"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("search",
		"query", q.Get("q"),
		"total", result.Total,
	)
	httputil.RespondJSON(w, http.StatusOK, result)
}
