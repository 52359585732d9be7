package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"contentflow/internal/domain"
	"contentflow/internal/httputil"
)

// handleError converts domain errors to {"detail"} responses. Anything not
// in the taxonomy is logged and answered with a generic 500.
func handleError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pagination reads page and page_size; the service clamps them
func pagination(r *http.Request) (page, pageSize int, err error) {
	if page, err = httputil.QueryInt(r, "page", 1); err != nil {
		return 0, 0, &domain.ValidationError{Message: err.Error()}
	}
	if pageSize, err = httputil.QueryInt(r, "page_size", 0); err != nil {
		return 0, 0, &domain.ValidationError{Message: err.Error()}
	}
	return page, pageSize, nil
}
