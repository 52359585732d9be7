package handler

import (
	"log/slog"
	"net/http"

	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/httputil"
)

// JobResponse is the GET /jobs/{id} body. Result is the ingested item once
// the job has produced one.
type JobResponse struct {
	ID        string           `json:"id"`
	Status    models.JobStatus `json:"status"`
	Kind      models.JobKind   `json:"kind"`
	ContentID *string          `json:"content_id,omitempty"`
	Error     *string          `json:"error,omitempty"`
	Result    *models.Content  `json:"result,omitempty"`
}

// JobHandler serves /api/v1/jobs
type JobHandler struct {
	jobs     librarySvc.JobService
	contents librarySvc.ContentService
	logger   *slog.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs librarySvc.JobService, contents librarySvc.ContentService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, contents: contents, logger: logger}
}

// GetJob reports a queued job's progress
// GET /api/v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	resp := JobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Kind:      job.Kind,
		ContentID: job.ContentID,
		Error:     job.Error,
	}
	if job.ContentID != nil {
		item, err := h.contents.GetContent(r.Context(), *job.ContentID)
		if err != nil {
			// The item may have been deleted since the job finished
			h.logger.Warn("job result unavailable", "job_id", job.ID, "content_id", *job.ContentID, "error", err)
		} else {
			resp.Result = item
		}
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
