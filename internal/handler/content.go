package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/httputil"
	"contentflow/internal/service/extractor"
)

// multipartOverhead allows for form boundaries and headers around the file
const multipartOverhead = 1 << 20

// Submission statuses
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusDuplicate = "duplicate"
	StatusPending   = "pending"
)

// SubmitResponse is returned by both submission endpoints
type SubmitResponse struct {
	Message   string          `json:"message"`
	ContentID *string         `json:"content_id,omitempty"`
	JobID     *string         `json:"job_id,omitempty"`
	Status    string          `json:"status"`
	Retryable bool            `json:"retryable"`
	Content   *models.Content `json:"content,omitempty"`
}

// SubmitURLRequest is the POST /content/url body
type SubmitURLRequest struct {
	URL string `json:"url"`
}

// ContentHandler serves /api/v1/content
type ContentHandler struct {
	ingestor    librarySvc.Ingestor
	contents    librarySvc.ContentService
	ingestion   librarySvc.IngestionService
	maxFileSize int64
	logger      *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(
	ingestor librarySvc.Ingestor,
	contents librarySvc.ContentService,
	ingestion librarySvc.IngestionService,
	maxFileSize int64,
	logger *slog.Logger,
) *ContentHandler {
	return &ContentHandler{
		ingestor:    ingestor,
		contents:    contents,
		ingestion:   ingestion,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// SubmitURL ingests a URL
// POST /api/v1/content/url
func (h *ContentHandler) SubmitURL(w http.ResponseWriter, r *http.Request) {
	var req SubmitURLRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.ingestor.Submit(r.Context(), &librarySvc.Submission{URL: req.URL})
	if err != nil {
		handleError(w, err)
		return
	}
	h.respondSubmit(w, r, result)
}

// Upload ingests a PDF sent as multipart field "file"
// POST /api/v1/content/upload
func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusBadRequest, h.tooLargeDetail())
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		httputil.RespondError(w, http.StatusBadRequest, h.tooLargeDetail())
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if int64(len(data)) > h.maxFileSize {
		httputil.RespondError(w, http.StatusBadRequest, h.tooLargeDetail())
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !extractor.IsPDFUpload(header.Filename, contentType) || !bytes.HasPrefix(data, extractor.PDFMagic) {
		httputil.RespondError(w, http.StatusBadRequest, "only PDF files are supported")
		return
	}

	result, err := h.ingestor.Submit(r.Context(), &librarySvc.Submission{Upload: &librarySvc.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}})
	if err != nil {
		handleError(w, err)
		return
	}
	h.respondSubmit(w, r, result)
}

func (h *ContentHandler) tooLargeDetail() string {
	return fmt.Sprintf("file too large; the limit is %d bytes", h.maxFileSize)
}

func (h *ContentHandler) respondSubmit(w http.ResponseWriter, r *http.Request, result *librarySvc.SubmitResult) {
	if result.Job != nil {
		h.logger.Info("submission queued", "job_id", result.Job.ID, "subject", httputil.GetSubject(r))
		httputil.RespondJSON(w, http.StatusAccepted, SubmitResponse{
			Message: "content queued for processing",
			JobID:   &result.Job.ID,
			Status:  StatusPending,
		})
		return
	}

	res := result.Result
	resp := SubmitResponse{ContentID: &res.Content.ID, Content: res.Content}
	status := http.StatusCreated
	switch {
	case res.Duplicate:
		resp.Message = "content already exists"
		resp.Status = StatusDuplicate
		status = http.StatusOK
	case res.SummaryFailed:
		resp.Message = "content stored but summary generation failed"
		resp.Status = StatusPartial
		resp.Retryable = true
	default:
		resp.Message = "content ingested"
		resp.Status = StatusCompleted
	}
	h.logger.Info("submission processed",
		"content_id", res.Content.ID,
		"status", resp.Status,
		"subject", httputil.GetSubject(r),
	)
	httputil.RespondJSON(w, status, resp)
}

// ListContent pages through items
// GET /api/v1/content
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		handleError(w, err)
		return
	}
	q := r.URL.Query()

	result, err := h.contents.ListContent(r.Context(), &librarySvc.ListContentRequest{
		Page:       page,
		PageSize:   pageSize,
		SourceType: q.Get("source_type"),
		ThemeID:    q.Get("theme_id"),
	})
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetContent returns one item with summary and themes
// GET /api/v1/content/{id}
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	item, err := h.contents.GetContent(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}

// DeleteContent removes an item
// DELETE /api/v1/content/{id}
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.contents.DeleteContent(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondNoContent(w)
}

// Resummarize re-runs summarization for a stored item
// POST /api/v1/content/{id}/resummarize
func (h *ContentHandler) Resummarize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid content id %q", id))
		return
	}

	item, err := h.ingestion.Resummarize(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, item)
}
