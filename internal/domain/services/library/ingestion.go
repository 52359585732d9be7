package library

import (
	"context"

	models "contentflow/internal/domain/models/library"
)

// Submission is one ingestion request: a URL or an uploaded file.
type Submission struct {
	URL    string  `json:"url"`
	Upload *Upload `json:"-"`
}

// Upload is an uploaded file held in memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IngestResult is the outcome of running the pipeline once.
type IngestResult struct {
	Content *models.Content

	// Duplicate is true when the source was already ingested and Content is
	// the existing item.
	Duplicate bool

	// SummaryFailed marks a partial success: the item is stored without a
	// summary and can be re-summarized later.
	SummaryFailed bool
}

// SubmitResult is what an Ingestor hands back: either a finished result
// (inline mode) or a job handle (queued mode).
type SubmitResult struct {
	Result *IngestResult
	Job    *models.Job
}

// Ingestor accepts submissions. InlineIngestor runs the pipeline within the
// call; QueuedIngestor enqueues it and returns a job.
type Ingestor interface {
	Submit(ctx context.Context, sub *Submission) (*SubmitResult, error)
}

// IngestionService runs the extract, summarize, theme, persist pipeline.
type IngestionService interface {
	// Ingest runs the full pipeline for one submission.
	Ingest(ctx context.Context, sub *Submission) (*IngestResult, error)

	// Resummarize re-runs summarization and theming on a stored item.
	Resummarize(ctx context.Context, contentID string) (*models.Content, error)

	// ProposeThemes creates an initial theme set from recent summaries,
	// regardless of corpus size.
	ProposeThemes(ctx context.Context) ([]models.Theme, error)
}

// JobService exposes queued job status.
type JobService interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
}
