package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/extractor"
)

// InlineIngestor runs the pipeline inside the request
type InlineIngestor struct {
	pipeline librarySvc.IngestionService
}

// NewInlineIngestor creates an ingestor that blocks until the item is stored
func NewInlineIngestor(pipeline librarySvc.IngestionService) *InlineIngestor {
	return &InlineIngestor{pipeline: pipeline}
}

func (i *InlineIngestor) Submit(ctx context.Context, sub *librarySvc.Submission) (*librarySvc.SubmitResult, error) {
	result, err := i.pipeline.Ingest(ctx, sub)
	if err != nil {
		return nil, err
	}
	return &librarySvc.SubmitResult{Result: result}, nil
}

// QueuedIngestor records a pending job and hands its id to the worker queue
type QueuedIngestor struct {
	jobs        libraryRepo.JobRepository
	queue       libraryRepo.JobQueue
	files       *FileStore
	maxFileSize int64
	logger      *slog.Logger
}

// NewQueuedIngestor creates an ingestor that returns a job handle immediately
func NewQueuedIngestor(jobs libraryRepo.JobRepository, queue libraryRepo.JobQueue, files *FileStore, maxFileSize int64, logger *slog.Logger) *QueuedIngestor {
	return &QueuedIngestor{
		jobs:        jobs,
		queue:       queue,
		files:       files,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Submit validates up front so bad input still gets a 400, then enqueues
func (q *QueuedIngestor) Submit(ctx context.Context, sub *librarySvc.Submission) (*librarySvc.SubmitResult, error) {
	if err := ValidateSubmission(sub, q.maxFileSize); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &models.Job{
		ID:        uuid.NewString(),
		Status:    models.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if sub.Upload != nil {
		path, err := q.files.Save(FileHash(sub.Upload.Data), sub.Upload.Data)
		if err != nil {
			return nil, fmt.Errorf("stage upload: %w", err)
		}
		job.Kind = models.JobKindUpload
		job.Source = sub.Upload.Filename
		job.StoredPath = path
		job.ContentType = sub.Upload.ContentType
	} else {
		normalized, err := extractor.NormalizeURL(sub.URL)
		if err != nil {
			return nil, err
		}
		job.Kind = models.JobKindURL
		job.Source = normalized
	}

	if err := q.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := q.queue.Enqueue(ctx, job.ID); err != nil {
		reason := "could not enqueue job"
		job.Status = models.JobFailed
		job.Error = &reason
		if uerr := q.jobs.Update(ctx, job); uerr != nil {
			q.logger.Error("failed to mark job failed", "job_id", job.ID, "error", uerr)
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Info("job queued", "job_id", job.ID, "kind", job.Kind, "source", job.Source)
	return &librarySvc.SubmitResult{Job: job}, nil
}
