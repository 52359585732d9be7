package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/retry"
)

// DefaultPollTimeout is how long one dequeue blocks before re-checking ctx
const DefaultPollTimeout = 5 * time.Second

// defaultLookupRetry covers a job id popped while Redis is briefly unreachable
var defaultLookupRetry = retry.Config{MaxRetries: 3, BaseDelay: 500 * time.Millisecond}

// Worker drains the job queue with a fixed number of goroutines
type Worker struct {
	jobs        libraryRepo.JobRepository
	queue       libraryRepo.JobQueue
	pipeline    librarySvc.IngestionService
	contents    libraryRepo.ContentRepository
	files       *FileStore
	concurrency int
	pollTimeout time.Duration
	lookupRetry retry.Config
	logger      *slog.Logger
}

// NewWorker creates a worker; concurrency below one means one
func NewWorker(
	jobs libraryRepo.JobRepository,
	queue libraryRepo.JobQueue,
	pipeline librarySvc.IngestionService,
	contents libraryRepo.ContentRepository,
	files *FileStore,
	concurrency int,
	logger *slog.Logger,
) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		jobs:        jobs,
		queue:       queue,
		pipeline:    pipeline,
		contents:    contents,
		files:       files,
		concurrency: concurrency,
		pollTimeout: DefaultPollTimeout,
		lookupRetry: defaultLookupRetry,
		logger:      logger.With("component", "ingest_worker"),
	}
}

// Run blocks until ctx is cancelled and all in-flight jobs have finished
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("starting ingest workers", "concurrency", w.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.loop(ctx, workerID)
		}(i + 1)
	}
	wg.Wait()

	w.logger.Info("ingest workers stopped")
}

func (w *Worker) loop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			return
		}
		jobID, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("dequeue failed", "worker_id", workerID, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if jobID == "" {
			continue
		}
		w.Process(ctx, jobID)
	}
}

// Process runs one job to a terminal state. A panic fails the job rather
// than the worker.
func (w *Worker) Process(ctx context.Context, jobID string) {
	job, err := w.lookup(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.logger.Warn("dropping unknown job", "job_id", jobID)
			return
		}
		w.requeue(ctx, jobID, err)
		return
	}
	if job.Status.Terminal() {
		return
	}

	job.Status = models.JobProcessing
	if err := w.jobs.Update(ctx, job); err != nil {
		w.logger.Warn("could not mark job processing", "job_id", jobID, "error", err)
	}

	result, err := w.run(ctx, job)
	switch {
	case err != nil:
		msg := clientMessage(err)
		job.Status = models.JobFailed
		job.Error = &msg
		w.logger.Warn("job failed", "job_id", jobID, "error", err)
		if job.Kind == models.JobKindUpload {
			w.discardStaged(ctx, job)
		}
	case result.SummaryFailed:
		job.Status = models.JobPartial
		job.ContentID = &result.Content.ID
		if result.Content.SummaryError != nil {
			job.Error = result.Content.SummaryError
		}
	default:
		job.Status = models.JobCompleted
		job.ContentID = &result.Content.ID
	}

	// The request context may already be done; the final status must still land
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.jobs.Update(saveCtx, job); err != nil {
		w.logger.Error("could not store job result", "job_id", jobID, "error", err)
		return
	}
	w.logger.Info("job finished", "job_id", jobID, "status", job.Status)
}

// lookup loads a job, retrying anything other than a missing key
func (w *Worker) lookup(ctx context.Context, jobID string) (*models.Job, error) {
	var job *models.Job
	err := retry.WithBackoff(ctx, w.lookupRetry, func(ctx context.Context) error {
		j, err := w.jobs.Get(ctx, jobID)
		switch {
		case err == nil:
			job = j
			return nil
		case errors.Is(err, domain.ErrNotFound):
			return retry.Permanent(err)
		default:
			return retry.Transient(err)
		}
	})
	return job, err
}

// requeue puts a popped id back so the job is not stranded in pending
func (w *Worker) requeue(ctx context.Context, jobID string, cause error) {
	w.logger.Warn("job lookup failed, requeueing", "job_id", jobID, "error", cause)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.queue.Enqueue(saveCtx, jobID); err != nil {
		w.logger.Error("could not requeue job", "job_id", jobID, "error", err)
	}
}

// discardStaged removes a failed upload's staged file unless a stored item
// with the same hash already owns it
func (w *Worker) discardStaged(ctx context.Context, job *models.Job) {
	if w.files == nil || job.StoredPath == "" {
		return
	}
	hash := strings.TrimSuffix(filepath.Base(job.StoredPath), filepath.Ext(job.StoredPath))

	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, err := w.contents.GetByHash(checkCtx, hash)
	switch {
	case err == nil:
		return
	case !errors.Is(err, domain.ErrNotFound):
		w.logger.Warn("keeping staged upload, owner check failed", "job_id", job.ID, "error", err)
		return
	}

	if err := w.files.Remove(job.StoredPath); err != nil {
		w.logger.Warn("could not remove staged upload", "job_id", job.ID, "path", job.StoredPath, "error", err)
		return
	}
	w.logger.Debug("removed staged upload", "job_id", job.ID)
}

func (w *Worker) run(ctx context.Context, job *models.Job) (result *librarySvc.IngestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panicked", "job_id", job.ID, "panic", r)
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	sub := &librarySvc.Submission{}
	switch job.Kind {
	case models.JobKindURL:
		sub.URL = job.Source
	case models.JobKindUpload:
		data, err := w.files.Read(job.StoredPath)
		if err != nil {
			return nil, fmt.Errorf("read staged upload: %w", err)
		}
		sub.Upload = &librarySvc.Upload{
			Filename:    job.Source,
			ContentType: job.ContentType,
			Data:        data,
		}
	default:
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}

	return w.pipeline.Ingest(ctx, sub)
}

// clientMessage keeps domain messages and hides everything else
func clientMessage(err error) string {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return "internal error"
}
