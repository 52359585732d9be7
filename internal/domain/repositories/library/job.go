package library

import (
	"context"
	"time"

	models "contentflow/internal/domain/models/library"
)

// JobRepository stores asynchronous ingestion jobs.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	// Update overwrites status, content id and error, bumping UpdatedAt.
	Update(ctx context.Context, job *models.Job) error
}

// JobQueue hands job ids from producers to workers.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
	// Dequeue blocks up to timeout; it returns "" and no error when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
	Ping(ctx context.Context) error
}
