package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
)

// JobTTL is how long job records survive after their last update
const JobTTL = 7 * 24 * time.Hour

// Keys holds the key names for one deployment, prefixed like the SQL tables
type Keys struct {
	Prefix string
	Queue  string
}

// NewKeys creates key names with the given prefix
func NewKeys(prefix string) Keys {
	return Keys{
		Prefix: prefix,
		Queue:  prefix + "ingest:queue",
	}
}

func (k Keys) job(id string) string {
	return k.Prefix + "ingest:job:" + id
}

// JobRepository stores jobs as Redis hashes
type JobRepository struct {
	rdb    *goredis.Client
	keys   Keys
	logger *slog.Logger
}

// NewJobRepository creates a Redis-backed job repository
func NewJobRepository(rdb *goredis.Client, keys Keys, logger *slog.Logger) libraryRepo.JobRepository {
	return &JobRepository{rdb: rdb, keys: keys, logger: logger}
}

// Create assigns an id when missing and stores the job
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.JobPending
	}
	return r.write(ctx, job)
}

// Get loads a job; an unknown or expired id is NotFound
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	fields, err := r.rdb.HGetAll(ctx, r.keys.job(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("job %s not found", id)}
	}
	return decodeJob(fields)
}

// Update overwrites the mutable fields and refreshes the TTL
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	exists, err := r.rdb.Exists(ctx, r.keys.job(job.ID)).Result()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if exists == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("job %s not found", job.ID)}
	}
	job.UpdatedAt = time.Now().UTC()
	return r.write(ctx, job)
}

func (r *JobRepository) write(ctx context.Context, job *models.Job) error {
	key := r.keys.job(job.ID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeJob(job))
		if job.ContentID == nil {
			pipe.HDel(ctx, key, "content_id")
		}
		if job.Error == nil {
			pipe.HDel(ctx, key, "error")
		}
		pipe.Expire(ctx, key, JobTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write job: %w", err)
	}
	return nil
}

func encodeJob(job *models.Job) map[string]any {
	fields := map[string]any{
		"id":           job.ID,
		"kind":         string(job.Kind),
		"status":       string(job.Status),
		"source":       job.Source,
		"stored_path":  job.StoredPath,
		"content_type": job.ContentType,
		"created_at":   job.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":   job.UpdatedAt.Format(time.RFC3339Nano),
	}
	if job.ContentID != nil {
		fields["content_id"] = *job.ContentID
	}
	if job.Error != nil {
		fields["error"] = *job.Error
	}
	return fields
}

func decodeJob(fields map[string]string) (*models.Job, error) {
	job := &models.Job{
		ID:          fields["id"],
		Kind:        models.JobKind(fields["kind"]),
		Status:      models.JobStatus(fields["status"]),
		Source:      fields["source"],
		StoredPath:  fields["stored_path"],
		ContentType: fields["content_type"],
	}
	if v, ok := fields["content_id"]; ok && v != "" {
		job.ContentID = &v
	}
	if v, ok := fields["error"]; ok && v != "" {
		job.Error = &v
	}

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("decode job created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode job updated_at: %w", err)
	}
	return job, nil
}

// Queue is a FIFO of job ids on a Redis list
type Queue struct {
	rdb  *goredis.Client
	keys Keys
}

// NewQueue creates a Redis list queue
func NewQueue(rdb *goredis.Client, keys Keys) libraryRepo.JobQueue {
	return &Queue{rdb: rdb, keys: keys}
}

// Enqueue pushes a job id onto the head of the list
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.rdb.LPush(ctx, q.keys.Queue, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue pops from the tail, blocking up to timeout
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.keys.Queue).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("dequeue job: %w", err)
	}
	// BRPOP replies [key, value]
	if len(res) != 2 {
		return "", fmt.Errorf("dequeue job: unexpected reply %v", res)
	}
	return res[1], nil
}

// Ping checks the connection
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
