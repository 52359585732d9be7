package library

import "time"

// JobKind says what a queued job ingests.
type JobKind string

const (
	JobKindURL    JobKind = "url"
	JobKindUpload JobKind = "upload"
)

// JobStatus moves pending -> processing -> completed | partial | failed.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobPartial    JobStatus = "partial"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job will not change again.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobPartial || s == JobFailed
}

// Job is an asynchronous ingestion request.
type Job struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	Status    JobStatus `json:"status"`
	ContentID *string   `json:"content_id,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Source is the submitted URL, or the original filename for uploads.
	Source string `json:"source"`
	// StoredPath is where a queued upload waits on disk.
	StoredPath  string `json:"-"`
	ContentType string `json:"-"`
}
