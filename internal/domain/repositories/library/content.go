package library

import (
	"context"

	models "contentflow/internal/domain/models/library"
)

// ContentRepository persists content items, their summaries and embeddings.
type ContentRepository interface {
	// Create inserts c unless an item with the same source_url or content_hash
	// exists. It returns created=false (and leaves c untouched) on a duplicate,
	// so concurrent submissions of the same source produce one row.
	Create(ctx context.Context, c *models.Content) (created bool, err error)

	// GetByID loads an item with its summary, themes and raw content.
	GetByID(ctx context.Context, id string) (*models.Content, error)
	GetBySourceURL(ctx context.Context, url string) (*models.Content, error)
	GetByHash(ctx context.Context, hash string) (*models.Content, error)

	// Delete removes the item (summary and assignments cascade) and returns
	// the stored file path, if any, so the caller can clean up the upload.
	Delete(ctx context.Context, id string) (filePath *string, err error)

	// List returns one page of items matching filter plus the total match count.
	List(ctx context.Context, filter *models.ContentFilter) ([]models.ContentListItem, int, error)

	Count(ctx context.Context) (int, error)

	// UpsertSummary replaces the item's summary wholesale, stores the
	// embedding and marks summary_status completed.
	UpsertSummary(ctx context.Context, contentID string, summary *models.Summary, embedding []float32) error

	// MarkSummaryFailed records a retryable summarization failure.
	MarkSummaryFailed(ctx context.Context, contentID, reason string) error

	// ListFailedSummaries returns ids of items awaiting re-summarization, oldest first.
	ListFailedSummaries(ctx context.Context, limit int) ([]string, error)

	// RecentSummaries returns the newest summarized items.
	RecentSummaries(ctx context.Context, limit int) ([]models.CorpusEntry, error)
}

// MaxSummaryAttempts caps how often a failed summary is retried automatically.
const MaxSummaryAttempts = 5
