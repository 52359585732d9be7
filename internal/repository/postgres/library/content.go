package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"contentflow/internal/config"
	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	"contentflow/internal/repository/postgres"
)

// PostgresContentRepository implements libraryRepo.ContentRepository
type PostgresContentRepository struct {
	pool         *pgxpool.Pool
	tables       *postgres.TableNames
	logger       *slog.Logger
	language     string
	vectorWeight float64
}

// NewContentRepository creates a new content repository
func NewContentRepository(config *postgres.RepositoryConfig) libraryRepo.ContentRepository {
	language := config.Language
	if language == "" {
		language = "english"
	}
	return &PostgresContentRepository{
		pool:         config.Pool,
		tables:       config.Tables,
		logger:       config.Logger,
		language:     language,
		vectorWeight: config.VectorWeight,
	}
}

const contentColumns = `c.id, c.source_type, c.source_url, c.file_path, c.title, c.author,
	c.publish_date, c.raw_content, c.content_hash, c.extraction_metadata,
	c.summary_status, c.summary_error, c.created_at, c.updated_at,
	s.overview, s.key_insights, s.implications, s.suggested_themes,
	s.model_version, s.token_count, s.generated_at`

// Create inserts a content item. Conflicts on source_url or content_hash
// leave the row untouched and report created=false.
func (r *PostgresContentRepository) Create(ctx context.Context, c *models.Content) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (source_type, source_url, file_path, title, author, publish_date,
			raw_content, content_hash, extraction_metadata, summary_status, summary_error, summary_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at
	`, r.tables.Contents)

	metadata := c.ExtractionMetadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	status := c.SummaryStatus
	if status == "" {
		status = models.SummaryCompleted
	}
	attempts := 0
	if status == models.SummaryFailed {
		attempts = 1
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		c.SourceType,
		c.SourceURL,
		c.FilePath,
		c.Title,
		c.Author,
		c.PublishDate,
		c.RawContent,
		c.ContentHash,
		metadata,
		status,
		c.SummaryError,
		attempts,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return false, nil
		}
		return false, fmt.Errorf("create content: %w", err)
	}

	c.ExtractionMetadata = metadata
	c.SummaryStatus = status
	return true, nil
}

// GetByID loads a content item with its summary and themes
func (r *PostgresContentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	return r.getOne(ctx, "c.id = $1", id, fmt.Sprintf("content %s", id))
}

// GetBySourceURL loads the item submitted from url
func (r *PostgresContentRepository) GetBySourceURL(ctx context.Context, url string) (*models.Content, error) {
	return r.getOne(ctx, "c.source_url = $1", url, fmt.Sprintf("content with url %s", url))
}

// GetByHash loads the item with the given content hash
func (r *PostgresContentRepository) GetByHash(ctx context.Context, hash string) (*models.Content, error) {
	return r.getOne(ctx, "c.content_hash = $1", hash, "content with matching hash")
}

func (r *PostgresContentRepository) getOne(ctx context.Context, where string, arg any, label string) (*models.Content, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s c
		LEFT JOIN %s s ON s.content_id = c.id
		WHERE %s
	`, contentColumns, r.tables.Contents, r.tables.Summaries, where)

	executor := postgres.GetExecutor(ctx, r.pool)
	content, err := scanContent(executor.QueryRow(ctx, query, arg))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, &domain.NotFoundError{Message: label + " not found"}
		}
		return nil, fmt.Errorf("get content: %w", err)
	}

	themes, err := r.loadThemes(ctx, []string{content.ID})
	if err != nil {
		return nil, err
	}
	content.Themes = themes[content.ID]
	if content.Themes == nil {
		content.Themes = []models.ThemeAssociation{}
	}

	return content, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*models.Content, error) {
	var (
		c               models.Content
		overview        *string
		keyInsights     []string
		implications    *string
		suggestedThemes []string
		modelVersion    *string
		tokenCount      *int
		generatedAt     *time.Time
	)

	err := row.Scan(
		&c.ID,
		&c.SourceType,
		&c.SourceURL,
		&c.FilePath,
		&c.Title,
		&c.Author,
		&c.PublishDate,
		&c.RawContent,
		&c.ContentHash,
		&c.ExtractionMetadata,
		&c.SummaryStatus,
		&c.SummaryError,
		&c.CreatedAt,
		&c.UpdatedAt,
		&overview,
		&keyInsights,
		&implications,
		&suggestedThemes,
		&modelVersion,
		&tokenCount,
		&generatedAt,
	)
	if err != nil {
		return nil, err
	}

	if overview != nil {
		summary := &models.Summary{
			Overview:        *overview,
			KeyInsights:     keyInsights,
			Implications:    implications,
			SuggestedThemes: suggestedThemes,
		}
		if summary.KeyInsights == nil {
			summary.KeyInsights = []string{}
		}
		if modelVersion != nil {
			summary.ModelVersion = *modelVersion
		}
		if tokenCount != nil {
			summary.TokenCount = *tokenCount
		}
		if generatedAt != nil {
			summary.GeneratedAt = *generatedAt
		}
		c.Summary = summary
	}
	if c.ExtractionMetadata == nil {
		c.ExtractionMetadata = map[string]any{}
	}

	return &c, nil
}

// loadThemes fetches theme associations for the given items, keyed by content id
func (r *PostgresContentRepository) loadThemes(ctx context.Context, ids []string) (map[string][]models.ThemeAssociation, error) {
	out := make(map[string][]models.ThemeAssociation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT ct.content_id, t.id, t.name, ct.confidence, t.color
		FROM %s ct
		JOIN %s t ON t.id = ct.theme_id
		WHERE ct.content_id = ANY($1::uuid[])
		ORDER BY lower(t.name), t.id
	`, r.tables.ContentThemes, r.tables.Themes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("load content themes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contentID string
		var a models.ThemeAssociation
		if err := rows.Scan(&contentID, &a.ThemeID, &a.ThemeName, &a.Confidence, &a.Color); err != nil {
			return nil, fmt.Errorf("scan content theme: %w", err)
		}
		out[contentID] = append(out[contentID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content themes: %w", err)
	}

	return out, nil
}

// Delete removes a content item and returns its stored file path, if any
func (r *PostgresContentRepository) Delete(ctx context.Context, id string) (*string, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING file_path`, r.tables.Contents)

	var filePath *string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&filePath)
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("content %s not found", id)}
		}
		return nil, fmt.Errorf("delete content: %w", err)
	}

	return filePath, nil
}

// searchQuery is a parameterized WHERE clause plus the placeholders the
// relevance expression shares with it.
type searchQuery struct {
	where    string
	args     []any
	docVec   string
	tsQuery  string
	queryArg string
}

// buildSearchQuery turns a filter into SQL over contents c LEFT JOIN summaries s
func buildSearchQuery(filter *models.ContentFilter, contentThemes string) *searchQuery {
	sq := &searchQuery{}
	var conds []string

	next := func(v any) string {
		sq.args = append(sq.args, v)
		return fmt.Sprintf("$%d", len(sq.args))
	}

	if len(filter.SourceTypes) > 0 {
		types := make([]string, len(filter.SourceTypes))
		for i, t := range filter.SourceTypes {
			types[i] = string(t)
		}
		conds = append(conds, fmt.Sprintf("c.source_type = ANY(%s)", next(types)))
	}

	if len(filter.ThemeIDs) > 0 {
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s ct WHERE ct.content_id = c.id AND ct.theme_id = ANY(%s::uuid[]))",
			contentThemes, next(filter.ThemeIDs)))
	}

	if filter.DateFrom != nil {
		conds = append(conds, fmt.Sprintf("c.publish_date >= %s", next(*filter.DateFrom)))
	}
	if filter.DateTo != nil {
		conds = append(conds, fmt.Sprintf("c.publish_date <= %s", next(*filter.DateTo)))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		lang := next(filter.Language) + "::regconfig"
		sq.queryArg = next(q)
		like := next("%" + escapeLike(q) + "%")

		sq.docVec = fmt.Sprintf(
			"setweight(to_tsvector(%[1]s, coalesce(c.title, '')), 'A') || "+
				"setweight(to_tsvector(%[1]s, coalesce(c.author, '')), 'B') || "+
				"setweight(to_tsvector(%[1]s, coalesce(s.overview, '')), 'C')", lang)
		sq.tsQuery = fmt.Sprintf("websearch_to_tsquery(%s, %s)", lang, sq.queryArg)

		conds = append(conds, fmt.Sprintf(
			`((%[1]s) @@ %[2]s OR c.title ILIKE %[3]s ESCAPE '\' OR c.author ILIKE %[3]s ESCAPE '\' OR s.overview ILIKE %[3]s ESCAPE '\')`,
			sq.docVec, sq.tsQuery, like))
	}

	if len(conds) > 0 {
		sq.where = "WHERE " + strings.Join(conds, " AND ")
	}

	return sq
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// List returns one page of items matching the filter and the total count
func (r *PostgresContentRepository) List(ctx context.Context, filter *models.ContentFilter) ([]models.ContentListItem, int, error) {
	if filter.Language == "" {
		filter.Language = r.language
	}

	sq := buildSearchQuery(filter, r.tables.ContentThemes)
	where := sq.where

	from := fmt.Sprintf(`FROM %s c LEFT JOIN %s s ON s.content_id = c.id`, r.tables.Contents, r.tables.Summaries)

	executor := postgres.GetExecutor(ctx, r.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) %s %s`, from, where)
	if err := executor.QueryRow(ctx, countQuery, sq.args...).Scan(&total); err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return nil, 0, &domain.ValidationError{Message: "invalid filter value"}
		}
		return nil, 0, fmt.Errorf("count content: %w", err)
	}

	args := append([]any{}, sq.args...)
	relevance := "NULL::double precision"
	orderBy := "c.created_at DESC, c.id DESC"
	if sq.docVec != "" {
		relevance = fmt.Sprintf("ts_rank_cd(%s, %s)", sq.docVec, sq.tsQuery)
		if len(filter.QueryEmbedding) > 0 && r.vectorWeight > 0 {
			args = append(args, pgvector.NewVector(filter.QueryEmbedding))
			vecArg := fmt.Sprintf("$%d", len(args))
			args = append(args, r.vectorWeight)
			weightArg := fmt.Sprintf("$%d", len(args))
			relevance = fmt.Sprintf(
				"(%s + COALESCE(%s * (1 - (c.embedding <=> %s::vector)), 0))",
				relevance, weightArg, vecArg)
		}
		orderBy = "relevance DESC, c.created_at DESC, c.id DESC"
	}

	args = append(args, filter.PageSize)
	limitArg := len(args)
	args = append(args, filter.Offset())
	offsetArg := len(args)

	query := fmt.Sprintf(`
		SELECT c.id, c.title, c.author, c.source_type, c.source_url, c.publish_date,
			c.created_at, c.summary_status, s.overview, %s AS relevance
		%s
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, relevance, from, where, orderBy, limitArg, offsetArg)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	items := []models.ContentListItem{}
	var ids []string
	for rows.Next() {
		var item models.ContentListItem
		var overview *string
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Author,
			&item.SourceType,
			&item.SourceURL,
			&item.PublishDate,
			&item.CreatedAt,
			&item.SummaryStatus,
			&overview,
			&item.Relevance,
		); err != nil {
			return nil, 0, fmt.Errorf("scan content: %w", err)
		}
		if overview != nil {
			preview := models.SummaryPreview(*overview, config.SummaryPreviewLength)
			item.SummaryPreview = &preview
		}
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate content: %w", err)
	}

	themes, err := r.loadThemes(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Themes = themes[items[i].ID]
		if items[i].Themes == nil {
			items[i].Themes = []models.ThemeAssociation{}
		}
	}

	return items, total, nil
}

// Count returns the number of stored items
func (r *PostgresContentRepository) Count(ctx context.Context) (int, error) {
	var n int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Contents)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return n, nil
}

// UpsertSummary replaces the summary, stores the embedding and marks the
// item completed
func (r *PostgresContentRepository) UpsertSummary(ctx context.Context, contentID string, summary *models.Summary, embedding []float32) error {
	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	executor := postgres.GetExecutor(ctx, r.pool)

	tag, err := executor.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET summary_status = 'completed', summary_error = NULL, embedding = $2, updated_at = NOW()
		WHERE id = $1
	`, r.tables.Contents), contentID, vec)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("content %s not found", contentID)}
		}
		return fmt.Errorf("mark summary completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("content %s not found", contentID)}
	}

	keyInsights := summary.KeyInsights
	if keyInsights == nil {
		keyInsights = []string{}
	}
	suggested := summary.SuggestedThemes
	if suggested == nil {
		suggested = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (content_id, overview, key_insights, implications, suggested_themes,
			model_version, token_count, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (content_id) DO UPDATE SET
			overview = EXCLUDED.overview,
			key_insights = EXCLUDED.key_insights,
			implications = EXCLUDED.implications,
			suggested_themes = EXCLUDED.suggested_themes,
			model_version = EXCLUDED.model_version,
			token_count = EXCLUDED.token_count,
			generated_at = EXCLUDED.generated_at
		RETURNING generated_at
	`, r.tables.Summaries)

	err = executor.QueryRow(ctx, query,
		contentID,
		summary.Overview,
		keyInsights,
		summary.Implications,
		suggested,
		summary.ModelVersion,
		summary.TokenCount,
	).Scan(&summary.GeneratedAt)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	return nil
}

// MarkSummaryFailed records a failed summarization attempt
func (r *PostgresContentRepository) MarkSummaryFailed(ctx context.Context, contentID, reason string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET summary_status = 'failed', summary_error = $2, summary_attempts = summary_attempts + 1
		WHERE id = $1
	`, r.tables.Contents)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, contentID, reason)
	if err != nil {
		return fmt.Errorf("mark summary failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("content %s not found", contentID)}
	}
	return nil
}

// ListFailedSummaries returns items still eligible for another summarization attempt
func (r *PostgresContentRepository) ListFailedSummaries(ctx context.Context, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE summary_status = 'failed' AND summary_attempts < $2
		ORDER BY summary_attempts, created_at
		LIMIT $1
	`, r.tables.Contents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, limit, libraryRepo.MaxSummaryAttempts)
	if err != nil {
		return nil, fmt.Errorf("list failed summaries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan failed summary: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecentSummaries returns the newest summarized items for theme proposal
func (r *PostgresContentRepository) RecentSummaries(ctx context.Context, limit int) ([]models.CorpusEntry, error) {
	query := fmt.Sprintf(`
		SELECT c.id, COALESCE(c.title, ''), s.overview, s.key_insights
		FROM %s c
		JOIN %s s ON s.content_id = c.id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $1
	`, r.tables.Contents, r.tables.Summaries)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent summaries: %w", err)
	}
	defer rows.Close()

	var entries []models.CorpusEntry
	for rows.Next() {
		var e models.CorpusEntry
		if err := rows.Scan(&e.ContentID, &e.Title, &e.Overview, &e.KeyInsights); err != nil {
			return nil, fmt.Errorf("scan recent summary: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
