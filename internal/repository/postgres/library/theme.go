package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	libraryRepo "contentflow/internal/domain/repositories/library"
	"contentflow/internal/repository/postgres"
)

// PostgresThemeRepository implements libraryRepo.ThemeRepository
type PostgresThemeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewThemeRepository creates a new theme repository
func NewThemeRepository(config *postgres.RepositoryConfig) libraryRepo.ThemeRepository {
	return &PostgresThemeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *PostgresThemeRepository) selectThemes(where string) string {
	return fmt.Sprintf(`
		SELECT t.id, t.name, t.description, t.color, t.created_at, t.updated_at,
			COUNT(ct.content_id) AS content_count
		FROM %s t
		LEFT JOIN %s ct ON ct.theme_id = t.id
		%s
		GROUP BY t.id
		ORDER BY content_count DESC, lower(t.name), t.id
	`, r.tables.Themes, r.tables.ContentThemes, where)
}

func scanTheme(row rowScanner) (*models.Theme, error) {
	var t models.Theme
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Color, &t.CreatedAt, &t.UpdatedAt, &t.ContentCount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all themes with live content counts
func (r *PostgresThemeRepository) List(ctx context.Context) ([]models.Theme, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, r.selectThemes(""))
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	themes := []models.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		themes = append(themes, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate themes: %w", err)
	}

	return themes, nil
}

// GetByID retrieves a theme by ID
func (r *PostgresThemeRepository) GetByID(ctx context.Context, id string) (*models.Theme, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	t, err := scanTheme(executor.QueryRow(ctx, r.selectThemes("WHERE t.id = $1"), id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("theme %s not found", id)}
		}
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return t, nil
}

// GetByName retrieves a theme by case-insensitive name
func (r *PostgresThemeRepository) GetByName(ctx context.Context, name string) (*models.Theme, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	t, err := scanTheme(executor.QueryRow(ctx, r.selectThemes("WHERE lower(t.name) = lower($1)"), name))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("theme '%s' not found", name)}
		}
		return nil, fmt.Errorf("get theme by name: %w", err)
	}
	return t, nil
}

// Create inserts a theme
func (r *PostgresThemeRepository) Create(ctx context.Context, theme *models.Theme) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, description, color)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, r.tables.Themes)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, theme.Name, theme.Description, theme.Color).
		Scan(&theme.ID, &theme.CreatedAt, &theme.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.conflict(ctx, theme.Name)
		}
		return fmt.Errorf("create theme: %w", err)
	}

	theme.ContentCount = 0
	return nil
}

func (r *PostgresThemeRepository) conflict(ctx context.Context, name string) error {
	existing, err := r.GetByName(ctx, name)
	if err != nil {
		// The conflicting row may live only inside a failed transaction
		return fmt.Errorf("theme '%s' already exists: %w", name, domain.ErrConflict)
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("theme '%s' already exists", name),
		ResourceType: "theme",
		ResourceID:   existing.ID,
	}
}

// Update applies non-nil fields and returns the updated theme
func (r *PostgresThemeRepository) Update(ctx context.Context, id string, update *libraryRepo.ThemeUpdate) (*models.Theme, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			color = COALESCE($4, color),
			updated_at = NOW()
		WHERE id = $1
	`, r.tables.Themes)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, update.Name, update.Description, update.Color)
	if err != nil {
		if postgres.IsPgDuplicateError(err) && update.Name != nil {
			return nil, r.conflict(ctx, *update.Name)
		}
		if postgres.IsPgInvalidTextError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("theme %s not found", id)}
		}
		return nil, fmt.Errorf("update theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("theme %s not found", id)}
	}

	return r.GetByID(ctx, id)
}

// Delete removes a theme; its assignments cascade
func (r *PostgresThemeRepository) Delete(ctx context.Context, id string) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Themes), id)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("theme %s not found", id)}
		}
		return fmt.Errorf("delete theme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("theme %s not found", id)}
	}
	return nil
}

// Count returns the number of themes
func (r *PostgresThemeRepository) Count(ctx context.Context) (int, error) {
	var n int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Themes)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count themes: %w", err)
	}
	return n, nil
}

// Assign upserts theme assignments in one statement
func (r *PostgresThemeRepository) Assign(ctx context.Context, assignments []models.ThemeAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	// A pair may appear only once per statement; the last one wins
	index := make(map[[2]string]int, len(assignments))
	var contentIDs, themeIDs []string
	var confidences []*float64
	for _, a := range assignments {
		key := [2]string{a.ContentID, a.ThemeID}
		if i, ok := index[key]; ok {
			confidences[i] = a.Confidence
			continue
		}
		index[key] = len(contentIDs)
		contentIDs = append(contentIDs, a.ContentID)
		themeIDs = append(themeIDs, a.ThemeID)
		confidences = append(confidences, a.Confidence)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (content_id, theme_id, confidence)
		SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::double precision[])
		ON CONFLICT (content_id, theme_id) DO UPDATE SET confidence = EXCLUDED.confidence
	`, r.tables.ContentThemes)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, contentIDs, themeIDs, confidences); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.ValidationError{Message: "theme assignment references a missing content item or theme"}
		}
		return fmt.Errorf("assign themes: %w", err)
	}
	return nil
}
