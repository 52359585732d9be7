package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	"contentflow/internal/repository/postgres"
)

// ============================================================================
// INTEGRATION TESTS - require TEST_DATABASE_URL
// ============================================================================

func setupRepos(t *testing.T) (*PostgresContentRepository, *PostgresThemeRepository) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	tables := postgres.NewTableNames("itest_")
	if err := postgres.DropAllTables(ctx, pool, tables); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { _ = postgres.DropAllTables(context.Background(), pool, tables) })

	cfg := &postgres.RepositoryConfig{
		Pool:         pool,
		Tables:       tables,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, nil)),
		VectorWeight: 0.3,
	}
	return NewContentRepository(cfg).(*PostgresContentRepository), NewThemeRepository(cfg).(*PostgresThemeRepository)
}

func newContent(i int) *models.Content {
	url := fmt.Sprintf("https://example.com/post-%d", i)
	title := fmt.Sprintf("Post %d about graphs", i)
	return &models.Content{
		SourceType:  models.SourceWeb,
		SourceURL:   &url,
		Title:       &title,
		RawContent:  "body",
		ContentHash: fmt.Sprintf("%064d", i),
	}
}

func TestIntegration_PaginationAndDedup(t *testing.T) {
	contents, _ := setupRepos(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		created, err := contents.Create(ctx, newContent(i))
		if err != nil || !created {
			t.Fatalf("create %d: created=%v err=%v", i, created, err)
		}
	}

	created, err := contents.Create(ctx, newContent(3))
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if created {
		t.Fatal("duplicate source_url inserted a second row")
	}

	filter := &models.ContentFilter{Page: 3, PageSize: 10}
	items, total, err := contents.List(ctx, filter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 25 || len(items) != 5 {
		t.Errorf("page 3: total=%d len=%d, want 25 and 5", total, len(items))
	}

	filter = &models.ContentFilter{Page: 4, PageSize: 10}
	items, total, err = contents.List(ctx, filter)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if total != 25 || len(items) != 0 {
		t.Errorf("page past end: total=%d len=%d", total, len(items))
	}

	filter = &models.ContentFilter{Query: "graphs", Page: 1, PageSize: 5}
	items, _, err = contents.List(ctx, filter)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 5 || items[0].Relevance == nil {
		t.Errorf("search returned %d items, relevance set=%v", len(items), len(items) > 0 && items[0].Relevance != nil)
	}
}

func TestIntegration_DeleteCascades(t *testing.T) {
	contents, themes := setupRepos(t)
	ctx := context.Background()

	c := newContent(1)
	if _, err := contents.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := contents.UpsertSummary(ctx, c.ID, &models.Summary{Overview: "o", KeyInsights: []string{"k"}}, nil); err != nil {
		t.Fatalf("summary: %v", err)
	}

	theme := &models.Theme{Name: "Graphs"}
	if err := themes.Create(ctx, theme); err != nil {
		t.Fatalf("theme: %v", err)
	}
	conf := 0.8
	if err := themes.Assign(ctx, []models.ThemeAssignment{{ContentID: c.ID, ThemeID: theme.ID, Confidence: &conf}}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	got, err := themes.GetByID(ctx, theme.ID)
	if err != nil || got.ContentCount != 1 {
		t.Fatalf("content_count = %v (err %v), want 1", got, err)
	}

	if _, err := contents.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := contents.GetByID(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("get after delete: %v, want not found", err)
	}

	got, err = themes.GetByID(ctx, theme.ID)
	if err != nil || got.ContentCount != 0 {
		t.Errorf("content_count after delete = %v (err %v), want 0", got, err)
	}
}

func TestIntegration_ThemeCascadeAndConflict(t *testing.T) {
	contents, themes := setupRepos(t)
	ctx := context.Background()

	c := newContent(1)
	if _, err := contents.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	theme := &models.Theme{Name: "Security"}
	if err := themes.Create(ctx, theme); err != nil {
		t.Fatalf("theme: %v", err)
	}

	var conflict *domain.ConflictError
	if err := themes.Create(ctx, &models.Theme{Name: "SECURITY"}); !errors.As(err, &conflict) {
		t.Fatalf("case-insensitive duplicate: %v, want ConflictError", err)
	}
	if conflict.ResourceID != theme.ID {
		t.Errorf("conflict resource = %s, want %s", conflict.ResourceID, theme.ID)
	}

	if err := themes.Assign(ctx, []models.ThemeAssignment{{ContentID: c.ID, ThemeID: theme.ID}}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := themes.Delete(ctx, theme.ID); err != nil {
		t.Fatalf("delete theme: %v", err)
	}

	got, err := contents.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Themes) != 0 {
		t.Errorf("themes after theme delete = %v, want none", got.Themes)
	}
}

func TestIntegration_SearchTieBreak(t *testing.T) {
	contents, _ := setupRepos(t)
	ctx := context.Background()

	// Identical title and body give every row the same relevance
	var ids []string
	for i := 0; i < 3; i++ {
		c := newContent(i)
		title := "Graph theory notes"
		c.Title = &title
		if _, err := contents.Create(ctx, c); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, c.ID)
	}
	newer := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	stamp := func(id string, at time.Time) {
		if _, err := contents.pool.Exec(ctx,
			fmt.Sprintf("UPDATE %s SET created_at = $1 WHERE id = $2", contents.tables.Contents), at, id); err != nil {
			t.Fatalf("set created_at: %v", err)
		}
	}
	stamp(ids[0], older)
	stamp(ids[1], newer)
	stamp(ids[2], newer)

	same := []string{ids[1], ids[2]}
	sort.Sort(sort.Reverse(sort.StringSlice(same)))
	want := append(same, ids[0])

	items, _, err := contents.List(ctx, &models.ContentFilter{Query: "graph", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for i, item := range items {
		if item.ID != want[i] {
			t.Errorf("position %d = %s, want %s", i, item.ID, want[i])
		}
		if item.Relevance == nil || *item.Relevance != *items[0].Relevance {
			t.Errorf("relevance at %d = %v, want equal scores", i, item.Relevance)
		}
	}
}

func TestIntegration_PublishDateRangeInclusive(t *testing.T) {
	contents, _ := setupRepos(t)
	ctx := context.Background()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)

	dates := map[string]*time.Time{
		"at lower bound":  ptrTime(from),
		"last second":     ptrTime(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)),
		"day before":      ptrTime(from.Add(-time.Second)),
		"day after":       ptrTime(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		"no publish date": nil,
	}
	wantIn := map[string]bool{"at lower bound": true, "last second": true}

	byID := map[string]string{}
	i := 0
	for name, date := range dates {
		c := newContent(i)
		c.PublishDate = date
		if _, err := contents.Create(ctx, c); err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
		byID[c.ID] = name
		i++
	}

	items, total, err := contents.List(ctx, &models.ContentFilter{DateFrom: &from, DateTo: &to, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != len(wantIn) {
		t.Errorf("total = %d, want %d", total, len(wantIn))
	}
	for _, item := range items {
		if name := byID[item.ID]; !wantIn[name] {
			t.Errorf("%q matched the range", name)
		}
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
