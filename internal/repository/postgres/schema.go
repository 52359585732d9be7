package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EmbeddingDimensions is the width of contents.embedding.
const EmbeddingDimensions = 256

// EnsureSchema creates tables and indexes if they don't exist. It is
// idempotent and safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	p := tables.Prefix

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				source_type VARCHAR(20) NOT NULL
					CHECK (source_type IN ('twitter', 'pdf', 'arxiv', 'acm', 'web')),
				source_url TEXT UNIQUE,
				file_path TEXT,
				title TEXT,
				author TEXT,
				publish_date TIMESTAMPTZ,
				raw_content TEXT NOT NULL DEFAULT '',
				content_hash VARCHAR(64) NOT NULL UNIQUE,
				extraction_metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
				summary_status VARCHAR(20) NOT NULL DEFAULT 'completed'
					CHECK (summary_status IN ('completed', 'failed')),
				summary_error TEXT,
				summary_attempts INTEGER NOT NULL DEFAULT 0,
				embedding vector(%d),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CHECK ((source_url IS NULL) <> (file_path IS NULL))
			)`, tables.Contents, EmbeddingDimensions),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				content_id UUID PRIMARY KEY REFERENCES %s(id) ON DELETE CASCADE,
				overview TEXT NOT NULL,
				key_insights TEXT[] NOT NULL DEFAULT '{}',
				implications TEXT,
				suggested_themes TEXT[] NOT NULL DEFAULT '{}',
				model_version VARCHAR(100),
				token_count INTEGER,
				generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, tables.Summaries, tables.Contents),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name VARCHAR(100) NOT NULL,
				description TEXT,
				color VARCHAR(7),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, tables.Themes),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				content_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				theme_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				confidence DOUBLE PRECISION
					CHECK (confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (content_id, theme_id)
			)`, tables.ContentThemes, tables.Contents, tables.Themes),

		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%sthemes_name_lower ON %s (lower(name))`, p, tables.Themes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%scontent_themes_theme ON %s (theme_id)`, p, tables.ContentThemes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%scontents_created ON %s (created_at DESC, id DESC)`, p, tables.Contents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%scontents_source_type ON %s (source_type)`, p, tables.Contents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%scontents_publish_date ON %s (publish_date)`, p, tables.Contents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%scontents_summary_failed ON %s (summary_attempts, created_at) WHERE summary_status = 'failed'`, p, tables.Contents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`, VectorIndexName(tables), tables.Contents),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}

// VectorIndexName is the name of the HNSW index on contents.embedding
func VectorIndexName(tables *TableNames) string {
	return fmt.Sprintf("idx_%scontents_embedding", tables.Prefix)
}

// DropAllTables drops every table in reverse dependency order
func DropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range tables.All() {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// ClearData deletes all rows but keeps the schema
func ClearData(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s, %s, %s, %s",
		tables.ContentThemes, tables.Summaries, tables.Themes, tables.Contents)); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}
