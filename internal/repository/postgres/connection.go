package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"contentflow/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
	// Language is the text search configuration used for full-text queries
	Language string
	// VectorWeight scales cosine similarity in search relevance
	VectorWeight float64
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Prefix        string
	Contents      string
	Summaries     string
	Themes        string
	ContentThemes string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Prefix:        prefix,
		Contents:      fmt.Sprintf("%scontents", prefix),
		Summaries:     fmt.Sprintf("%ssummaries", prefix),
		Themes:        fmt.Sprintf("%sthemes", prefix),
		ContentThemes: fmt.Sprintf("%scontent_themes", prefix),
	}
}

// All returns the tables in dependency order (children first), for drops
func (t *TableNames) All() []string {
	return []string{t.ContentThemes, t.Summaries, t.Themes, t.Contents}
}

// CreateConnectionPool creates a pgx pool with pgvector types registered on
// every connection.
//
// The vector extension has to exist before types can be registered, so a
// single bootstrap connection creates it first. Port 6543 (PgBouncer in
// transaction mode) does not support prepared statements; for it the pool
// switches to QueryExecModeCacheDescribe unless the connection string sets
// default_query_exec_mode explicitly.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	if err := ensureVectorExtension(ctx, config.ConnConfig); err != nil {
		return nil, err
	}

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func ensureVectorExtension(ctx context.Context, connConfig *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, connConfig.Copy())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enable pgvector extension: %w", err)
	}
	return nil
}

// GetExecutor returns the transaction stored in ctx, or the pool when there
// is none, so repositories join an enclosing transaction automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
