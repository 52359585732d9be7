package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthChecker reports database and vector index readiness
type HealthChecker struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewHealthChecker creates a health checker over the pool
func NewHealthChecker(pool *pgxpool.Pool, tables *TableNames) *HealthChecker {
	return &HealthChecker{pool: pool, tables: tables}
}

// PingDatabase runs a trivial query
func (h *HealthChecker) PingDatabase(ctx context.Context) error {
	var one int
	if err := h.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// CheckVectorIndex verifies the pgvector extension and the embedding index exist
func (h *HealthChecker) CheckVectorIndex(ctx context.Context) error {
	var ready bool
	err := h.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')
		   AND EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = $1)
	`, VectorIndexName(h.tables)).Scan(&ready)
	if err != nil {
		return fmt.Errorf("vector index check: %w", err)
	}
	if !ready {
		return fmt.Errorf("vector index %s missing", VectorIndexName(h.tables))
	}
	return nil
}
