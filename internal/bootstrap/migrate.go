package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	pgstore "github.com/flume-app/flume-backend/internal/docstore/postgres"
)

// Migrate creates the documents table and its indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, pgstore.Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
