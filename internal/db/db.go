// Package db provides the PostgreSQL connection pool, migrations, and pgtype helpers.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfolio/openfolio/internal/config"
)

// Open creates a pgx connection pool for the configured database.
func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, DSN(cfg))
}
