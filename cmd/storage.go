package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/storage/mariadb"
	"github.com/classwatch/classwatch/internal/storage/postgres"
	"github.com/classwatch/classwatch/internal/web/middleware"
)

// openStore connects to the configured backend, runs migrations, and
// returns the store plus an optional session repository. The returned
// close function releases the connection pool.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, middleware.SessionRepository, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
		}
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrating PostgreSQL schema: %w", err)
		}
		closePool := func() {
			if err := pool.Close(); err != nil {
				fmt.Printf("Warning: closing database pool: %v\n", err)
			}
		}
		return postgres.NewStore(pool), postgres.NewSessionRepository(pool), closePool, nil

	case "mariadb":
		if cfg.Database.MariaDBDSN == "" {
			return nil, nil, nil, errors.New("MARIADB_DSN environment variable is required")
		}
		pool, err := mariadb.NewPool(cfg.Database.MariaDBDSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to MariaDB: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrating MariaDB schema: %w", err)
		}
		closePool := func() {
			if err := pool.Close(); err != nil {
				fmt.Printf("Warning: closing database pool: %v\n", err)
			}
		}
		// Sessions stay in memory on MariaDB deployments.
		return mariadb.NewStore(pool), nil, closePool, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q (use postgres or mariadb)", cfg.Database.Driver)
	}
}
