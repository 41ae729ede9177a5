// Package database stores list page configurations in PostgreSQL.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/north-cloud/list-pages/internal/config"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
	"github.com/jonesrussell/north-cloud/list-pages/internal/retry"
)

// DefaultPingTimeout bounds the connection check.
const DefaultPingTimeout = 5 * time.Second

// Connect opens a pooled connection and verifies it, retrying with backoff
// while the server is not reachable yet.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	attempt := 0
	pingErr := retry.Retry(ctx, retry.DefaultConfig(), func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.Warn("Database not reachable yet", logger.Int("attempt", attempt), logger.Error(err))
			return err
		}
		return nil
	})
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connection established",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("dbname", cfg.Database),
	)
	return db, nil
}

// Close closes db when it is set.
func Close(db *sqlx.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
