// Package postgres provides PostgreSQL-based implementations of the store
// interfaces.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"opssight/internal/config"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
		cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// RunMigrations creates the required database tables.
// The partial unique index on open fingerprints is what makes concurrent
// upserts of the same alert safe: only one insert can win, the loser
// re-reads the winner's row.
func (db *DB) RunMigrations(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerts (
			id VARCHAR(36) PRIMARY KEY,
			fingerprint VARCHAR(64) NOT NULL,
			external_id VARCHAR(255),
			source VARCHAR(32) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			severity VARCHAR(16) NOT NULL,
			category VARCHAR(32) NOT NULL,
			tags JSONB,
			metadata JSONB,
			url TEXT,
			status VARCHAR(20) NOT NULL,
			suppressed_until TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			acknowledged_at TIMESTAMP WITH TIME ZONE,
			resolved_at TIMESTAMP WITH TIME ZONE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_fingerprint
			ON alerts(fingerprint) WHERE status <> 'resolved';
		CREATE INDEX IF NOT EXISTS idx_alerts_external
			ON alerts(external_id, source) WHERE external_id IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_source ON alerts(source);
		CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);

		CREATE TABLE IF NOT EXISTS alert_events (
			id VARCHAR(36) PRIMARY KEY,
			alert_id VARCHAR(36) NOT NULL,
			type VARCHAR(20) NOT NULL,
			source VARCHAR(32) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alert_events_alert ON alert_events(alert_id, created_at);
	`

	_, err := db.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
